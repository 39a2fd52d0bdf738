package cursor

import (
	"encoding/json"
	"time"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// stateJSON is the on-disk/on-wire shape of a State, used by Storage
// backends to persist and reload cursor checkpoints.
type stateJSON struct {
	TimeField string         `json:"time_field"`
	Gte       *time.Time     `json:"gte,omitempty"`
	Gt        *time.Time     `json:"gt,omitempty"`
	Lte       *time.Time     `json:"lte,omitempty"`
	IDGt      string         `json:"id_gt,omitempty"`
	Filters   map[string]any `json:"filters,omitempty"`
	SeenIDs   []string       `json:"seen_ids"`
}

// MarshalJSON renders the state for checkpointing.
func (s State) MarshalJSON() ([]byte, error) {
	seen := make([]string, 0, len(s.SeenIDs))
	for id := range s.SeenIDs {
		seen = append(seen, id)
	}

	j := stateJSON{
		TimeField: s.Request.TimeField(),
		IDGt:      firstOf(s.Request.IDGt()),
		Filters:   s.Request.Filters(),
		SeenIDs:   seen,
	}
	if t, ok := s.Request.Gte(); ok {
		j.Gte = &t
	}
	if t, ok := s.Request.Gt(); ok {
		j.Gt = &t
	}
	if t, ok := s.Request.Lte(); ok {
		j.Lte = &t
	}
	return json.Marshal(j)
}

// UnmarshalJSON restores a state previously produced by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var j stateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Request = types.RestoreSearchRequest(j.TimeField, j.Gte, j.Gt, j.Lte, j.IDGt, j.Filters)
	s.SeenIDs = make(map[string]struct{}, len(j.SeenIDs))
	for _, id := range j.SeenIDs {
		s.SeenIDs[id] = struct{}{}
	}
	return nil
}

func firstOf(s string, ok bool) string {
	if ok {
		return s
	}
	return ""
}
