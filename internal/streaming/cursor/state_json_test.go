package cursor

import (
	"encoding/json"
	"testing"

	"github.com/IshaanNene/gocrowd/internal/types"
)

func TestStateJSONRoundTrip(t *testing.T) {
	req := types.NewSearchRequest("accepted").
		WithGte(at(100)).
		WithFilter("pool_id", "pool-1")

	want := State{
		Request: req,
		SeenIDs: map[string]struct{}{"a": {}, "b": {}},
	}

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got State
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(got.SeenIDs) != len(want.SeenIDs) {
		t.Fatalf("seen ids: got %v want %v", got.SeenIDs, want.SeenIDs)
	}
	for id := range want.SeenIDs {
		if _, ok := got.SeenIDs[id]; !ok {
			t.Fatalf("missing seen id %q after round trip", id)
		}
	}

	gotGte, ok := got.Request.Gte()
	if !ok {
		t.Fatalf("expected gte to survive round trip")
	}
	if !gotGte.Equal(at(100)) {
		t.Fatalf("gte mismatch: got %v want %v", gotGte, at(100))
	}

	v, ok := got.Request.Filter("pool_id")
	if !ok || v != "pool-1" {
		t.Fatalf("filter mismatch: got %v (ok=%v)", v, ok)
	}
	if got.Request.TimeField() != "accepted" {
		t.Fatalf("time field mismatch: got %q", got.Request.TimeField())
	}
}

func TestStateJSONOmitsUnsetBounds(t *testing.T) {
	s := State{Request: types.NewSearchRequest("created"), SeenIDs: map[string]struct{}{}}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"gte", "gt", "lte", "id_gt", "filters"} {
		if _, present := raw[key]; present {
			t.Fatalf("expected %q to be omitted when unset, raw=%v", key, raw)
		}
	}
}
