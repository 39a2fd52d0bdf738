package cursor

import (
	"context"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// byID drains every item inside a single timestamp bucket, ordered by
// id ascending, resuming via id_gt between pages. It never deduplicates
// on its own — the caller (BaseCursor) filters against its own seen set
// — since the same bucket may be drained more than once across retries.
type byID[T types.Item] struct {
	fetch   FetchFunc[T]
	request types.SearchRequest
}

func newByID[T types.Item](fetch FetchFunc[T], request types.SearchRequest) *byID[T] {
	return &byID[T]{fetch: fetch, request: request}
}

func (c *byID[T]) run(ctx context.Context, emit func(T)) error {
	for {
		page, err := c.fetch(ctx, c.request, "id")
		if err != nil {
			return err
		}
		if len(page.Items) > 0 {
			for _, item := range page.Items {
				emit(item)
			}
			c.request = c.request.WithIDGt(page.Items[len(page.Items)-1].ID())
		}
		if !page.HasMore {
			return nil
		}
	}
}
