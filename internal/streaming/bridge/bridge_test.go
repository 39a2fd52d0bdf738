package bridge

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/IshaanNene/gocrowd/internal/observability"
	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeItem struct {
	id string
	t  time.Time
}

func (f fakeItem) ID() string                       { return f.id }
func (f fakeItem) TimeField(field string) time.Time { return f.t }

func TestSyncAdapterFetchDispatchesAndReturns(t *testing.T) {
	fn := SyncFetch[fakeItem](func(req types.SearchRequest, sort string) (cursor.Page[fakeItem], error) {
		return cursor.Page[fakeItem]{Items: []fakeItem{{"a", time.Unix(1, 0)}}}, nil
	})
	a := NewSyncAdapter[fakeItem](fn, 2, "fake")

	page, err := a.Fetch(context.Background(), types.NewSearchRequest("t"), "t")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].id != "a" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestSyncAdapterFetchReturnsUnderlyingError(t *testing.T) {
	wantErr := errors.New("boom")
	fn := SyncFetch[fakeItem](func(req types.SearchRequest, sort string) (cursor.Page[fakeItem], error) {
		return cursor.Page[fakeItem]{}, wantErr
	})
	a := NewSyncAdapter[fakeItem](fn, 0, "fake")

	_, err := a.Fetch(context.Background(), types.NewSearchRequest("t"), "t")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestSyncAdapterFetchRespectsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	fn := SyncFetch[fakeItem](func(req types.SearchRequest, sort string) (cursor.Page[fakeItem], error) {
		<-block
		return cursor.Page[fakeItem]{}, nil
	})
	defer close(block)
	a := NewSyncAdapter[fakeItem](fn, 1, "fake")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.Fetch(ctx, types.NewSearchRequest("t"), "t")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSyncAdapterWithMetricsRecordsFetchOutcome(t *testing.T) {
	m := observability.NewMetrics(testLogger)
	okFn := SyncFetch[fakeItem](func(req types.SearchRequest, sort string) (cursor.Page[fakeItem], error) {
		return cursor.Page[fakeItem]{}, nil
	})
	a := NewSyncAdapter[fakeItem](okFn, 1, "fake").WithMetrics(m)

	if _, err := a.Fetch(context.Background(), types.NewSearchRequest("t"), "t"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	failFn := SyncFetch[fakeItem](func(req types.SearchRequest, sort string) (cursor.Page[fakeItem], error) {
		return cursor.Page[fakeItem]{}, errors.New("boom")
	})
	b := NewSyncAdapter[fakeItem](failFn, 1, "fake").WithMetrics(m)
	if _, err := b.Fetch(context.Background(), types.NewSearchRequest("t"), "t"); err == nil {
		t.Fatalf("expected error")
	}

	if got := counterValue(t, m.FetchTotal.WithLabelValues("fake")); got != 2 {
		t.Fatalf("expected 2 recorded fetches, got %v", got)
	}
	if got := counterValue(t, m.FetchErrorsTotal.WithLabelValues("fake")); got != 1 {
		t.Fatalf("expected 1 recorded fetch error, got %v", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return out.GetCounter().GetValue()
}
