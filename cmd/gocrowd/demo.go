package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/gocrowd/internal/config"
	"github.com/IshaanNene/gocrowd/internal/observability"
	"github.com/IshaanNene/gocrowd/internal/remote"
	"github.com/IshaanNene/gocrowd/internal/storage"
	"github.com/IshaanNene/gocrowd/internal/streaming/cursor"
	"github.com/IshaanNene/gocrowd/internal/streaming/observer"
	"github.com/IshaanNene/gocrowd/internal/streaming/pipeline"
	"github.com/IshaanNene/gocrowd/internal/streaming/transform"
	"github.com/IshaanNene/gocrowd/internal/types"
)

// seedDemoFixture populates fetcher with a handful of records so `run`
// has something to stream on a first pass.
func seedDemoFixture(fetcher *remote.Fake) {
	now := time.Now().UTC().Add(-time.Hour)
	poolID := "pool-demo-1"

	fetcher.AddPool(&types.Pool{PoolID: poolID, Status: "OPEN", LastStarted: now})

	for i := 0; i < 3; i++ {
		t := now.Add(time.Duration(i) * time.Minute)
		fetcher.AddTask(&types.Task{TaskID: remote.NewAssignmentID(), PoolID: poolID, Created: t})
		fetcher.AddAssignment(&types.Assignment{
			AssignmentID: remote.NewAssignmentID(),
			PoolID:       poolID,
			UserID:       "user-demo",
			Status:       "SUBMITTED",
			Times:        map[string]time.Time{"submitted": t},
		})
	}
}

// buildDemoPipeline wires Simple observers for submitted assignments,
// tasks and pool snapshots against fetcher, registers them on a new
// Pipeline, and returns it ready to Run.
func buildDemoPipeline(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, store storage.Storage, fetcher *remote.Fake) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithPeriod(cfg.Pipeline.Period),
		pipeline.WithMinSleep(cfg.Pipeline.MinSleep),
		pipeline.WithName(cfg.Pipeline.Name),
	}
	if store != nil {
		opts = append(opts, pipeline.WithStorage(store))
	}
	if metrics != nil {
		opts = append(opts, pipeline.WithMetrics(metrics))
	}
	pipe := pipeline.New(logger, opts...)

	submittedReq := types.NewSearchRequest("submitted")
	submitted, err := cursor.NewAssignmentCursor(fetcher.FindAssignments, types.AssignmentSubmitted, submittedReq)
	if err != nil {
		logger.Error("build assignment cursor", "error", err)
	} else {
		obs := observer.NewSimple[*types.Assignment]("assignments:submitted", submitted.Base, logger)
		if metrics != nil {
			obs.WithMetrics(metrics)
		}
		obs.On(string(types.AssignmentSubmitted), func(events []cursor.Event[*types.Assignment]) error {
			for _, e := range events {
				logger.Info("assignment submitted", "assignment_id", e.Item.AssignmentID, "pool_id", e.Item.PoolID)
			}
			return nil
		})
		pipe.Register(obs)
	}

	taskCursor := cursor.NewTaskCursor(fetcher.FindTasks, types.NewSearchRequest("created"))
	taskObs := observer.NewSimple[*types.Task]("tasks:created", taskCursor.Base, logger)
	if metrics != nil {
		taskObs.WithMetrics(metrics)
	}
	taskChain := transform.NewChain[*types.Task](logger).Use(transform.DedupByID[*types.Task]())
	taskObs.OnAny(taskChain.Handler(func(events []cursor.Event[*types.Task]) error {
		for _, e := range events {
			logger.Info("task created", "task_id", e.Item.TaskID, "pool_id", e.Item.PoolID)
		}
		return nil
	}))
	pipe.Register(taskObs)

	poolCache := remote.NewPoolCache(cfg.Remote.PoolCacheCapacity, poolAnalyticsLookup(fetcher))

	poolCursor := cursor.NewPoolCursor(fetcher.FindPools, types.NewSearchRequest("last_started"))
	poolObs := observer.NewSimple[*types.Pool]("pools:last_started", poolCursor.Base, logger)
	if metrics != nil {
		poolObs.WithMetrics(metrics)
	}
	poolObs.OnAny(func(events []cursor.Event[*types.Pool]) error {
		for _, e := range events {
			logger.Info("pool snapshot", "pool_id", e.Item.PoolID, "status", e.Item.Status)
			analytics, err := poolCache.GetPool(context.Background(), e.Item.PoolID)
			if err != nil {
				logger.Error("pool analytics lookup", "pool_id", e.Item.PoolID, "error", err)
				continue
			}
			logger.Info("pool analytics", "pool_id", analytics.PoolID, "status", analytics.Status, "last_started", analytics.LastStarted)
		}
		return nil
	})
	pipe.Register(poolObs)

	return pipe
}

// poolAnalyticsLookup aggregates a pool's current status and last-start
// time from fetcher's Pools collection, the same aggregation PoolCache
// memoizes behind GetPool.
func poolAnalyticsLookup(fetcher *remote.Fake) remote.PoolLookup {
	return func(ctx context.Context, poolID string) (*remote.PoolAnalytics, error) {
		page, err := fetcher.FindPools(ctx, types.NewSearchRequest("last_started").WithFilter("pool_id", poolID), "last_started")
		if err != nil {
			return nil, err
		}
		for _, p := range page.Items {
			if p.PoolID == poolID {
				return &remote.PoolAnalytics{PoolID: p.PoolID, Status: p.Status, LastStarted: p.LastStarted}, nil
			}
		}
		return &remote.PoolAnalytics{PoolID: poolID, Status: "UNKNOWN"}, nil
	}
}
