package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/buntdb"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// BuntStorage is an embedded, file- or memory-backed Storage
// implementation over tidwall/buntdb. It exercises the Storage lock
// contract in-process via a per-key mutex, which is sufficient for a
// single pipeline process and a convenient local/test backend that
// needs no external service.
type BuntStorage struct {
	db     *buntdb.DB
	logger *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewBuntStorage opens (or creates) the database at path. Pass ":memory:"
// for a process-local, non-persistent store.
func NewBuntStorage(path string, logger *slog.Logger) (*BuntStorage, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "bunt", Op: "open", Err: err}
	}
	return &BuntStorage{
		db:     db,
		logger: logger.With("component", "bunt_storage"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func (s *BuntStorage) Close() error {
	return s.db.Close()
}

type buntLock struct {
	mu *sync.Mutex
}

func (l *buntLock) Unlock(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}

func (s *BuntStorage) lockFor(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

// Lock blocks until the in-process mutex for key is available or ctx
// is cancelled.
func (s *BuntStorage) Lock(ctx context.Context, key string) (Lock, error) {
	mu := s.lockFor(key)
	done := make(chan struct{})
	go func() {
		mu.Lock()
		close(done)
	}()
	select {
	case <-done:
		return &buntLock{mu: mu}, nil
	case <-ctx.Done():
		go func() { <-done; mu.Unlock() }()
		return nil, ctx.Err()
	}
}

func entryKey(pipelineKey, observerKey string) string {
	return fmt.Sprintf("gocrowd:%s:%s", pipelineKey, observerKey)
}

func (s *BuntStorage) Load(ctx context.Context, pipelineKey string, observerKeys []string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(tx *buntdb.Tx) error {
		for _, key := range observerKeys {
			val, err := tx.Get(entryKey(pipelineKey, key))
			if err == buntdb.ErrNotFound {
				continue
			}
			if err != nil {
				return err
			}
			out[key] = []byte(val)
		}
		return nil
	})
	if err != nil {
		return nil, &types.StorageError{Backend: "bunt", Op: "load", Err: err}
	}
	return out, nil
}

func (s *BuntStorage) Save(ctx context.Context, pipelineKey string, states map[string][]byte) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for key, state := range states {
			if _, _, err := tx.Set(entryKey(pipelineKey, key), string(state), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &types.StorageError{Backend: "bunt", Op: "save", Err: err}
	}
	return nil
}

func (s *BuntStorage) Cleanup(ctx context.Context, pipelineKey string, observerKeys []string, lock Lock) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range observerKeys {
			if _, err := tx.Delete(entryKey(pipelineKey, key)); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("cleanup failed", "error", err)
		return &types.StorageError{Backend: "bunt", Op: "cleanup", Err: err}
	}
	return nil
}
