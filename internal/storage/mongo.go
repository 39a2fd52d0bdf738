package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/gocrowd/internal/types"
)

// MongoStorage persists observer checkpoints as one document per
// (pipeline_key, observer_key) pair, and implements the advisory lock
// as a unique-indexed document in a dedicated locks collection that
// the caller deletes on Unlock — an insert failing on the unique index
// means another pipeline instance already holds the lock.
type MongoStorage struct {
	client    *mongo.Client
	states    *mongo.Collection
	locks     *mongo.Collection
	logger    *slog.Logger
	pollEvery time.Duration
}

type checkpointDoc struct {
	PipelineKey string    `bson:"pipeline_key"`
	ObserverKey string    `bson:"observer_key"`
	State       []byte    `bson:"state"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type lockDoc struct {
	Key         string    `bson:"_id"`
	AcquiredAt  time.Time `bson:"acquired_at"`
}

// NewMongoStorage connects to uri and prepares the checkpoint and lock
// collections in database dbName.
func NewMongoStorage(ctx context.Context, uri, dbName string, logger *slog.Logger) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongo", Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongo", Op: "ping", Err: err}
	}

	db := client.Database(dbName)
	states := db.Collection("pipeline_states")
	locks := db.Collection("pipeline_locks")

	_, err = states.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pipeline_key", Value: 1}, {Key: "observer_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, &types.StorageError{Backend: "mongo", Op: "create_index", Err: err}
	}

	return &MongoStorage{
		client:    client,
		states:    states,
		locks:     locks,
		logger:    logger.With("component", "mongo_storage"),
		pollEvery: 200 * time.Millisecond,
	}, nil
}

func (s *MongoStorage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoLock struct {
	storage *MongoStorage
	key     string
}

func (l *mongoLock) Unlock(ctx context.Context) error {
	_, err := l.storage.locks.DeleteOne(ctx, bson.M{"_id": l.key})
	if err != nil {
		return &types.StorageError{Backend: "mongo", Op: "unlock", Err: err}
	}
	return nil
}

// Lock blocks, retrying at s.pollEvery, until it can insert the lock
// document for key or ctx is cancelled.
func (s *MongoStorage) Lock(ctx context.Context, key string) (Lock, error) {
	for {
		_, err := s.locks.InsertOne(ctx, lockDoc{Key: key, AcquiredAt: time.Now()})
		if err == nil {
			return &mongoLock{storage: s, key: key}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, &types.StorageError{Backend: "mongo", Op: "lock", Err: err}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollEvery):
		}
	}
}

func (s *MongoStorage) Load(ctx context.Context, pipelineKey string, observerKeys []string) (map[string][]byte, error) {
	cur, err := s.states.Find(ctx, bson.M{
		"pipeline_key": pipelineKey,
		"observer_key": bson.M{"$in": observerKeys},
	})
	if err != nil {
		return nil, &types.StorageError{Backend: "mongo", Op: "load", Err: err}
	}
	defer cur.Close(ctx)

	out := make(map[string][]byte)
	for cur.Next(ctx) {
		var doc checkpointDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, &types.StorageError{Backend: "mongo", Op: "load_decode", Err: err}
		}
		out[doc.ObserverKey] = doc.State
	}
	if err := cur.Err(); err != nil {
		return nil, &types.StorageError{Backend: "mongo", Op: "load_cursor", Err: err}
	}
	return out, nil
}

func (s *MongoStorage) Save(ctx context.Context, pipelineKey string, states map[string][]byte) error {
	for observerKey, state := range states {
		filter := bson.M{"pipeline_key": pipelineKey, "observer_key": observerKey}
		update := bson.M{"$set": checkpointDoc{
			PipelineKey: pipelineKey,
			ObserverKey: observerKey,
			State:       state,
			UpdatedAt:   time.Now(),
		}}
		if _, err := s.states.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return &types.StorageError{Backend: "mongo", Op: fmt.Sprintf("save(%s)", observerKey), Err: err}
		}
	}
	return nil
}

func (s *MongoStorage) Cleanup(ctx context.Context, pipelineKey string, observerKeys []string, lock Lock) error {
	_, err := s.states.DeleteMany(ctx, bson.M{
		"pipeline_key": pipelineKey,
		"observer_key": bson.M{"$in": observerKeys},
	})
	if err != nil {
		s.logger.Error("cleanup failed", "error", err)
		return &types.StorageError{Backend: "mongo", Op: "cleanup", Err: err}
	}
	return nil
}
