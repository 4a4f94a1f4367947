// Package mongostore applies merge-upsert batches to a MongoDB collection.
//
// Each operation becomes an upserting update keyed by the canonical variant
// key: $setOnInsert carries the canonical fields and $addToSet appends the
// evidence sub-documents. The server applies each update atomically per
// document, which is what makes concurrent writers of the same key safe.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/merge"
)

const backend = "mongodb"

// DefaultCollection is the collection variants are written to.
const DefaultCollection = "variants"

// Store writes variant documents to one collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// Connect opens a client for uri and verifies the server is reachable.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if database == "" {
		return nil, errors.New("mongostore: database name is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", uri, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx) //nolint:errcheck
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}

	return New(client.Database(database).Collection(collection)), nil
}

// New wraps an existing collection handle.
func New(coll *mongo.Collection) *Store {
	return &Store{client: coll.Database().Client(), coll: coll, logger: zap.NewNop()}
}

// SetLogger sets the logger for batch messages.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates every index in the background. Creating an index
// that already exists with the same definition is a no-op on the server.
func (s *Store) EnsureIndexes(ctx context.Context, indexes []document.Index) error {
	if len(indexes) == 0 {
		return nil
	}
	names, err := s.coll.Indexes().CreateMany(ctx, IndexModels(indexes))
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	s.logger.Debug("indexes ensured", zap.Strings("indexes", names))
	return nil
}

// BulkUpsert executes the batch as one unordered bulk write.
func (s *Store) BulkUpsert(ctx context.Context, ops []merge.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	res, err := s.coll.BulkWrite(ctx, WriteModels(ops), options.BulkWrite().SetOrdered(false))
	if err != nil {
		we := &merge.WriteError{Backend: backend, Ops: len(ops), Err: err}
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			we.Failed = len(bwe.WriteErrors)
		}
		return we
	}

	s.logger.Debug("bulk write acknowledged",
		zap.Int("operations", len(ops)),
		zap.Int64("upserted", res.UpsertedCount),
		zap.Int64("modified", res.ModifiedCount))
	return nil
}

// WriteModels converts operations into upserting update models.
func WriteModels(ops []merge.Operation) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(Filter(op)).
			SetUpdate(Update(op)).
			SetUpsert(true))
	}
	return models
}

// Filter selects the document of op. Chromosome and start are repeated so
// the filter carries the shard key of a sharded collection.
func Filter(op merge.Operation) bson.D {
	return bson.D{
		{Key: document.FieldID, Value: op.ID},
		{Key: document.FieldChromosome, Value: op.Chromosome},
		{Key: document.FieldStart, Value: op.Start},
	}
}

// Update builds the update document of op.
func Update(op merge.Operation) bson.D {
	addToSet := bson.D{}
	if len(op.AddFiles) > 0 {
		addToSet = append(addToSet, bson.E{Key: document.FieldFiles, Value: bson.D{{Key: "$each", Value: op.AddFiles}}})
	}
	if len(op.AddStats) > 0 {
		addToSet = append(addToSet, bson.E{Key: document.FieldStats, Value: bson.D{{Key: "$each", Value: op.AddStats}}})
	}

	update := bson.D{{Key: "$setOnInsert", Value: op.SetOnInsert}}
	if len(addToSet) > 0 {
		update = append(update, bson.E{Key: "$addToSet", Value: addToSet})
	}
	return update
}

// IndexModels converts index definitions into ascending background indexes.
func IndexModels(indexes []document.Index) []mongo.IndexModel {
	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := make(bson.D, 0, len(idx.Fields))
		for _, f := range idx.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetName(idx.Name).SetBackground(true),
		})
	}
	return models
}
