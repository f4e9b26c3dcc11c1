package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bizpulse/pkg/config"
	"bizpulse/pkg/model"
)

const (
	CollectionName = "DecisionQueue"
)

type mongoDecisionQueue struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// DecisionQueue is the durable buffer between out-of-band decision intake
// (deep links, portal events) and the sync pass that folds decisions into the
// document store. Append-only until replay removes the applied entry.
type DecisionQueue interface {
	Enqueue(ctx context.Context, record *model.DecisionRecord) error
	FindAll(ctx context.Context) ([]*model.DecisionRecord, error)
	Remove(ctx context.Context, id string) error
}

func NewMongoDecisionQueue(cfg *config.Config) DecisionQueue {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDecisionQueue{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (q *mongoDecisionQueue) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (q *mongoDecisionQueue) Enqueue(ctx context.Context, record *model.DecisionRecord) error {
	ctx, cancel := q.withTimeout(ctx, q.cfg.WriteTimeout)
	defer cancel()

	record.RecordedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := q.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to enqueue decision: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid.Hex()
	}
	return nil
}

func (q *mongoDecisionQueue) FindAll(ctx context.Context) ([]*model.DecisionRecord, error) {
	ctx, cancel := q.withTimeout(ctx, q.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})

	cursor, err := q.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find queued decisions: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.DecisionRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode queued decisions: %w", err)
	}

	return records, nil
}

func (q *mongoDecisionQueue) Remove(ctx context.Context, id string) error {
	ctx, cancel := q.withTimeout(ctx, q.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid decision ID %q: %w", id, err)
	}

	if _, err := q.collection.DeleteOne(ctx, bson.M{"_id": objectID}); err != nil {
		return fmt.Errorf("failed to remove queued decision: %w", err)
	}
	return nil
}
