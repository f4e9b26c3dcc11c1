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
	CollectionName = "Jobs"
)

type mongoJobRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	FindByBusiness(ctx context.Context, businessID string, limit int) ([]*model.Job, error)
	CountUpcoming(ctx context.Context, businessID string, now time.Time) (int64, error)
}

func NewMongoJobRepository(cfg *config.Config) JobRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoJobRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoJobRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoJobRepository) Create(ctx context.Context, job *model.Job) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	job.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		job.ID = oid.Hex()
	}
	return nil
}

func (r *mongoJobRepository) FindByBusiness(ctx context.Context, businessID string, limit int) ([]*model.Job, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"business_id": businessID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*model.Job
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}

	return jobs, nil
}

// CountUpcoming counts jobs starting at or after now that neither the typed
// stage nor the legacy status string marks as completed.
func (r *mongoJobRepository) CountUpcoming(ctx context.Context, businessID string, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"business_id": businessID,
		"start_date":  bson.M{"$gte": now},
		"stage":       bson.M{"$ne": model.JobStageCompleted},
		"status": bson.M{
			"$not": bson.M{"$regex": "^completed$", "$options": "i"},
		},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count upcoming jobs: %w", err)
	}
	return count, nil
}
