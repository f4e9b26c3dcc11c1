package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	documenterrors "bizpulse/internal/documents/errors"
	"bizpulse/pkg/config"
	mongotx "bizpulse/pkg/db/mongo"
	"bizpulse/pkg/model"
)

const (
	CollectionName = "Documents"
)

type mongoDocumentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	FindPendingPortalEstimates(ctx context.Context, limit int) ([]*model.Document, error)
	FindPaidInvoicesSince(ctx context.Context, businessID string, since time.Time) ([]*model.Document, error)
	ApplyDecision(ctx context.Context, id string, status model.EstimateStatus, decidedAt *time.Time) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoDocumentRepository(cfg *config.Config) DocumentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDocumentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics, so
// inside a transaction the original context comes back with a no-op cancel.
func (r *mongoDocumentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid.Hex()
	}
	return nil
}

func (r *mongoDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", documenterrors.ErrInvalidID, id)
	}

	var doc model.Document
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, documenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// FindPendingPortalEstimates returns portal-visible estimates still awaiting a
// client decision, oldest first so long-pending ones are reconciled before
// fresh ones.
func (r *mongoDocumentRepository) FindPendingPortalEstimates(ctx context.Context, limit int) ([]*model.Document, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"document_type":         model.DocumentTypeEstimate,
		"client_portal_enabled": true,
		"estimate_status": bson.M{
			"$in": []model.EstimateStatus{model.EstimateStatusDraft, model.EstimateStatusSent},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending estimates: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*model.Document
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode pending estimates: %w", err)
	}

	return docs, nil
}

func (r *mongoDocumentRepository) FindPaidInvoicesSince(ctx context.Context, businessID string, since time.Time) ([]*model.Document, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"business_id":   businessID,
		"document_type": model.DocumentTypeInvoice,
		"paid":          true,
		"$or": []bson.M{
			{"paid_at": bson.M{"$gte": since}},
			{"paid_at": nil, "issue_date": bson.M{"$gte": since}},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "issue_date", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find paid invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*model.Document
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode paid invoices: %w", err)
	}

	return docs, nil
}

// ApplyDecision moves an estimate out of its pending state. The filter only
// matches estimates still draft or sent, which makes replayed decisions
// no-ops: the first write wins and later ones report no transition.
func (r *mongoDocumentRepository) ApplyDecision(ctx context.Context, id string, status model.EstimateStatus, decidedAt *time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", documenterrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":           objectID,
		"document_type": model.DocumentTypeEstimate,
		"estimate_status": bson.M{
			"$in": []model.EstimateStatus{model.EstimateStatusDraft, model.EstimateStatusSent},
		},
	}

	set := bson.M{"estimate_status": status}
	if status == model.EstimateStatusAccepted {
		acceptedAt := time.Now().UTC().Truncate(time.Millisecond)
		if decidedAt != nil {
			acceptedAt = decidedAt.UTC()
		}
		set["estimate_accepted_at"] = acceptedAt
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to apply estimate decision: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *mongoDocumentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
