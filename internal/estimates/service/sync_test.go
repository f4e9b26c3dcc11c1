package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"bizpulse/pkg/client"
	"bizpulse/pkg/config"
	mongotx "bizpulse/pkg/db/mongo"
	"bizpulse/pkg/logger"
	"bizpulse/pkg/model"
)

// Mock document repository for testing
type mockDocumentRepository struct {
	createFunc                     func(ctx context.Context, doc *model.Document) error
	findByIDFunc                   func(ctx context.Context, id string) (*model.Document, error)
	findPendingPortalEstimatesFunc func(ctx context.Context, limit int) ([]*model.Document, error)
	applyDecisionFunc              func(ctx context.Context, id string, status model.EstimateStatus, decidedAt *time.Time) (bool, error)
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	return nil
}

func (m *mockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Document{ID: id, Type: model.DocumentTypeEstimate}, nil
}

func (m *mockDocumentRepository) FindPendingPortalEstimates(ctx context.Context, limit int) ([]*model.Document, error) {
	if m.findPendingPortalEstimatesFunc != nil {
		return m.findPendingPortalEstimatesFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockDocumentRepository) FindPaidInvoicesSince(ctx context.Context, businessID string, since time.Time) ([]*model.Document, error) {
	return nil, nil
}

func (m *mockDocumentRepository) ApplyDecision(ctx context.Context, id string, status model.EstimateStatus, decidedAt *time.Time) (bool, error) {
	if m.applyDecisionFunc != nil {
		return m.applyDecisionFunc(ctx, id, status, decidedAt)
	}
	return true, nil
}

func (m *mockDocumentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	// Execute the function with a fake session context
	sessCtx := mongo.NewSessionContext(ctx, nil)
	return fn(sessCtx)
}

// Mock decision queue for testing
type mockDecisionQueue struct {
	enqueueFunc func(ctx context.Context, record *model.DecisionRecord) error
	findAllFunc func(ctx context.Context) ([]*model.DecisionRecord, error)
	removeFunc  func(ctx context.Context, id string) error
}

func (m *mockDecisionQueue) Enqueue(ctx context.Context, record *model.DecisionRecord) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, record)
	}
	return nil
}

func (m *mockDecisionQueue) FindAll(ctx context.Context) ([]*model.DecisionRecord, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockDecisionQueue) Remove(ctx context.Context, id string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, id)
	}
	return nil
}

// Mock portal API for testing
type mockPortalAPI struct {
	fetchBookingRequestsFunc func(ctx context.Context, businessID string) ([]*model.BookingRequest, error)
	fetchEstimateStatusFunc  func(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error)
}

func (m *mockPortalAPI) FetchBookingRequests(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
	if m.fetchBookingRequestsFunc != nil {
		return m.fetchBookingRequestsFunc(ctx, businessID)
	}
	return nil, nil
}

func (m *mockPortalAPI) FetchEstimateStatus(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
	if m.fetchEstimateStatusFunc != nil {
		return m.fetchEstimateStatusFunc(ctx, businessID, estimateID)
	}
	return &client.EstimateDecision{Status: model.EstimateStatusSent}, nil
}

type mockAnnouncer struct {
	announceFunc func(ctx context.Context, record *model.DecisionRecord) error
}

func (m *mockAnnouncer) Announce(ctx context.Context, record *model.DecisionRecord) error {
	if m.announceFunc != nil {
		return m.announceFunc(ctx, record)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log:            logger.New(logger.Config{Service: "test", Output: io.Discard}),
		SyncBatchLimit: 40,
	}
}

func pendingEstimate(id string) *model.Document {
	return &model.Document{
		ID:                  id,
		BusinessID:          "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Type:                model.DocumentTypeEstimate,
		Number:              "EST-" + id,
		EstimateStatus:      model.EstimateStatusSent,
		ClientPortalEnabled: true,
		Items:               []model.LineItem{{Description: "work", Quantity: 2, UnitPrice: 100}},
	}
}

func TestSyncAppliesRemoteDecision(t *testing.T) {
	decidedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	var appliedStatus model.EstimateStatus
	var appliedAt *time.Time
	var created *model.Document

	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			return []*model.Document{pendingEstimate("est-1")}, nil
		},
		applyDecisionFunc: func(ctx context.Context, id string, status model.EstimateStatus, at *time.Time) (bool, error) {
			appliedStatus = status
			appliedAt = at
			return true, nil
		},
		createFunc: func(ctx context.Context, doc *model.Document) error {
			created = doc
			return nil
		},
	}
	portal := &mockPortalAPI{
		fetchEstimateStatusFunc: func(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
			return &client.EstimateDecision{Status: model.EstimateStatusAccepted, DecidedAt: &decidedAt}, nil
		},
	}

	svc := NewSyncService(docs, &mockDecisionQueue{}, portal, nil, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.Checked != 1 || result.Updated != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want checked 1, updated 1, failed 0", result)
	}
	if appliedStatus != model.EstimateStatusAccepted {
		t.Errorf("applied status = %q, want accepted", appliedStatus)
	}
	if appliedAt == nil || !appliedAt.Equal(decidedAt) {
		t.Errorf("applied decidedAt = %v, want %v", appliedAt, decidedAt)
	}
	if created == nil {
		t.Fatal("no invoice drafted for accepted estimate")
	}
	if created.Type != model.DocumentTypeInvoice || created.Paid {
		t.Errorf("drafted document = %+v, want an unpaid invoice", created)
	}
	if created.Number != "INV-EST-est-1" {
		t.Errorf("invoice number = %q, want INV-EST-est-1", created.Number)
	}
	if len(created.Items) != 1 || created.Items[0].UnitPrice != 100 {
		t.Errorf("invoice items = %+v, want the estimate's line items", created.Items)
	}
}

func TestSyncFailureOnOneEstimateDoesNotAbortBatch(t *testing.T) {
	var applied []string
	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			return []*model.Document{pendingEstimate("est-1"), pendingEstimate("est-2"), pendingEstimate("est-3")}, nil
		},
		applyDecisionFunc: func(ctx context.Context, id string, status model.EstimateStatus, at *time.Time) (bool, error) {
			applied = append(applied, id)
			return true, nil
		},
	}
	portal := &mockPortalAPI{
		fetchEstimateStatusFunc: func(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
			if estimateID == "est-2" {
				return nil, errors.New("portal timeout")
			}
			return &client.EstimateDecision{Status: model.EstimateStatusDeclined}, nil
		},
	}

	svc := NewSyncService(docs, &mockDecisionQueue{}, portal, nil, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.Checked != 3 || result.Updated != 2 || result.Failed != 1 {
		t.Errorf("result = %+v, want checked 3, updated 2, failed 1", result)
	}
	if len(applied) != 2 {
		t.Errorf("applied to %v, want the two reachable estimates", applied)
	}
}

func TestSyncLeavesUndecidedEstimatesAlone(t *testing.T) {
	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			return []*model.Document{pendingEstimate("est-1")}, nil
		},
		applyDecisionFunc: func(ctx context.Context, id string, status model.EstimateStatus, at *time.Time) (bool, error) {
			t.Errorf("ApplyDecision called for undecided estimate %s", id)
			return false, nil
		},
	}
	portal := &mockPortalAPI{} // returns "sent" by default

	svc := NewSyncService(docs, &mockDecisionQueue{}, portal, nil, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Updated != 0 {
		t.Errorf("Updated = %d, want 0", result.Updated)
	}
}

func TestSyncConversionFailureDoesNotFailThePass(t *testing.T) {
	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			return []*model.Document{pendingEstimate("est-1")}, nil
		},
		createFunc: func(ctx context.Context, doc *model.Document) error {
			return errors.New("write failed")
		},
	}
	portal := &mockPortalAPI{
		fetchEstimateStatusFunc: func(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
			return &client.EstimateDecision{Status: model.EstimateStatusAccepted}, nil
		},
	}

	svc := NewSyncService(docs, &mockDecisionQueue{}, portal, nil, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Updated != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want the decision to count despite the failed conversion", result)
	}
}

func TestSyncReplaysQueuedDecisions(t *testing.T) {
	record := &model.DecisionRecord{
		ID:         "65f1a2b3c4d5e6f7a8b9c0d1",
		EstimateID: "est-9",
		BusinessID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Status:     model.EstimateStatusDeclined,
		DecidedAt:  time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Source:     model.DecisionSourceDeepLink,
	}

	drained := false
	var removed []string
	queue := &mockDecisionQueue{
		findAllFunc: func(ctx context.Context) ([]*model.DecisionRecord, error) {
			if drained {
				return nil, nil
			}
			return []*model.DecisionRecord{record}, nil
		},
		removeFunc: func(ctx context.Context, id string) error {
			drained = true
			removed = append(removed, id)
			return nil
		},
	}

	var appliedID string
	docs := &mockDocumentRepository{
		applyDecisionFunc: func(ctx context.Context, id string, status model.EstimateStatus, at *time.Time) (bool, error) {
			appliedID = id
			if at == nil || !at.Equal(record.DecidedAt) {
				t.Errorf("replay decidedAt = %v, want %v", at, record.DecidedAt)
			}
			return true, nil
		},
	}

	svc := NewSyncService(docs, queue, &mockPortalAPI{}, nil, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.ReplayedDecisions != 1 {
		t.Errorf("ReplayedDecisions = %d, want 1", result.ReplayedDecisions)
	}
	if appliedID != "est-9" {
		t.Errorf("applied to %q, want est-9", appliedID)
	}
	if len(removed) != 1 || removed[0] != record.ID {
		t.Errorf("removed %v, want the replayed record", removed)
	}
}

func TestSyncReplayFailureLeavesRecordQueued(t *testing.T) {
	record := &model.DecisionRecord{
		ID:         "65f1a2b3c4d5e6f7a8b9c0d1",
		EstimateID: "est-9",
		Status:     model.EstimateStatusDeclined,
	}

	queue := &mockDecisionQueue{
		findAllFunc: func(ctx context.Context) ([]*model.DecisionRecord, error) {
			return []*model.DecisionRecord{record}, nil
		},
		removeFunc: func(ctx context.Context, id string) error {
			t.Error("Remove called even though the decision was not applied")
			return nil
		},
	}
	docs := &mockDocumentRepository{
		applyDecisionFunc: func(ctx context.Context, id string, status model.EstimateStatus, at *time.Time) (bool, error) {
			return false, errors.New("mongo unavailable")
		},
	}

	svc := NewSyncService(docs, queue, &mockPortalAPI{}, nil, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.ReplayedDecisions != 0 {
		t.Errorf("ReplayedDecisions = %d, want 0", result.ReplayedDecisions)
	}
}

func TestSyncPassesBatchLimit(t *testing.T) {
	var gotLimit int
	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	cfg := testConfig()
	cfg.SyncBatchLimit = 25

	svc := NewSyncService(docs, &mockDecisionQueue{}, &mockPortalAPI{}, nil, cfg)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if gotLimit != 25 {
		t.Errorf("batch limit = %d, want 25", gotLimit)
	}
}

func TestSyncAnnouncesAppliedDecisions(t *testing.T) {
	var announced *model.DecisionRecord
	announcer := &mockAnnouncer{
		announceFunc: func(ctx context.Context, record *model.DecisionRecord) error {
			announced = record
			return nil
		},
	}
	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			return []*model.Document{pendingEstimate("est-1")}, nil
		},
	}
	portal := &mockPortalAPI{
		fetchEstimateStatusFunc: func(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
			return &client.EstimateDecision{Status: model.EstimateStatusDeclined}, nil
		},
	}

	svc := NewSyncService(docs, &mockDecisionQueue{}, portal, announcer, testConfig())
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if announced == nil {
		t.Fatal("decision was not announced")
	}
	if announced.EstimateID != "est-1" || announced.Status != model.EstimateStatusDeclined {
		t.Errorf("announced = %+v, want est-1 declined", announced)
	}
	if announced.Source != model.DecisionSourcePortal {
		t.Errorf("announced source = %q, want portal", announced.Source)
	}
}

func TestSyncAnnouncerFailureIsSwallowed(t *testing.T) {
	announcer := &mockAnnouncer{
		announceFunc: func(ctx context.Context, record *model.DecisionRecord) error {
			return errors.New("broker down")
		},
	}
	docs := &mockDocumentRepository{
		findPendingPortalEstimatesFunc: func(ctx context.Context, limit int) ([]*model.Document, error) {
			return []*model.Document{pendingEstimate("est-1")}, nil
		},
	}
	portal := &mockPortalAPI{
		fetchEstimateStatusFunc: func(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
			return &client.EstimateDecision{Status: model.EstimateStatusDeclined}, nil
		},
	}

	svc := NewSyncService(docs, &mockDecisionQueue{}, portal, announcer, testConfig())
	result, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1 despite announce failure", result.Updated)
	}
}

func TestInvoiceNumberFor(t *testing.T) {
	if got := invoiceNumberFor(&model.Document{Number: "EST-042"}); got != "INV-EST-042" {
		t.Errorf("invoiceNumberFor = %q, want INV-EST-042", got)
	}
	if got := invoiceNumberFor(&model.Document{}); got != "" {
		t.Errorf("invoiceNumberFor = %q, want empty for unnumbered estimate", got)
	}
	if !strings.HasPrefix(invoiceNumberFor(&model.Document{Number: "7"}), "INV-") {
		t.Error("invoice numbers should carry the INV- prefix")
	}
}
