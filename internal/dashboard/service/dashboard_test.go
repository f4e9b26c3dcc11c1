package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bizpulse/internal/analytics/engine"
	"bizpulse/pkg/client"
	"bizpulse/pkg/config"
	mongotx "bizpulse/pkg/db/mongo"
	"bizpulse/pkg/logger"
	"bizpulse/pkg/model"
)

const dashBusinessID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

type mockPortalAPI struct {
	fetchBookingRequestsFunc func(ctx context.Context, businessID string) ([]*model.BookingRequest, error)
}

func (m *mockPortalAPI) FetchBookingRequests(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
	if m.fetchBookingRequestsFunc != nil {
		return m.fetchBookingRequestsFunc(ctx, businessID)
	}
	return nil, nil
}

func (m *mockPortalAPI) FetchEstimateStatus(ctx context.Context, businessID, estimateID string) (*client.EstimateDecision, error) {
	return &client.EstimateDecision{Status: model.EstimateStatusSent}, nil
}

type mockDocumentRepository struct {
	findPaidInvoicesSinceFunc func(ctx context.Context, businessID string, since time.Time) ([]*model.Document, error)
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *model.Document) error { return nil }

func (m *mockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return nil, errors.New("not supported in mock")
}

func (m *mockDocumentRepository) FindPendingPortalEstimates(ctx context.Context, limit int) ([]*model.Document, error) {
	return nil, nil
}

func (m *mockDocumentRepository) FindPaidInvoicesSince(ctx context.Context, businessID string, since time.Time) ([]*model.Document, error) {
	if m.findPaidInvoicesSinceFunc != nil {
		return m.findPaidInvoicesSinceFunc(ctx, businessID, since)
	}
	return nil, nil
}

func (m *mockDocumentRepository) ApplyDecision(ctx context.Context, id string, status model.EstimateStatus, decidedAt *time.Time) (bool, error) {
	return false, nil
}

func (m *mockDocumentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return errors.New("not supported in mock")
}

type mockJobRepository struct {
	countUpcomingFunc func(ctx context.Context, businessID string, now time.Time) (int64, error)
}

func (m *mockJobRepository) Create(ctx context.Context, job *model.Job) error { return nil }

func (m *mockJobRepository) FindByBusiness(ctx context.Context, businessID string, limit int) ([]*model.Job, error) {
	return nil, nil
}

func (m *mockJobRepository) CountUpcoming(ctx context.Context, businessID string, now time.Time) (int64, error) {
	if m.countUpcomingFunc != nil {
		return m.countUpcomingFunc(ctx, businessID, now)
	}
	return 0, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(portal client.PortalAPI, clock *fakeClock) *dashboardService {
	cfg := &config.Config{
		Log:             logger.New(logger.Config{Service: "test", Output: io.Discard}),
		BookingCacheTTL: time.Minute,
	}
	return &dashboardService{
		portal:   portal,
		docs:     &mockDocumentRepository{},
		jobs:     &mockJobRepository{},
		cfg:      cfg,
		now:      clock.Now,
		cache:    make(map[string]*cacheEntry),
		inflight: make(map[string]*inflightFetch),
	}
}

func TestMetricsServedFromCacheWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	var fetches atomic.Int32
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			fetches.Add(1)
			return nil, nil
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	if _, err := svc.Metrics(ctx, dashBusinessID, false); err != nil {
		t.Fatalf("first Metrics() error = %v", err)
	}
	clock.Advance(30 * time.Second)
	if _, err := svc.Metrics(ctx, dashBusinessID, false); err != nil {
		t.Fatalf("second Metrics() error = %v", err)
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("portal fetched %d times within TTL, want 1", got)
	}

	clock.Advance(31 * time.Second)
	if _, err := svc.Metrics(ctx, dashBusinessID, false); err != nil {
		t.Fatalf("post-TTL Metrics() error = %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("portal fetched %d times after TTL expiry, want 2", got)
	}
}

func TestMetricsForceBypassesCache(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	var fetches atomic.Int32
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			fetches.Add(1)
			return nil, nil
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	if _, err := svc.Metrics(ctx, dashBusinessID, false); err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if _, err := svc.Metrics(ctx, dashBusinessID, true); err != nil {
		t.Fatalf("forced Metrics() error = %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("portal fetched %d times, want 2 with force", got)
	}
}

func TestMetricsCoalescesConcurrentCalls(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}

	var fetches atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			fetches.Add(1)
			close(started)
			<-release
			return nil, nil
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*Metrics, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = svc.Metrics(ctx, dashBusinessID, false)
	}()

	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = svc.Metrics(ctx, dashBusinessID, false)
	}()

	// Give the second caller time to park on the in-flight fetch
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if results[i] == nil {
			t.Fatalf("caller %d got nil metrics", i)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("portal fetched %d times for concurrent callers, want 1", got)
	}
}

func TestMetricsRefreshPanicReleasesWaiters(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}

	started := make(chan struct{})
	release := make(chan struct{})
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			close(started)
			<-release
			panic("portal client bug")
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	ownerDone := make(chan any, 1)
	go func() {
		defer func() { ownerDone <- recover() }()
		svc.Metrics(ctx, dashBusinessID, false)
	}()

	<-started
	waiterDone := make(chan error, 1)
	go func() {
		_, err := svc.Metrics(ctx, dashBusinessID, false)
		waiterDone <- err
	}()

	// Give the second caller time to park on the in-flight fetch
	time.Sleep(20 * time.Millisecond)
	close(release)

	if r := <-ownerDone; r == nil {
		t.Fatal("expected the owning call to panic")
	}
	select {
	case err := <-waiterDone:
		if err == nil {
			t.Error("waiter error = nil, want a failure with an empty cache")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still parked after the owning fetch panicked")
	}

	svc.mu.Lock()
	_, stuck := svc.inflight[dashBusinessID]
	svc.mu.Unlock()
	if stuck {
		t.Error("in-flight entry left behind after the panic")
	}
}

func TestMetricsCachesPerBusiness(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	var businesses []string
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			businesses = append(businesses, businessID)
			return nil, nil
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	other := "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
	if _, err := svc.Metrics(ctx, dashBusinessID, false); err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if _, err := svc.Metrics(ctx, other, false); err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if _, err := svc.Metrics(ctx, dashBusinessID, false); err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}

	if len(businesses) != 2 {
		t.Errorf("portal fetched for %v, want one fetch per business", businesses)
	}
}

func TestMetricsServesStaleOnPortalFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	healthy := true
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			if !healthy {
				return nil, errors.New("connection refused")
			}
			return []*model.BookingRequest{{
				ID:          "req-1",
				BusinessID:  dashBusinessID,
				Status:      model.RequestStatusApproved,
				CreatedAtMs: clock.Now().Add(-time.Hour).UnixMilli(),
			}}, nil
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	fresh, err := svc.Metrics(ctx, dashBusinessID, false)
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if fresh.Stale {
		t.Error("fresh result marked stale")
	}

	healthy = false
	clock.Advance(2 * time.Minute)

	stale, err := svc.Metrics(ctx, dashBusinessID, false)
	if err != nil {
		t.Fatalf("Metrics() with dead portal error = %v, want stale fallback", err)
	}
	if !stale.Stale {
		t.Error("fallback result not marked stale")
	}
	if stale.Snapshot.TotalRequests != fresh.Snapshot.TotalRequests {
		t.Error("stale result should carry the last good snapshot")
	}
}

func TestMetricsFailsWithoutCachedFallback(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := newTestService(portal, clock)
	if _, err := svc.Metrics(context.Background(), dashBusinessID, false); err == nil {
		t.Error("Metrics() = nil error with dead portal and empty cache, want error")
	}
}

func TestWeeklyRequestCount(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	bookings := []*model.BookingRequest{
		{ID: "in", CreatedAtMs: now.AddDate(0, 0, -3).UnixMilli()},
		{ID: "edge", CreatedAtMs: now.AddDate(0, 0, -7).UnixMilli()},
		{ID: "out", CreatedAtMs: now.AddDate(0, 0, -8).UnixMilli()},
		{ID: "undated"},
	}
	if got := weeklyRequestCount(bookings, now); got != 2 {
		t.Errorf("weeklyRequestCount = %d, want 2", got)
	}
}

func TestPaidRevenueCents(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	paidThisWeek := now.AddDate(0, 0, -5)
	paidThisMonth := now.AddDate(0, 0, -12)
	paidLastMonth := now.AddDate(0, 0, -20)

	bookings := []*model.BookingRequest{
		{DepositAmountCents: 5000, DepositPaidAtMs: paidThisWeek.UnixMilli()},
		{DepositAmountCents: 3000, DepositPaidAtMs: paidThisMonth.UnixMilli()},
		{DepositAmountCents: 9000, DepositPaidAtMs: paidLastMonth.UnixMilli()},
		{DepositAmountCents: 7000, Status: model.RequestStatusDepositPaid}, // no timestamp
	}
	invoices := []*model.Document{
		{
			Type:   model.DocumentTypeInvoice,
			Paid:   true,
			PaidAt: &paidThisWeek,
			Items:  []model.LineItem{{Quantity: 1, UnitPrice: 120}},
		},
		{
			Type:   model.DocumentTypeInvoice,
			Paid:   true,
			PaidAt: &paidLastMonth,
			Items:  []model.LineItem{{Quantity: 1, UnitPrice: 999}},
		},
	}

	if got := paidRevenueCents(bookings, invoices, monthStart, now); got != 20000 {
		t.Errorf("month revenue = %d, want 20000 (5000 + 3000 deposits + 12000 invoice)", got)
	}
	if got := paidRevenueCents(bookings, invoices, weekStart, now); got != 17000 {
		t.Errorf("week revenue = %d, want 17000 (5000 deposit + 12000 invoice)", got)
	}
}

func TestSnapshotUsesRequestedRange(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	portal := &mockPortalAPI{
		fetchBookingRequestsFunc: func(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
			return []*model.BookingRequest{
				{ID: "old", BusinessID: dashBusinessID, Status: model.RequestStatusApproved,
					CreatedAtMs: clock.Now().AddDate(0, 0, -60).UnixMilli()},
				{ID: "recent", BusinessID: dashBusinessID, Status: model.RequestStatusApproved,
					CreatedAtMs: clock.Now().AddDate(0, 0, -2).UnixMilli()},
			}, nil
		},
	}

	svc := newTestService(portal, clock)
	ctx := context.Background()

	week, err := svc.Snapshot(ctx, dashBusinessID, engine.RangeWeek)
	if err != nil {
		t.Fatalf("Snapshot(7d) error = %v", err)
	}
	quarter, err := svc.Snapshot(ctx, dashBusinessID, engine.RangeQuarter)
	if err != nil {
		t.Fatalf("Snapshot(90d) error = %v", err)
	}

	if week.TotalRequests != 1 {
		t.Errorf("7d TotalRequests = %d, want 1", week.TotalRequests)
	}
	if quarter.TotalRequests != 2 {
		t.Errorf("90d TotalRequests = %d, want 2", quarter.TotalRequests)
	}
}
