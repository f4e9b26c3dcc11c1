package service

import (
	"context"
	"sync"
	"time"

	"bizpulse/internal/analytics/engine"
	documentrepo "bizpulse/internal/documents/repository"
	jobrepo "bizpulse/internal/jobs/repository"
	"bizpulse/pkg/client"
	"bizpulse/pkg/config"
	apperrors "bizpulse/pkg/errors"
	"bizpulse/pkg/model"
)

// Metrics is the assembled dashboard payload for one business.
type Metrics struct {
	BusinessID         string          `json:"business_id"`
	Snapshot           engine.Snapshot `json:"snapshot"`
	WeeklyRequestCount int             `json:"weekly_request_count"`
	WeekRevenueCents   int64           `json:"week_revenue_cents"`
	MonthRevenueCents  int64           `json:"month_revenue_cents"`
	UpcomingJobsCount  int64           `json:"upcoming_jobs_count"`
	FetchedAt          time.Time       `json:"fetched_at"`
	Stale              bool            `json:"stale"`
}

type DashboardService interface {
	// Metrics returns the dashboard for a business, served from cache while
	// fresh. force bypasses the cache. When the portal is unreachable the
	// last good result is returned with Stale set.
	Metrics(ctx context.Context, businessID string, force bool) (*Metrics, error)

	// Snapshot computes analytics for an arbitrary range, uncached.
	Snapshot(ctx context.Context, businessID string, tr engine.TimeRange) (*engine.Snapshot, error)
}

type cacheEntry struct {
	metrics   *Metrics
	fetchedAt time.Time
}

type inflightFetch struct {
	done    chan struct{}
	metrics *Metrics
	err     error
}

type dashboardService struct {
	portal client.PortalAPI
	docs   documentrepo.DocumentRepository
	jobs   jobrepo.JobRepository
	cfg    *config.Config
	now    func() time.Time

	mu       sync.Mutex
	cache    map[string]*cacheEntry
	inflight map[string]*inflightFetch
}

func NewDashboardService(
	portal client.PortalAPI,
	docs documentrepo.DocumentRepository,
	jobs jobrepo.JobRepository,
	cfg *config.Config,
) DashboardService {
	return &dashboardService{
		portal:   portal,
		docs:     docs,
		jobs:     jobs,
		cfg:      cfg,
		now:      time.Now,
		cache:    make(map[string]*cacheEntry),
		inflight: make(map[string]*inflightFetch),
	}
}

func (s *dashboardService) Metrics(ctx context.Context, businessID string, force bool) (*Metrics, error) {
	s.mu.Lock()

	if !force {
		if entry, ok := s.cache[businessID]; ok {
			if s.now().Sub(entry.fetchedAt) < s.cfg.BookingCacheTTL {
				s.mu.Unlock()
				return entry.metrics, nil
			}
		}
	}

	// Concurrent callers for the same business share one fetch instead of
	// each hitting the portal.
	if call, ok := s.inflight[businessID]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.metrics, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightFetch{done: make(chan struct{})}
	s.inflight[businessID] = call
	s.mu.Unlock()

	return s.fetch(ctx, businessID, call)
}

// fetch runs the portal refresh for the owning caller and settles the shared
// in-flight entry. Settling is deferred so a panic during the refresh still
// clears the entry and releases every waiter.
func (s *dashboardService) fetch(ctx context.Context, businessID string, call *inflightFetch) (metrics *Metrics, err error) {
	defer func() {
		s.mu.Lock()
		if err == nil && metrics != nil {
			s.cache[businessID] = &cacheEntry{metrics: metrics, fetchedAt: s.now()}
		} else if entry, ok := s.cache[businessID]; ok {
			// Portal trouble: keep serving the last good dashboard, marked stale
			stale := *entry.metrics
			stale.Stale = true
			metrics, err = &stale, nil
		} else if err == nil {
			// Refresh unwound without a result, give waiters an error
			err = apperrors.Internal("Dashboard refresh aborted", nil)
		}
		delete(s.inflight, businessID)
		s.mu.Unlock()

		call.metrics, call.err = metrics, err
		close(call.done)

		if err != nil {
			s.cfg.Log.Error("Dashboard refresh failed with no cached fallback",
				"business_id", businessID,
				"error", err,
			)
		}
	}()

	metrics, err = s.refresh(ctx, businessID)
	return metrics, err
}

func (s *dashboardService) refresh(ctx context.Context, businessID string) (*Metrics, error) {
	now := s.now().UTC()

	bookings, err := s.portal.FetchBookingRequests(ctx, businessID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.docs.FindPaidInvoicesSince(ctx, businessID, now.AddDate(-1, 0, 0))
	if err != nil {
		return nil, apperrors.Internal("Failed to load paid invoices", err)
	}

	upcoming, err := s.jobs.CountUpcoming(ctx, businessID, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to count upcoming jobs", err)
	}

	snapshot := engine.BuildSnapshot(engine.Input{
		BookingRequests: bookings,
		Documents:       invoices,
		BusinessID:      businessID,
		Range:           engine.RangeMonth,
		Now:             now,
	})

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	return &Metrics{
		BusinessID:         businessID,
		Snapshot:           snapshot,
		WeeklyRequestCount: weeklyRequestCount(bookings, now),
		WeekRevenueCents:   paidRevenueCents(bookings, invoices, now.AddDate(0, 0, -7), now),
		MonthRevenueCents:  paidRevenueCents(bookings, invoices, monthStart, now),
		UpcomingJobsCount:  upcoming,
		FetchedAt:          now,
	}, nil
}

func (s *dashboardService) Snapshot(ctx context.Context, businessID string, tr engine.TimeRange) (*engine.Snapshot, error) {
	now := s.now().UTC()

	bookings, err := s.portal.FetchBookingRequests(ctx, businessID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.docs.FindPaidInvoicesSince(ctx, businessID, now.AddDate(0, 0, -2*tr.Days()))
	if err != nil {
		return nil, apperrors.Internal("Failed to load paid invoices", err)
	}

	snapshot := engine.BuildSnapshot(engine.Input{
		BookingRequests: bookings,
		Documents:       invoices,
		BusinessID:      businessID,
		Range:           tr,
		Now:             now,
	})
	return &snapshot, nil
}

// weeklyRequestCount counts bookings in the trailing seven days regardless of
// status.
func weeklyRequestCount(bookings []*model.BookingRequest, now time.Time) int {
	weekAgo := now.AddDate(0, 0, -7)
	count := 0
	for _, r := range bookings {
		date := engine.ResolveBookingDate(r)
		if !date.Before(weekAgo) && !date.After(now) {
			count++
		}
	}
	return count
}

// paidRevenueCents sums paid deposits and paid invoices inside [from, now].
// The weekly card uses a trailing seven-day window; the monthly card uses the
// calendar month so it mirrors what the owner will see on their statement.
func paidRevenueCents(bookings []*model.BookingRequest, invoices []*model.Document, from, now time.Time) int64 {
	var sum int64
	for _, r := range bookings {
		if !r.DepositPaid() || r.DepositPaidAtMs <= 0 {
			continue
		}
		paidAt := engine.EpochToTime(r.DepositPaidAtMs)
		if !paidAt.Before(from) && !paidAt.After(now) {
			sum += r.DepositAmountCents
		}
	}
	for _, d := range invoices {
		if d.Type != model.DocumentTypeInvoice || !d.Paid {
			continue
		}
		paidAt := d.PaidDate()
		if !paidAt.Before(from) && !paidAt.After(now) {
			sum += d.TotalCents()
		}
	}
	return max(0, sum)
}
