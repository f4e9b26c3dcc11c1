package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"bizpulse/pkg/model"
	"bizpulse/pkg/sanitizer"
)

const (
	topServicesLimit    = 5
	recentActivityLimit = 8
	unspecifiedService  = "Unspecified"
)

// Input is everything a snapshot computation needs. BuildSnapshot never
// reaches outside of it; identical inputs (including Now) produce identical
// snapshots.
type Input struct {
	BookingRequests []*model.BookingRequest
	Documents       []*model.Document
	BusinessID      string
	Range           TimeRange
	Now             time.Time
}

type TrendBucket struct {
	Start    time.Time `json:"start"`
	Total    int       `json:"total"`
	Approved int       `json:"approved"`
}

type FunnelStage struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Ratio float64 `json:"ratio"`
}

type ServiceCount struct {
	Service string `json:"service"`
	Count   int    `json:"count"`
}

// Delta holds literal current-minus-previous differences of the headline
// metrics. Absent (nil) when the period has no width.
type Delta struct {
	TotalRequests           int     `json:"total_requests"`
	ApprovedCount           int     `json:"approved_count"`
	DepositsPaidCount       int     `json:"deposits_paid_count"`
	DepositRevenueCents     int64   `json:"deposit_revenue_cents"`
	PaidInvoiceRevenueCents int64   `json:"paid_invoice_revenue_cents"`
	ConversionRate          float64 `json:"conversion_rate"`
}

type Snapshot struct {
	TotalRequests         int `json:"total_requests"`
	PendingCount          int `json:"pending_count"`
	ApprovedCount         int `json:"approved_count"`
	DeclinedCount         int `json:"declined_count"`
	DepositRequestedCount int `json:"deposit_requested_count"`
	DepositsPaidCount     int `json:"deposits_paid_count"`

	DepositRevenueCents     int64 `json:"deposit_revenue_cents"`
	PaidInvoiceRevenueCents int64 `json:"paid_invoice_revenue_cents"`
	TotalRevenueCents       int64 `json:"total_revenue_cents"`

	ConversionRate        float64 `json:"conversion_rate"`
	DepositConversionRate float64 `json:"deposit_conversion_rate"`

	Trend          []TrendBucket          `json:"trend"`
	Funnel         []FunnelStage          `json:"funnel"`
	TopServices    []ServiceCount         `json:"top_services"`
	RecentActivity []*model.BookingRequest `json:"recent_activity"`

	Delta *Delta `json:"delta,omitempty"`
}

// BuildSnapshot reduces booking requests and documents into one dashboard
// snapshot for a business and time range. Pure: no side effects, no clock
// reads, no error paths for bad data (bad records are excluded, ratios with
// zero denominators are zero, revenue clamps at zero).
func BuildSnapshot(in Input) Snapshot {
	periodStart := in.Range.PeriodStart(in.Now)

	businessUUID, ok := parseBusinessID(in.BusinessID)
	if !ok {
		// Unusable business ID matches nothing; an empty snapshot still has
		// a well-formed trend and funnel.
		return buildFromWindow(nil, nil, in.Range, periodStart, in.Now)
	}

	bookings := filterBookings(in.BookingRequests, businessUUID, periodStart, in.Now, true)
	invoices := filterPaidInvoices(in.Documents, businessUUID, periodStart, in.Now, true)

	snap := buildFromWindow(bookings, invoices, in.Range, periodStart, in.Now)
	snap.Delta = buildDelta(in, businessUUID, periodStart)
	return snap
}

type resolvedBooking struct {
	request *model.BookingRequest
	date    time.Time
}

func parseBusinessID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

func sameBusiness(raw string, target uuid.UUID) bool {
	id, err := uuid.Parse(raw)
	if err != nil {
		// Records with a broken owner reference are dropped, not reported
		return false
	}
	return id == target
}

func inWindow(t, from, to time.Time, inclusiveEnd bool) bool {
	if t.Before(from) {
		return false
	}
	if inclusiveEnd {
		return !t.After(to)
	}
	return t.Before(to)
}

func filterBookings(requests []*model.BookingRequest, business uuid.UUID, from, to time.Time, inclusiveEnd bool) []resolvedBooking {
	var out []resolvedBooking
	for _, r := range requests {
		if !sameBusiness(r.BusinessID, business) {
			continue
		}
		date := ResolveBookingDate(r)
		if !inWindow(date, from, to, inclusiveEnd) {
			continue
		}
		out = append(out, resolvedBooking{request: r, date: date})
	}
	return out
}

func filterPaidInvoices(docs []*model.Document, business uuid.UUID, from, to time.Time, inclusiveEnd bool) []*model.Document {
	var out []*model.Document
	for _, d := range docs {
		if d.Type != model.DocumentTypeInvoice || !d.Paid {
			continue
		}
		if d.SourceBookingRequestID == "" {
			continue
		}
		if !sameBusiness(d.BusinessID, business) {
			continue
		}
		if !inWindow(d.PaidDate(), from, to, inclusiveEnd) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func buildFromWindow(bookings []resolvedBooking, invoices []*model.Document, tr TimeRange, periodStart, now time.Time) Snapshot {
	snap := Snapshot{}

	for _, b := range bookings {
		snap.TotalRequests++
		switch b.request.Status {
		case model.RequestStatusPending:
			snap.PendingCount++
		case model.RequestStatusApproved:
			snap.ApprovedCount++
		case model.RequestStatusDeclined:
			snap.DeclinedCount++
		}
		if b.request.DepositRequested() {
			snap.DepositRequestedCount++
		}
		if b.request.DepositPaid() {
			snap.DepositsPaidCount++
		}
	}

	snap.DepositRevenueCents = depositRevenue(bookings)
	snap.PaidInvoiceRevenueCents = paidInvoiceRevenue(invoices)
	snap.TotalRevenueCents = snap.DepositRevenueCents + snap.PaidInvoiceRevenueCents

	snap.ConversionRate = ratio(snap.ApprovedCount, snap.TotalRequests)
	snap.DepositConversionRate = ratio(snap.DepositsPaidCount, snap.DepositRequestedCount)

	snap.Trend = buildTrend(bookings, tr, periodStart, now)
	snap.Funnel = buildFunnel(snap)
	snap.TopServices = buildTopServices(bookings)
	snap.RecentActivity = buildRecentActivity(bookings)

	return snap
}

func depositRevenue(bookings []resolvedBooking) int64 {
	var sum int64
	for _, b := range bookings {
		if b.request.DepositPaid() {
			sum += b.request.DepositAmountCents
		}
	}
	return max(0, sum)
}

func paidInvoiceRevenue(invoices []*model.Document) int64 {
	var sum int64
	for _, d := range invoices {
		sum += d.TotalCents()
	}
	return max(0, sum)
}

// ratio never faults: an empty denominator yields zero, not an error.
func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

func bucketStart(t time.Time, tr TimeRange) time.Time {
	if tr.UsesWeeklyBuckets() {
		return weekStart(t)
	}
	return dayStart(t)
}

func bucketStep(t time.Time, tr TimeRange) time.Time {
	if tr.UsesWeeklyBuckets() {
		return t.AddDate(0, 0, 7)
	}
	return t.AddDate(0, 0, 1)
}

// buildTrend walks every bucket between periodStart and now inclusive, so the
// series has no gaps even for buckets with zero bookings.
func buildTrend(bookings []resolvedBooking, tr TimeRange, periodStart, now time.Time) []TrendBucket {
	type counts struct {
		total    int
		approved int
	}
	byBucket := make(map[time.Time]counts)
	for _, b := range bookings {
		key := bucketStart(b.date, tr)
		c := byBucket[key]
		c.total++
		if b.request.Status == model.RequestStatusApproved {
			c.approved++
		}
		byBucket[key] = c
	}

	var trend []TrendBucket
	for cur := bucketStart(periodStart, tr); !cur.After(now); cur = bucketStep(cur, tr) {
		c := byBucket[cur]
		trend = append(trend, TrendBucket{
			Start:    cur,
			Total:    c.total,
			Approved: c.approved,
		})
	}
	return trend
}

func buildFunnel(snap Snapshot) []FunnelStage {
	return []FunnelStage{
		{Label: "Requests", Count: snap.TotalRequests, Ratio: ratio(snap.TotalRequests, snap.TotalRequests)},
		{Label: "Deposit Requested", Count: snap.DepositRequestedCount, Ratio: ratio(snap.DepositRequestedCount, snap.TotalRequests)},
		{Label: "Deposits Paid", Count: snap.DepositsPaidCount, Ratio: ratio(snap.DepositsPaidCount, snap.TotalRequests)},
		{Label: "Approved", Count: snap.ApprovedCount, Ratio: ratio(snap.ApprovedCount, snap.TotalRequests)},
	}
}

func buildTopServices(bookings []resolvedBooking) []ServiceCount {
	countsByService := make(map[string]int)
	for _, b := range bookings {
		service := sanitizer.NormalizeServiceType(b.request.ServiceType)
		if service == "" {
			service = unspecifiedService
		}
		countsByService[service]++
	}

	services := make([]ServiceCount, 0, len(countsByService))
	for service, count := range countsByService {
		services = append(services, ServiceCount{Service: service, Count: count})
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Count != services[j].Count {
			return services[i].Count > services[j].Count
		}
		return services[i].Service < services[j].Service
	})

	if len(services) > topServicesLimit {
		services = services[:topServicesLimit]
	}
	return services
}

func buildRecentActivity(bookings []resolvedBooking) []*model.BookingRequest {
	sorted := make([]resolvedBooking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].date.After(sorted[j].date)
	})

	limit := min(len(sorted), recentActivityLimit)
	recent := make([]*model.BookingRequest, 0, limit)
	for _, b := range sorted[:limit] {
		recent = append(recent, b.request)
	}
	return recent
}

// buildDelta compares the current window against the immediately preceding
// one of equal width. The previous window is half-open: [start-interval, start).
func buildDelta(in Input, business uuid.UUID, periodStart time.Time) *Delta {
	interval := in.Now.Sub(periodStart)
	if interval <= 0 {
		return nil
	}
	prevStart := periodStart.Add(-interval)

	prevBookings := filterBookings(in.BookingRequests, business, prevStart, periodStart, false)
	prevInvoices := filterPaidInvoices(in.Documents, business, prevStart, periodStart, false)

	curBookings := filterBookings(in.BookingRequests, business, periodStart, in.Now, true)
	curInvoices := filterPaidInvoices(in.Documents, business, periodStart, in.Now, true)

	cur := headlineMetrics(curBookings, curInvoices)
	prev := headlineMetrics(prevBookings, prevInvoices)

	return &Delta{
		TotalRequests:           cur.TotalRequests - prev.TotalRequests,
		ApprovedCount:           cur.ApprovedCount - prev.ApprovedCount,
		DepositsPaidCount:       cur.DepositsPaidCount - prev.DepositsPaidCount,
		DepositRevenueCents:     cur.DepositRevenueCents - prev.DepositRevenueCents,
		PaidInvoiceRevenueCents: cur.PaidInvoiceRevenueCents - prev.PaidInvoiceRevenueCents,
		ConversionRate:          cur.ConversionRate - prev.ConversionRate,
	}
}

func headlineMetrics(bookings []resolvedBooking, invoices []*model.Document) Delta {
	var m Delta
	for _, b := range bookings {
		m.TotalRequests++
		if b.request.Status == model.RequestStatusApproved {
			m.ApprovedCount++
		}
		if b.request.DepositPaid() {
			m.DepositsPaidCount++
		}
	}
	m.DepositRevenueCents = depositRevenue(bookings)
	m.PaidInvoiceRevenueCents = paidInvoiceRevenue(invoices)
	m.ConversionRate = ratio(m.ApprovedCount, m.TotalRequests)
	return m
}
