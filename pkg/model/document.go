package model

import (
	"math"
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentTypeInvoice  DocumentType = "invoice"
	DocumentTypeEstimate DocumentType = "estimate"
)

type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusAccepted EstimateStatus = "accepted"
	EstimateStatusDeclined EstimateStatus = "declined"
	EstimateStatusUnknown  EstimateStatus = "unknown"
)

func ParseEstimateStatus(raw string) EstimateStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "draft":
		return EstimateStatusDraft
	case "sent":
		return EstimateStatusSent
	case "accepted":
		return EstimateStatusAccepted
	case "declined":
		return EstimateStatusDeclined
	default:
		return EstimateStatusUnknown
	}
}

type LineItem struct {
	Description string  `json:"description" bson:"description" validate:"required,max=200"`
	Quantity    float64 `json:"quantity" bson:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" bson:"unit_price" validate:"gte=0"`
}

// Document is a monetary document owned by a business: an invoice or an
// estimate, discriminated by Type. Estimates additionally carry a portal
// decision status.
type Document struct {
	ID                     string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BusinessID             string         `json:"business_id" bson:"business_id" validate:"required,uuid"`
	ClientID               string         `json:"client_id,omitempty" bson:"client_id,omitempty"`
	JobID                  string         `json:"job_id,omitempty" bson:"job_id,omitempty"`
	Type                   DocumentType   `json:"document_type" bson:"document_type" validate:"required,oneof=invoice estimate"`
	Number                 string         `json:"number,omitempty" bson:"number,omitempty"`
	Items                  []LineItem     `json:"items" bson:"items" validate:"dive"`
	TaxRate                float64        `json:"tax_rate" bson:"tax_rate" validate:"gte=0,lte=100"`
	Discount               float64        `json:"discount" bson:"discount" validate:"gte=0"`
	Paid                   bool           `json:"paid" bson:"paid"`
	PaidAt                 *time.Time     `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	IssueDate              time.Time      `json:"issue_date" bson:"issue_date"`
	EstimateStatus         EstimateStatus `json:"estimate_status,omitempty" bson:"estimate_status,omitempty"`
	EstimateAcceptedAt     *time.Time     `json:"estimate_accepted_at,omitempty" bson:"estimate_accepted_at,omitempty"`
	SourceBookingRequestID string         `json:"source_booking_request_id,omitempty" bson:"source_booking_request_id,omitempty"`
	ClientPortalEnabled    bool           `json:"client_portal_enabled" bson:"client_portal_enabled"`
	CreatedAt              time.Time      `json:"created_at" bson:"created_at"`
}

// Subtotal sums line items before discount and tax.
func (d *Document) Subtotal() float64 {
	var sum float64
	for _, item := range d.Items {
		sum += item.Quantity * item.UnitPrice
	}
	return sum
}

// Total applies the discount, then the tax rate. A discount larger than the
// subtotal clamps to zero rather than going negative.
func (d *Document) Total() float64 {
	discounted := d.Subtotal() - d.Discount
	if discounted < 0 {
		discounted = 0
	}
	return discounted * (1 + d.TaxRate/100)
}

// TotalCents is the document total in integer cents.
func (d *Document) TotalCents() int64 {
	return int64(math.Round(d.Total() * 100))
}

// PaidDate resolves when the document was paid. Older records have no
// explicit paid timestamp; the issue date stands in for them.
func (d *Document) PaidDate() time.Time {
	if d.PaidAt != nil {
		return *d.PaidAt
	}
	return d.IssueDate
}
