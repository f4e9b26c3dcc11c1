package model

import "strings"

// RequestStatus is the closed set of booking request states. Portal payloads
// carry free-form strings; ParseRequestStatus normalizes them exactly once at
// the boundary.
type RequestStatus string

const (
	RequestStatusPending          RequestStatus = "pending"
	RequestStatusApproved         RequestStatus = "approved"
	RequestStatusDeclined         RequestStatus = "declined"
	RequestStatusDepositRequested RequestStatus = "deposit_requested"
	RequestStatusDepositPaid      RequestStatus = "deposit_paid"
	RequestStatusUnknown          RequestStatus = "unknown"
)

func ParseRequestStatus(raw string) RequestStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return RequestStatusPending
	case "approved":
		return RequestStatusApproved
	case "declined":
		return RequestStatusDeclined
	case "deposit_requested":
		return RequestStatusDepositRequested
	case "deposit_paid":
		return RequestStatusDepositPaid
	default:
		return RequestStatusUnknown
	}
}

// BookingRequest is a customer-submitted inquiry owned by the portal backend.
// The service reads it over HTTP; it is never persisted locally.
type BookingRequest struct {
	ID                 string        `json:"id"`
	BusinessID         string        `json:"business_id"`
	ClientName         string        `json:"client_name,omitempty"`
	ClientEmail        string        `json:"client_email,omitempty"`
	ClientPhone        string        `json:"client_phone,omitempty"`
	RequestedStart     string        `json:"requested_start,omitempty"`
	RequestedEnd       string        `json:"requested_end,omitempty"`
	ServiceType        string        `json:"service_type,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Status             RequestStatus `json:"status"`
	DepositAmountCents int64         `json:"deposit_amount_cents,omitempty"`
	DepositInvoiceID   string        `json:"deposit_invoice_id,omitempty"`
	DepositPaidAtMs    int64         `json:"deposit_paid_at_ms,omitempty"`
	FinalInvoiceID     string        `json:"final_invoice_id,omitempty"`
	CreatedAtMs        int64         `json:"created_at_ms,omitempty"`
}

// DepositRequested reports whether a deposit was asked for. The portal exposes
// three independent hints and any one of them suffices: an explicit status, a
// linked deposit invoice, or a positive deposit amount.
func (r *BookingRequest) DepositRequested() bool {
	if r.Status == RequestStatusDepositRequested || r.Status == RequestStatusDepositPaid {
		return true
	}
	if strings.TrimSpace(r.DepositInvoiceID) != "" {
		return true
	}
	return r.DepositAmountCents > 0
}

// DepositPaid is true when a paid timestamp exists or the status says so.
func (r *BookingRequest) DepositPaid() bool {
	return r.DepositPaidAtMs > 0 || r.Status == RequestStatusDepositPaid
}
