package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "bizpulse/pkg/errors"
	"bizpulse/pkg/logger"
	"bizpulse/pkg/model"
)

// PortalAPI is the remote client-portal backend. It owns booking requests and
// the authoritative estimate decision state; this service only reads from it.
type PortalAPI interface {
	FetchBookingRequests(ctx context.Context, businessID string) ([]*model.BookingRequest, error)
	FetchEstimateStatus(ctx context.Context, businessID, estimateID string) (*EstimateDecision, error)
}

type EstimateDecision struct {
	Status    model.EstimateStatus
	DecidedAt *time.Time
}

type PortalClient struct {
	httpClient *HttpClient
	validate   *validator.Validate
	log        *logger.Logger
}

func NewPortalClient(baseURL, adminKey string, timeout time.Duration, log *logger.Logger) *PortalClient {
	return &PortalClient{
		httpClient: NewHttpClient(baseURL, timeout).WithHeader("X-Admin-Key", adminKey),
		validate:   validator.New(),
		log:        log,
	}
}

// bookingRequestDTO mirrors the portal wire format. Statuses arrive as free
// strings and timestamps as epoch milliseconds; normalization happens here,
// once, before anything downstream sees the record.
type bookingRequestDTO struct {
	ID                 string `json:"id" validate:"required"`
	BusinessID         string `json:"businessId" validate:"required"`
	ClientName         string `json:"clientName"`
	ClientEmail        string `json:"clientEmail"`
	ClientPhone        string `json:"clientPhone"`
	RequestedStart     string `json:"requestedStart"`
	RequestedEnd       string `json:"requestedEnd"`
	ServiceType        string `json:"serviceType"`
	Notes              string `json:"notes"`
	Status             string `json:"status"`
	DepositAmountCents *int64 `json:"depositAmountCents"`
	DepositInvoiceID   string `json:"depositInvoiceId"`
	DepositPaidAtMs    *int64 `json:"depositPaidAtMs"`
	FinalInvoiceID     string `json:"finalInvoiceId"`
	CreatedAtMs        *int64 `json:"createdAtMs"`
}

type estimateStatusDTO struct {
	Status    string     `json:"status" validate:"required"`
	DecidedAt *time.Time `json:"decidedAt"`
}

func (c *PortalClient) FetchBookingRequests(ctx context.Context, businessID string) ([]*model.BookingRequest, error) {
	path := "/api/v1/businesses/" + url.PathEscape(businessID) + "/booking-requests"

	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, apperrors.Upstream("portal", err)
	}
	if !resp.IsSuccess() {
		return nil, apperrors.Upstream("portal", fmt.Errorf("unexpected status %d fetching booking requests", resp.StatusCode))
	}

	var dtos []bookingRequestDTO
	if err := resp.DecodeJSON(&dtos); err != nil {
		return nil, apperrors.Upstream("portal", fmt.Errorf("failed to decode booking requests: %w", err))
	}

	requests := make([]*model.BookingRequest, 0, len(dtos))
	for i := range dtos {
		dto := &dtos[i]
		if err := c.validate.Struct(dto); err != nil {
			// Malformed records are dropped, never fatal
			c.log.Debug("Skipping malformed booking request", "id", dto.ID, "error", err)
			continue
		}
		requests = append(requests, dto.toModel())
	}

	c.log.Debug("Fetched booking requests",
		"business_id", businessID,
		"received", len(dtos),
		"accepted", len(requests),
	)
	return requests, nil
}

func (c *PortalClient) FetchEstimateStatus(ctx context.Context, businessID, estimateID string) (*EstimateDecision, error) {
	path := "/api/v1/businesses/" + url.PathEscape(businessID) + "/estimates/" + url.PathEscape(estimateID) + "/status"

	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, apperrors.Upstream("portal", err)
	}
	if !resp.IsSuccess() {
		return nil, apperrors.Upstream("portal", fmt.Errorf("unexpected status %d fetching estimate status", resp.StatusCode))
	}

	var dto estimateStatusDTO
	if err := resp.DecodeJSON(&dto); err != nil {
		return nil, apperrors.Upstream("portal", fmt.Errorf("failed to decode estimate status: %w", err))
	}

	return &EstimateDecision{
		Status:    model.ParseEstimateStatus(dto.Status),
		DecidedAt: dto.DecidedAt,
	}, nil
}

func (dto *bookingRequestDTO) toModel() *model.BookingRequest {
	req := &model.BookingRequest{
		ID:               dto.ID,
		BusinessID:       dto.BusinessID,
		ClientName:       dto.ClientName,
		ClientEmail:      dto.ClientEmail,
		ClientPhone:      dto.ClientPhone,
		RequestedStart:   dto.RequestedStart,
		RequestedEnd:     dto.RequestedEnd,
		ServiceType:      dto.ServiceType,
		Notes:            dto.Notes,
		Status:           model.ParseRequestStatus(dto.Status),
		DepositInvoiceID: dto.DepositInvoiceID,
		FinalInvoiceID:   dto.FinalInvoiceID,
	}
	if dto.DepositAmountCents != nil {
		req.DepositAmountCents = *dto.DepositAmountCents
	}
	if dto.DepositPaidAtMs != nil {
		req.DepositPaidAtMs = *dto.DepositPaidAtMs
	}
	if dto.CreatedAtMs != nil {
		req.CreatedAtMs = *dto.CreatedAtMs
	}
	return req
}
