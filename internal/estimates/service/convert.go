package service

import (
	"context"
	"fmt"
	"time"

	"bizpulse/pkg/model"
)

// convertAcceptedEstimate drafts an invoice mirroring the accepted estimate.
// Line items, tax and discount carry over; the invoice starts unpaid and
// hidden from the portal until the owner reviews and sends it.
func (s *syncService) convertAcceptedEstimate(ctx context.Context, estimate *model.Document) error {
	invoice := &model.Document{
		BusinessID:             estimate.BusinessID,
		ClientID:               estimate.ClientID,
		JobID:                  estimate.JobID,
		Type:                   model.DocumentTypeInvoice,
		Number:                 invoiceNumberFor(estimate),
		Items:                  append([]model.LineItem(nil), estimate.Items...),
		TaxRate:                estimate.TaxRate,
		Discount:               estimate.Discount,
		IssueDate:              time.Now().UTC(),
		SourceBookingRequestID: estimate.SourceBookingRequestID,
	}

	if err := s.docs.Create(ctx, invoice); err != nil {
		return err
	}

	s.cfg.Log.Info("Drafted invoice from accepted estimate",
		"estimate_id", estimate.ID,
		"invoice_id", invoice.ID,
		"business_id", estimate.BusinessID,
		"total_cents", invoice.TotalCents(),
	)
	return nil
}

func invoiceNumberFor(estimate *model.Document) string {
	if estimate.Number == "" {
		return ""
	}
	return fmt.Sprintf("INV-%s", estimate.Number)
}
