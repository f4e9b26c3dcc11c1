package consumer

import (
	"context"
	"fmt"
	"time"

	decisionrepo "bizpulse/internal/decisions/repository"
	decisionvalidator "bizpulse/internal/decisions/validator"
	"bizpulse/pkg/errors"
	"bizpulse/pkg/kafka"
	"bizpulse/pkg/logger"
	"bizpulse/pkg/model"
)

// decisionEvent is the wire payload on the estimate-decisions topic. Other
// services publish it when a client decides an estimate outside this service,
// for example through the client portal UI.
type decisionEvent struct {
	EstimateID string    `json:"estimate_id"`
	BusinessID string    `json:"business_id"`
	Status     string    `json:"status"`
	DecidedAt  time.Time `json:"decided_at"`
}

type DecisionConsumer struct {
	queue     decisionrepo.DecisionQueue
	validator *decisionvalidator.DecisionValidator
	logger    *logger.Logger
}

func NewDecisionConsumer(queue decisionrepo.DecisionQueue, v *decisionvalidator.DecisionValidator, log *logger.Logger) *DecisionConsumer {
	return &DecisionConsumer{
		queue:     queue,
		validator: v,
		logger:    log.Component("decision-consumer"),
	}
}

// Handle enqueues a decision event for the next sync pass. Malformed events
// return a non-retryable error so the consumer routes them to the DLQ instead
// of spinning on them.
func (c *DecisionConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != kafka.EventTypeEstimateDecision {
		c.logger.Warn("Skipping message with unexpected event type",
			"event_type", eventType,
			"event_id", msg.GetEventID(),
		)
		return nil
	}

	var event decisionEvent
	if err := msg.DecodeValue(&event); err != nil {
		return errors.InvalidInput(fmt.Sprintf("undecodable decision event %s: %v", msg.GetEventID(), err))
	}

	status := model.ParseEstimateStatus(event.Status)
	record := &model.DecisionRecord{
		EstimateID: event.EstimateID,
		BusinessID: event.BusinessID,
		Status:     status,
		DecidedAt:  event.DecidedAt,
		Source:     model.DecisionSourceEvent,
	}

	if err := c.validator.Validate(record); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid decision event %s: %v", msg.GetEventID(), err))
	}

	if err := c.queue.Enqueue(ctx, record); err != nil {
		// Storage trouble is worth retrying, surface it as-is
		return err
	}

	c.logger.Info("Queued estimate decision from event",
		"event_id", msg.GetEventID(),
		"estimate_id", event.EstimateID,
		"status", status,
	)
	return nil
}
