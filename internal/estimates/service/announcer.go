package service

import (
	"context"

	"bizpulse/pkg/kafka"
	"bizpulse/pkg/model"
)

// KafkaAnnouncer publishes applied decisions on the estimate-decisions topic,
// keyed by estimate so decisions for one estimate stay ordered.
type KafkaAnnouncer struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaAnnouncer(producer *kafka.Producer, source string) *KafkaAnnouncer {
	return &KafkaAnnouncer{
		producer: producer,
		source:   source,
	}
}

func (a *KafkaAnnouncer) Announce(ctx context.Context, record *model.DecisionRecord) error {
	msg := kafka.NewMessage().
		WithKey(record.EstimateID).
		WithValue(record).
		WithEventType(kafka.EventTypeEstimateDecision).
		WithSource(a.source).
		WithSchemaVersion("1").
		Build()

	return a.producer.Publish(ctx, msg)
}
