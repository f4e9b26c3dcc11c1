package consumer

import (
	"context"

	"bizpulse/pkg/kafka"
)

// Worker adapts a Kafka consumer to the application's background worker
// contract.
type Worker struct {
	consumer *kafka.Consumer
}

func NewWorker(consumer *kafka.Consumer) *Worker {
	return &Worker{consumer: consumer}
}

func (w *Worker) Name() string {
	return "decision-consumer"
}

func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Start(ctx)
}
