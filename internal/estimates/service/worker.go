package service

import (
	"context"
	"time"

	"bizpulse/pkg/logger"
)

// SyncWorker runs reconciliation passes on a fixed interval until cancelled.
// One pass fires immediately on startup so a restarted service does not wait
// a full interval to catch up.
type SyncWorker struct {
	svc      SyncService
	interval time.Duration
	log      *logger.Logger
}

func NewSyncWorker(svc SyncService, interval time.Duration, log *logger.Logger) *SyncWorker {
	return &SyncWorker{
		svc:      svc,
		interval: interval,
		log:      log.Component("sync-worker"),
	}
}

func (w *SyncWorker) Name() string {
	return "estimate-sync"
}

func (w *SyncWorker) Run(ctx context.Context) error {
	w.log.Info("Sync worker started", "interval", w.interval)

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Sync worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	if _, err := w.svc.Sync(ctx); err != nil {
		w.log.Error("Sync pass failed", "error", err)
	}
}
