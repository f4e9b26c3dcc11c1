package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	decisionrepo "bizpulse/internal/decisions/repository"
	"bizpulse/internal/documents/repository"
	"bizpulse/pkg/client"
	"bizpulse/pkg/config"
	"bizpulse/pkg/model"
)

// SyncResult summarizes a single reconciliation pass.
type SyncResult struct {
	Checked           int       `json:"checked"`
	Updated           int       `json:"updated"`
	Failed            int       `json:"failed"`
	ReplayedDecisions int       `json:"replayed_decisions"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// DecisionAnnouncer publishes an applied decision to interested parties.
// Optional; sync proceeds identically without one.
type DecisionAnnouncer interface {
	Announce(ctx context.Context, record *model.DecisionRecord) error
}

type SyncService interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

type syncService struct {
	docs      repository.DocumentRepository
	queue     decisionrepo.DecisionQueue
	portal    client.PortalAPI
	announcer DecisionAnnouncer
	cfg       *config.Config
}

func NewSyncService(
	docs repository.DocumentRepository,
	queue decisionrepo.DecisionQueue,
	portal client.PortalAPI,
	announcer DecisionAnnouncer,
	cfg *config.Config,
) SyncService {
	return &syncService{
		docs:      docs,
		queue:     queue,
		portal:    portal,
		announcer: announcer,
		cfg:       cfg,
	}
}

// Sync reconciles pending portal estimates against the portal backend.
// Queued out-of-band decisions are folded in first so a deep-link decision is
// never overwritten by a staler portal answer, then each pending estimate is
// checked sequentially, then decisions that arrived mid-pass are folded in.
//
// The whole pass is best-effort: a failure on one estimate is counted and
// skipped, never aborting the rest of the batch.
func (s *syncService) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{StartedAt: time.Now().UTC()}

	result.ReplayedDecisions += s.replayQueuedDecisions(ctx)

	pending, err := s.docs.FindPendingPortalEstimates(ctx, s.cfg.SyncBatchLimit)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		return result, err
	}

	for _, estimate := range pending {
		if ctx.Err() != nil {
			break
		}
		result.Checked++
		updated, err := s.reconcileEstimate(ctx, estimate)
		if err != nil {
			result.Failed++
			s.cfg.Log.Warn("Skipping estimate after portal check failed",
				"estimate_id", estimate.ID,
				"business_id", estimate.BusinessID,
				"error", err,
			)
			continue
		}
		if updated {
			result.Updated++
		}
	}

	result.ReplayedDecisions += s.replayQueuedDecisions(ctx)

	result.FinishedAt = time.Now().UTC()
	s.cfg.Log.Info("Estimate sync pass finished",
		"checked", result.Checked,
		"updated", result.Updated,
		"failed", result.Failed,
		"replayed_decisions", result.ReplayedDecisions,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)
	return result, nil
}

// reconcileEstimate asks the portal for the current decision on one estimate
// and applies it locally when the client has decided.
func (s *syncService) reconcileEstimate(ctx context.Context, estimate *model.Document) (bool, error) {
	decision, err := s.portal.FetchEstimateStatus(ctx, estimate.BusinessID, estimate.ID)
	if err != nil {
		return false, err
	}

	if decision.Status != model.EstimateStatusAccepted && decision.Status != model.EstimateStatusDeclined {
		return false, nil
	}

	applied, err := s.docs.ApplyDecision(ctx, estimate.ID, decision.Status, decision.DecidedAt)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	s.cfg.Log.Info("Estimate decision applied from portal",
		"estimate_id", estimate.ID,
		"business_id", estimate.BusinessID,
		"status", decision.Status,
	)

	s.afterDecision(ctx, estimate, decision.Status)
	return true, nil
}

// afterDecision runs the follow-up work for a freshly applied decision.
// Failures here never undo the decision itself; they are logged and the pass
// moves on.
func (s *syncService) afterDecision(ctx context.Context, estimate *model.Document, status model.EstimateStatus) {
	if status == model.EstimateStatusAccepted {
		if err := s.convertAcceptedEstimate(ctx, estimate); err != nil {
			s.cfg.Log.Error("Failed to draft invoice for accepted estimate",
				"estimate_id", estimate.ID,
				"business_id", estimate.BusinessID,
				"error", err,
			)
		}
	}

	if s.announcer == nil {
		return
	}
	record := &model.DecisionRecord{
		EstimateID: estimate.ID,
		BusinessID: estimate.BusinessID,
		Status:     status,
		DecidedAt:  time.Now().UTC(),
		Source:     model.DecisionSourcePortal,
	}
	if err := s.announcer.Announce(ctx, record); err != nil {
		s.cfg.Log.Warn("Failed to announce estimate decision",
			"estimate_id", estimate.ID,
			"error", err,
		)
	}
}

// replayQueuedDecisions folds out-of-band decisions (deep links, portal
// events) into the document store and drains the queue. Each record is
// independent; one bad record never blocks the rest.
func (s *syncService) replayQueuedDecisions(ctx context.Context) int {
	records, err := s.queue.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to read decision queue", "error", err)
		return 0
	}

	replayed := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		if err := s.replayDecision(ctx, record); err != nil {
			s.cfg.Log.Warn("Leaving decision queued after replay failure",
				"decision_id", record.ID,
				"estimate_id", record.EstimateID,
				"error", err,
			)
			continue
		}
		replayed++
	}
	return replayed
}

func (s *syncService) replayDecision(ctx context.Context, record *model.DecisionRecord) error {
	decidedAt := record.DecidedAt
	var applied bool
	// Apply and dequeue together so a crash between the two cannot leave an
	// applied decision stuck in the queue.
	err := s.docs.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		applied, err = s.docs.ApplyDecision(sessCtx, record.EstimateID, record.Status, &decidedAt)
		if err != nil {
			return err
		}
		// Already-decided estimates drain from the queue too, the record is spent
		return s.queue.Remove(sessCtx, record.ID)
	})
	if err != nil {
		return err
	}

	if applied && record.Status == model.EstimateStatusAccepted {
		estimate, err := s.docs.FindByID(ctx, record.EstimateID)
		if err != nil {
			s.cfg.Log.Error("Decision applied but estimate unreadable for conversion",
				"estimate_id", record.EstimateID,
				"error", err,
			)
		} else if err := s.convertAcceptedEstimate(ctx, estimate); err != nil {
			s.cfg.Log.Error("Failed to draft invoice for accepted estimate",
				"estimate_id", record.EstimateID,
				"error", err,
			)
		}
	}
	return nil
}
