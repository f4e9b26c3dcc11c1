package model

import "time"

// Decision sources, recorded for audit only.
const (
	DecisionSourceDeepLink = "deeplink"
	DecisionSourcePortal   = "portal"
	DecisionSourceEvent    = "event"
)

// DecisionRecord is one entry of the append-only decision queue: an estimate
// status decision that arrived out-of-band (deep link, portal event) and still
// has to be replayed into the document store. Entries are removed once applied.
type DecisionRecord struct {
	ID         string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	EstimateID string         `json:"estimate_id" bson:"estimate_id" validate:"required,mongodb"`
	BusinessID string         `json:"business_id" bson:"business_id" validate:"required,uuid"`
	Status     EstimateStatus `json:"status" bson:"status" validate:"required,oneof=accepted declined"`
	DecidedAt  time.Time      `json:"decided_at" bson:"decided_at" validate:"required"`
	Source     string         `json:"source" bson:"source" validate:"required,oneof=deeplink portal event"`
	RecordedAt time.Time      `json:"recorded_at" bson:"recorded_at"`
}
