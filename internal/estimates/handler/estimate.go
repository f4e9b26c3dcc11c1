package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	decisionrepo "bizpulse/internal/decisions/repository"
	decisionvalidator "bizpulse/internal/decisions/validator"
	"bizpulse/internal/estimates/service"
	httputil "bizpulse/pkg/http"
	"bizpulse/pkg/logger"
	"bizpulse/pkg/model"
	"bizpulse/pkg/sealer"
)

type EstimateHandler struct {
	sync      service.SyncService
	queue     decisionrepo.DecisionQueue
	validator *decisionvalidator.DecisionValidator
	announcer service.DecisionAnnouncer
	log       *logger.Logger
}

func NewEstimateHandler(
	sync service.SyncService,
	queue decisionrepo.DecisionQueue,
	v *decisionvalidator.DecisionValidator,
	announcer service.DecisionAnnouncer,
	log *logger.Logger,
) *EstimateHandler {
	return &EstimateHandler{
		sync:      sync,
		queue:     queue,
		validator: v,
		announcer: announcer,
		log:       log,
	}
}

type decisionLinkResponse struct {
	Token string `json:"token"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type decisionResponse struct {
	EstimateID string               `json:"estimate_id"`
	Status     model.EstimateStatus `json:"status"`
}

// DecisionLink mints an opaque token the app embeds in emails so a client can
// accept or decline without logging in.
func (h *EstimateHandler) DecisionLink(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	businessID := ps.ByName("business_id")
	estimateID := ps.ByName("estimate_id")

	token, err := sealer.CreateDecisionToken(businessID, estimateID)
	if err != nil {
		h.log.Error("Failed to create decision token",
			"business_id", businessID,
			"estimate_id", estimateID,
			"error", err,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error: "Failed to create decision link",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "DecisionLink", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, decisionLinkResponse{Token: token}); err != nil {
		h.log.Error("failed to write success response", "handler", "DecisionLink", "operation", "WriteSuccess", "error", err)
	}
}

// Decide records a decision arriving through a sealed deep-link token. The
// decision is queued durably first; folding it into the document store is the
// sync pass's job, so a portal outage can never lose a client's answer.
func (h *EstimateHandler) Decide(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	businessID, estimateID, err := sealer.ParseDecisionToken(ps.ByName("token"))
	if err != nil {
		h.log.Warn("Rejected decision with bad token", "error", err)
		if writeErr := httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
			Error: "Invalid or expired decision link",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Decide", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Decide", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	record := &model.DecisionRecord{
		EstimateID: estimateID,
		BusinessID: businessID,
		Status:     model.ParseEstimateStatus(req.Decision),
		DecidedAt:  time.Now().UTC(),
		Source:     model.DecisionSourceDeepLink,
	}

	if err := h.validator.Validate(record); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{
			Error: err.Error(),
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Decide", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.queue.Enqueue(r.Context(), record); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Decide", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if h.announcer != nil {
		if err := h.announcer.Announce(r.Context(), record); err != nil {
			// The queue already has it; the event bus catches up later
			h.log.Warn("Failed to announce deep-link decision",
				"estimate_id", estimateID,
				"error", err,
			)
		}
	}

	h.log.Info("Decision recorded from deep link",
		"estimate_id", estimateID,
		"business_id", businessID,
		"status", record.Status,
	)

	if err := httputil.WriteAccepted(w, decisionResponse{
		EstimateID: estimateID,
		Status:     record.Status,
	}); err != nil {
		h.log.Error("failed to write accepted response", "handler", "Decide", "operation", "WriteAccepted", "error", err)
	}
}

// TriggerSync runs one reconciliation pass on demand. The periodic worker
// covers steady state; this exists for support and for tests.
func (h *EstimateHandler) TriggerSync(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.sync.Sync(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "TriggerSync", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "TriggerSync", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EstimateHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/businesses/:business_id/estimates/:estimate_id/decision-link", h.DecisionLink)
	router.POST("/api/v1/estimate-decisions/:token", h.Decide)
	router.POST("/api/v1/sync", h.TriggerSync)
}
