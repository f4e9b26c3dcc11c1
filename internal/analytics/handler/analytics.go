package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"bizpulse/internal/analytics/engine"
	"bizpulse/internal/dashboard/service"
	httputil "bizpulse/pkg/http"
	"bizpulse/pkg/logger"
)

type AnalyticsHandler struct {
	service service.DashboardService
	log     *logger.Logger
}

func NewAnalyticsHandler(service service.DashboardService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		log:     log,
	}
}

// Snapshot serves the analytics screen: counts, revenue, trend, funnel and
// top services for the requested range (default 30d).
func (h *AnalyticsHandler) Snapshot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	businessID := ps.ByName("business_id")

	tr, err := engine.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: err.Error(),
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Snapshot", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	snapshot, err := h.service.Snapshot(r.Context(), businessID, tr)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Snapshot", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, snapshot); err != nil {
		h.log.Error("failed to write success response", "handler", "Snapshot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AnalyticsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/businesses/:business_id/analytics", h.Snapshot)
}
