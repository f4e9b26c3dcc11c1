package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"bizpulse/internal/dashboard/service"
	httputil "bizpulse/pkg/http"
	"bizpulse/pkg/logger"
)

type DashboardHandler struct {
	service service.DashboardService
	log     *logger.Logger
}

func NewDashboardHandler(service service.DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		log:     log,
	}
}

// Metrics serves the dashboard for a business. refresh=true bypasses the
// cache, matching pull-to-refresh in the app.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	businessID := ps.ByName("business_id")
	force := r.URL.Query().Get("refresh") == "true"

	metrics, err := h.service.Metrics(r.Context(), businessID, force)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Metrics", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, metrics); err != nil {
		h.log.Error("failed to write success response", "handler", "Metrics", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DashboardHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/businesses/:business_id/dashboard", h.Metrics)
}
