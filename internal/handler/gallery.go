package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/response"
)

func (h *Handler) loadGallery(w http.ResponseWriter, r *http.Request) {
	if h.gallery == nil {
		writeError(w, r, domain.ErrCloudDisabled)
		return
	}
	gallery, err := h.gallery.Load(r.Context())
	if err != nil {
		writeUpstreamError(w, r, err, "The gallery could not be loaded.")
		return
	}
	response.OK(w, gallery)
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cloud    bool   `json:"cloud"`
	Payments bool   `json:"payments"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:   "ok",
		Database: "ok",
		Cloud:    h.gallery != nil,
		Payments: h.payments != nil,
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			slog.Error("health check: database unreachable", "error", err)
			status.Status = "degraded"
			status.Database = "unreachable"
			response.JSON(w, http.StatusServiceUnavailable, response.Success(status))
			return
		}
	}
	response.OK(w, status)
}
