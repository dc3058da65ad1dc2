package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/feed"
	"github.com/opensource-telco/kestrel/internal/pipeline"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	pipeline *pipeline.Pipeline
	hub      *feed.Hub
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(p *pipeline.Pipeline, hub *feed.Hub, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		pipeline: p,
		hub:      hub,
		repo:     repo,
		cache:    cache,
		bus:      bus,
		version:  version,
	}
}

// IngestCDR handles POST /api/cdr: validates the record and runs it
// through the detection pipeline synchronously.
func (h *Handler) IngestCDR(w http.ResponseWriter, r *http.Request) {
	var req domain.CDRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	cdr, err := req.ToCDR()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, err := h.pipeline.Process(r.Context(), cdr)
	if err != nil {
		slog.Error("CDR processing failed", "caller", cdr.CallerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "processing failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListCampaigns handles GET /api/campaigns.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns := h.pipeline.ActiveCampaigns()
	writeJSON(w, http.StatusOK, map[string]any{
		"campaigns": campaigns,
		"count":     len(campaigns),
	})
}

// GetCampaign handles GET /api/campaigns/{id}.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, ok := h.pipeline.Campaign(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "campaign not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.GlobalStats())
}

// ListAlerts handles GET /api/alerts with optional severity, status,
// and limit query parameters.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	status := r.URL.Query().Get("status")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	alerts := h.pipeline.Alerts(severity, status, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert handles POST /api/alerts/{id}/resolve.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alert id must be an integer",
		})
		return
	}

	h.pipeline.ResolveAlert(r.Context(), id)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": domain.AlertStatusResolved,
	})
}

// CheckNumberRequest is the request body for POST /api/check-number.
type CheckNumberRequest struct {
	Number string `json:"number"`
}

// CheckNumber handles POST /api/check-number: returns the full risk
// profile for a phone number.
func (h *Handler) CheckNumber(w http.ResponseWriter, r *http.Request) {
	var req CheckNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	number := strings.TrimSpace(req.Number)
	if number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "number is required",
		})
		return
	}

	writeJSON(w, http.StatusOK, h.pipeline.Lookup(r.Context(), number))
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
