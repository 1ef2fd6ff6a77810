// Package handler provides HTTP handlers for the ops API: health checks
// plus manual invocations of the periodic engine jobs.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khy0425/sullae/internal/api/respond"
	"github.com/khy0425/sullae/internal/config"
	"github.com/khy0425/sullae/internal/event"
)

// Store is the document access the ops endpoints need.
type Store interface {
	HealthCheck(ctx context.Context) error
	Meeting(ctx context.Context, id string) (*event.Meeting, error)
	Game(ctx context.Context, id string) (*event.Game, error)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store  Store
	engine *event.Engine
	cfg    *config.Config
}

// New creates a Handler with shared dependencies.
func New(s Store, engine *event.Engine, cfg *config.Config) *Handler {
	return &Handler{
		store:  s,
		engine: engine,
		cfg:    cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns service name, version, status, and sink configuration.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Sullae Event Engine",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"sinks": map[string]bool{
			"webhook": h.cfg.WebhookBaseURL != "",
			"push":    h.cfg.FirebaseCredentialsFile != "",
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RunReminderScan runs one reminder window scan immediately.
// @Summary Run reminder scan
// @Description Runs one pass of the meeting-reminder window scanner.
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /ops/reminder-scan [post]
func (h *Handler) RunReminderScan(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RunReminderScan(r.Context()); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "SCAN_FAILED", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "completed",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetMeeting returns one meeting document for ops inspection.
// @Summary Get meeting
// @Description Returns the raw meeting document by id.
// @Tags ops
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /ops/meetings/{id} [get]
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.Meeting(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, event.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Meeting not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "LOOKUP_FAILED", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, m)
}

// GetGame returns one game document for ops inspection.
// @Summary Get game
// @Description Returns the raw game document by id.
// @Tags ops
// @Produce json
// @Param id path string true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /ops/games/{id} [get]
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.store.Game(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, event.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Game not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "LOOKUP_FAILED", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, g)
}

// RunDailyStats runs one daily rollup immediately.
// @Summary Run daily stats rollup
// @Description Counts today's new meetings/users and emits one daily_stats event.
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /ops/daily-stats [post]
func (h *Handler) RunDailyStats(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RunDailyStats(r.Context()); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ROLLUP_FAILED", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "completed",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
