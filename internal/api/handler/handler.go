// Package handler provides HTTP handlers for all API endpoints.
// Handlers talk to the poller and notification engine directly; there is no
// service layer.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/albapepper/matchwatch/internal/api/respond"
	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/notifications"
	"github.com/albapepper/matchwatch/internal/poller"
)

// Scheduler is the poller surface the API controls.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	Status() poller.Status
	Trigger(ctx context.Context) (poller.CycleReport, error)
	Latest() (poller.Snapshot, bool)
}

// Pusher delivers an inbound push message.
type Pusher interface {
	Push(ctx context.Context, msg notifications.PushMessage) (notifications.Notification, error)
}

// Pinger checks database connectivity. *db.Pool satisfies it.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	// ctx outlives requests; the poller loop started over HTTP runs under it.
	ctx   context.Context
	cfg   *config.Config
	sched Scheduler
	push  Pusher
	db    Pinger
}

// New creates a Handler with shared dependencies. db may be nil when the
// dedup store is not Postgres.
func New(ctx context.Context, cfg *config.Config, sched Scheduler, push Pusher, db Pinger) *Handler {
	return &Handler{ctx: ctx, cfg: cfg, sched: sched, push: push, db: db}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns service name, version, status and the configured dedup backend.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Matchwatch",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"dedup":   h.cfg.DedupBackend,
		"views":   "/ws",
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
// @Description Verifies Postgres connectivity. Reports "not configured" when the dedup store does not use Postgres.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"database":  "not configured",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
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
