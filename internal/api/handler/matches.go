package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/albapepper/matchwatch/internal/api/respond"
	"github.com/albapepper/matchwatch/internal/notifications"
	"github.com/albapepper/matchwatch/internal/poller"
)

const maxPushBody = 64 << 10

// GetMatches returns the last successfully fetched match list.
// @Summary Latest match snapshot
// @Description Returns the match list from the last successful poll cycle, records exactly as the feed sent them. Supports If-None-Match.
// @Tags matches
// @Produce json
// @Success 200 {object} poller.Snapshot
// @Success 304
// @Failure 404 {object} respond.ErrorResponse
// @Router /matches [get]
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.sched.Latest()
	if !ok {
		respond.WriteError(w, http.StatusNotFound, "NO_SNAPSHOT", "No successful poll cycle yet")
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode snapshot")
		return
	}

	etag := respond.ComputeETag(data)
	if respond.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag)
}

// Sync runs one poll cycle immediately.
// @Summary Trigger a poll cycle
// @Description Fetches the feed, broadcasts it to views and evaluates notifications now. Serialized with scheduled cycles.
// @Tags scheduler
// @Produce json
// @Success 200 {object} poller.CycleReport
// @Failure 502 {object} respond.ErrorResponse
// @Router /sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.sched.Trigger(r.Context())
	if err != nil {
		var ferr *poller.FetchError
		if errors.As(err, &ferr) {
			respond.WriteErrorDetail(w, http.StatusBadGateway, "FETCH_FAILED", "Match feed unavailable", err.Error())
			return
		}
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "SYNC_FAILED", "Poll cycle failed", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, report)
}

// StartScheduler starts the poller. Starting a running poller is a no-op.
// @Summary Start the notification scheduler
// @Tags scheduler
// @Produce json
// @Success 200 {object} poller.Status
// @Router /scheduler/start [post]
func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.Start(h.ctx); err != nil && !errors.Is(err, poller.ErrAlreadyRunning) {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "START_FAILED", "Failed to start scheduler", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.sched.Status())
}

// StopScheduler stops the poller. Dedup records are kept.
// @Summary Stop the notification scheduler
// @Tags scheduler
// @Produce json
// @Success 200 {object} poller.Status
// @Router /scheduler/stop [post]
func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	respond.WriteJSONObject(w, http.StatusOK, h.sched.Status())
}

// SchedulerStatus reports whether the poller is running.
// @Summary Scheduler status
// @Tags scheduler
// @Produce json
// @Success 200 {object} poller.Status
// @Router /scheduler [get]
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.sched.Status())
}

// Push displays an inbound push message. Missing fields take defaults; an
// empty body is a valid message.
// @Summary Deliver a push message
// @Description Displays a notification built from the payload on every configured surface. Push messages are not deduplicated.
// @Tags notifications
// @Accept json
// @Produce json
// @Param message body notifications.PushMessage false "Push payload"
// @Success 200 {object} notifications.Notification
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /push [post]
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	var msg notifications.PushMessage
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&msg)
	if err != nil && !errors.Is(err, io.EOF) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Push payload must be a JSON object", err.Error())
		return
	}

	n, err := h.push.Push(r.Context(), msg)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadGateway, "SEND_FAILED", "No surface displayed the notification", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, n)
}
