package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
	"github.com/desertthunder/prism/internal/tasks"
)

// PlaybackSource builds a playback snapshot for a user on demand.
// Implemented by [tasks.Engine].
type PlaybackSource interface {
	Fetch(ctx context.Context, userID string) (*models.PlaybackSnapshot, error)
}

// APIHandler serves the JSON playback endpoints.
//
// /api/currently-playing and /api/audio-features are session gated and pass
// provider errors through as status codes. /api/device/data is the firmware
// feed: unauthenticated, and always 200 with a not-playing fallback so a
// device polling it never has to handle an error shape.
type APIHandler struct {
	engine   PlaybackSource
	sessions *SessionStore
	active   *tasks.ActiveUser
	logger   *log.Logger
}

// NewAPIHandler creates an [APIHandler].
func NewAPIHandler(engine PlaybackSource, sessions *SessionStore, active *tasks.ActiveUser, logger *log.Logger) *APIHandler {
	return &APIHandler{
		engine:   engine,
		sessions: sessions,
		active:   active,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/currently-playing", "/api/audio-features", "/api/device/data"}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/currently-playing":
		h.currentlyPlaying(w, r)
	case "/api/audio-features":
		h.audioFeatures(w, r)
	case "/api/device/data":
		h.deviceData(w, r)
	default:
		http.NotFound(w, r)
	}
}

// user resolves the authenticated user for a session-gated endpoint.
func (h *APIHandler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := h.sessions.Get(r)
	if !ok || session.UserID == "" {
		errorJSON(w, http.StatusUnauthorized, "not authenticated")
		return "", false
	}
	return session.UserID, true
}

func (h *APIHandler) currentlyPlaying(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	snapshot, err := h.engine.Fetch(r.Context(), userID)
	if err != nil {
		h.fetchError(w, r, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *APIHandler) audioFeatures(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	snapshot, err := h.engine.Fetch(r.Context(), userID)
	if err != nil {
		h.fetchError(w, r, userID, err)
		return
	}
	if snapshot.Track == nil {
		errorJSON(w, http.StatusNotFound, "nothing playing")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"track":    snapshot.Track,
		"features": snapshot.Features,
	})
}

// deviceData never fails: on any upstream problem it degrades to the same
// not-playing shape the poll loop publishes.
func (h *APIHandler) deviceData(w http.ResponseWriter, r *http.Request) {
	userID := h.active.Get()
	if userID == "" {
		writeJSON(w, http.StatusOK, models.NotPlaying())
		return
	}

	snapshot, err := h.engine.Fetch(r.Context(), userID)
	if err != nil {
		h.logger.Warn("device feed degraded", "user_id", userID, "err", err)
		writeJSON(w, http.StatusOK, models.NotPlaying())
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// fetchError maps provider failures onto response codes. A dead grant also
// tears down the session, so the next request lands back at login instead of
// retrying with a user whose token record is gone.
func (h *APIHandler) fetchError(w http.ResponseWriter, r *http.Request, userID string, err error) {
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		errorJSON(w, http.StatusTooManyRequests, "rate limited by provider")
	case errors.Is(err, shared.ErrReauthRequired), errors.Is(err, shared.ErrTokenNotFound), errors.Is(err, shared.ErrNotAuthenticated):
		h.sessions.Destroy(w, r)
		errorJSON(w, http.StatusUnauthorized, "authorization expired, log in again")
	default:
		h.logger.Error("playback fetch failed", "user_id", userID, "err", err)
		errorJSON(w, http.StatusBadGateway, "provider request failed")
	}
}
