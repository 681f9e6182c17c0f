package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/services"
	"github.com/desertthunder/prism/internal/shared"
	"github.com/desertthunder/prism/internal/tasks"
	"golang.org/x/oauth2"
)

// Authenticator is the provider surface the web login flow needs.
// Implemented by [services.SpotifyService].
type Authenticator interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
}

// TokenStore persists credentials obtained from a login.
// Implemented by [repositories.TokenRepository].
type TokenStore interface {
	Save(record *models.TokenRecord) error
}

// AuthHandler implements the browser login flow: /auth/login redirects to the
// provider's consent page, /auth/callback finishes the exchange, persists the
// credentials, and marks the user as the active playback source.
type AuthHandler struct {
	auth     Authenticator
	store    TokenStore
	sessions *SessionStore
	active   *tasks.ActiveUser
	logger   *log.Logger
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(auth Authenticator, store TokenStore, sessions *SessionStore, active *tasks.ActiveUser, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		store:    store,
		sessions: sessions,
		active:   active,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/auth/login", "/auth/callback"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login stores a fresh state token on the session and redirects the browser
// to the provider's consent page.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Get(r)
	if !ok {
		session = h.sessions.Create(w)
	}

	state := shared.GenerateState()
	h.sessions.SetState(session.ID, state)

	http.Redirect(w, r, h.auth.GetAuthURL(state), http.StatusFound)
}

// callback validates state, exchanges the code, fetches the profile, and
// persists the token record before binding the session.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Get(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "no session for callback")
		return
	}

	stored, ok := h.sessions.TakeState(session.ID)
	state := r.URL.Query().Get("state")
	if !ok || state == "" || state != stored {
		err := fmt.Errorf("%w: callback state does not match login state", shared.ErrStateMismatch)
		h.logger.Warn("rejected OAuth callback", "err", err)
		errorJSON(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errorJSON(w, http.StatusBadRequest, fmt.Sprintf("authorization failed: %s", r.URL.Query().Get("error")))
		return
	}

	token, err := h.auth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "err", err)
		errorJSON(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	user, err := h.auth.Profile(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Error("profile fetch failed", "err", err)
		errorJSON(w, http.StatusBadGateway, "profile fetch failed")
		return
	}

	record := &models.TokenRecord{
		UserID:       user.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = time.Now().Add(time.Hour)
	}

	if err := h.store.Save(record); err != nil {
		h.logger.Error("failed to persist credentials", "user_id", user.ID, "err", err)
		errorJSON(w, http.StatusInternalServerError, "failed to persist credentials")
		return
	}

	h.active.Set(user.ID)
	h.sessions.Bind(session.ID, user.ID)

	h.logger.Info("user authenticated", "user_id", user.ID, "display_name", user.DisplayName)
	http.Redirect(w, r, "/", http.StatusFound)
}
