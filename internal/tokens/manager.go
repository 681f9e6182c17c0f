// package tokens implements the OAuth token lifecycle: reading stored
// credentials, refreshing near-expiry access tokens, and persisting rotations.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultSkew is how long before the recorded expiry a token is treated as
// already expired, absent configuration.
const DefaultSkew = 60 * time.Second

// Store is the persistence surface the manager needs.
// Implemented by [repositories.TokenRepository].
type Store interface {
	Get(userID string) (*models.TokenRecord, error)
	Save(record *models.TokenRecord) error
	Delete(userID string) error
}

// Refresher exchanges a refresh token for a fresh access token.
// Implemented by [services.SpotifyService].
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Manager returns currently-valid access tokens for users, transparently
// refreshing and persisting when a stored token is expired or near expiry.
//
// Refreshes are single-flighted per user id: concurrent callers serialize on
// a per-user lock, so the second caller observes the first caller's persisted
// refresh instead of racing an independent upsert.
type Manager struct {
	store     Store
	refresher Refresher
	skew      time.Duration
	logger    *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager. A non-positive skew falls back to [DefaultSkew].
func NewManager(store Store, refresher Refresher, skew time.Duration, logger *log.Logger) *Manager {
	if skew <= 0 {
		skew = DefaultSkew
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		store:     store,
		refresher: refresher,
		skew:      skew,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Valid returns a usable access token for the user.
//
// A token expiring more than the skew from now is returned unchanged. Past
// that boundary the refresh token is exchanged, the rotated record persisted,
// and the new access token returned. A revoked grant yields
// [shared.ErrReauthRequired] and removes the dead record; callers must clear
// any session or active-user marker bound to the id and send the user back
// through the OAuth flow.
func (m *Manager) Valid(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", shared.ErrTokenNotFound)
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := m.store.Get(userID)
	if err != nil {
		return "", err
	}

	now := m.now()
	if !record.Expired(now, m.skew) {
		return record.AccessToken, nil
	}

	m.logger.Info("access token expired or expiring soon, refreshing", "user_id", userID, "expires_at", record.ExpiresAt)

	token, err := m.refresher.Refresh(ctx, record.RefreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrReauthRequired) {
			m.logger.Warn("refresh grant rejected, user must reauthorize", "user_id", userID)
			if delErr := m.store.Delete(userID); delErr != nil {
				m.logger.Error("failed to remove revoked token record", "user_id", userID, "err", delErr)
			}
		}
		return "", fmt.Errorf("refresh for %s: %w", userID, err)
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		// Provider omitted expires_in; assume the documented default hour.
		expiresAt = now.Add(time.Hour)
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = record.RefreshToken
	}

	refreshed := &models.TokenRecord{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}

	if err := m.store.Save(refreshed); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token for %s: %w", userID, err)
	}

	m.logger.Info("token refreshed and saved", "user_id", userID, "expires_at", expiresAt)
	return refreshed.AccessToken, nil
}

// Skew returns the configured expiry skew.
func (m *Manager) Skew() time.Duration {
	return m.skew
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}
