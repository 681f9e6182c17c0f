package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
)

// TokenRepository persists [models.TokenRecord] rows in the spotify_tokens table.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save upserts the record keyed on user id. An existing row is replaced in
// place; expires_at stores the absolute instant as unix milliseconds.
func (r *TokenRepository) Save(record *models.TokenRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO spotify_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	_, err := r.db.Exec(query, record.UserID, record.AccessToken, record.RefreshToken, record.ExpiresAt.UnixMilli(), now)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	record.UpdatedAt = now
	return nil
}

// Get retrieves the token record for a user id.
//
// Returns [shared.ErrTokenNotFound] when no row exists.
func (r *TokenRepository) Get(userID string) (*models.TokenRecord, error) {
	query := `
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM spotify_tokens
		WHERE user_id = ?
	`

	var (
		record    models.TokenRecord
		expiresAt int64
	)

	err := r.db.QueryRow(query, userID).Scan(&record.UserID, &record.AccessToken, &record.RefreshToken, &expiresAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrTokenNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	record.ExpiresAt = time.UnixMilli(expiresAt)
	return &record, nil
}

// Delete removes the token record for a user id. Used when the provider
// reports a revoked grant and the user must redo the OAuth flow.
func (r *TokenRepository) Delete(userID string) error {
	result, err := r.db.Exec("DELETE FROM spotify_tokens WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTokenNotFound, userID)
	}

	return nil
}

// Count returns the number of rows stored for a user id. Always 0 or 1 given
// the primary-key upsert, exposed so callers can assert the invariant.
func (r *TokenRepository) Count(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM spotify_tokens WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return count, nil
}

// Latest returns the most recently updated token record, or
// [shared.ErrTokenNotFound] when the table is empty. The device data path
// uses it as a fallback when no user has authenticated this process.
func (r *TokenRepository) Latest() (*models.TokenRecord, error) {
	query := `
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM spotify_tokens
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var (
		record    models.TokenRecord
		expiresAt int64
	)

	err := r.db.QueryRow(query).Scan(&record.UserID, &record.AccessToken, &record.RefreshToken, &expiresAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest token: %w", err)
	}

	record.ExpiresAt = time.UnixMilli(expiresAt)
	return &record, nil
}
