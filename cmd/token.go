package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/prism/internal/shared"
	"github.com/urfave/cli/v3"
)

// TokenShow prints metadata for the stored token of the active user.
//
// The access and refresh token values themselves are never printed.
func (r *Runner) TokenShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.reload(cmd.String("config")); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	defer r.close()

	userID := r.active.Get()
	if userID == "" {
		return fmt.Errorf("%w: run `prism auth` first", shared.ErrTokenNotFound)
	}

	record, err := r.repo.Get(userID)
	if err != nil {
		return err
	}

	info := map[string]any{
		"user_id":    record.UserID,
		"expires_at": record.ExpiresAt.Format(time.RFC3339),
		"expired":    record.Expired(time.Now(), r.manager.Skew()),
		"updated_at": record.UpdatedAt.Format(time.RFC3339),
	}

	return r.writeJSON(info, cmd.Bool("pretty"))
}

// TokenClear removes the stored token for the active user.
func (r *Runner) TokenClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.reload(cmd.String("config")); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	defer r.close()

	userID := r.active.Get()
	if userID == "" {
		return fmt.Errorf("%w: nothing to clear", shared.ErrTokenNotFound)
	}

	if err := r.repo.Delete(userID); err != nil {
		return err
	}
	r.active.Clear(userID)

	return r.writePlain("✓ Removed credentials for %s\n", userID)
}
