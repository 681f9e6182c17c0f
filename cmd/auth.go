package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/server"
	"github.com/desertthunder/prism/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the auth code for tokens, and persists the record so the poll
// loop can refresh it from then on.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.reload(cmd.String("config")); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	defer r.close()

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	user, err := r.spotify.Profile(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
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

	if err := r.repo.Save(record); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	r.active.Set(user.ID)

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Logged in as %s (%s)\n\n", user.DisplayName, user.ID)
	r.writePlain("You can now use: prism serve\n")

	return nil
}

// reload replaces the runner's config from the given path when it exists.
func (r *Runner) reload(configPath string) error {
	if configPath == "" {
		return nil
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warnf("failed to load config, using current settings %v", err)
		return nil
	}
	r.config = config
	return nil
}

// doOAuth runs the one-shot browser flow against a temporary local server.
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateState()

	authURL := r.spotify.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(r.spotify.OAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("authorization returned no token")
	}

	return result.Token, nil
}
