package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/prism/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server and, unless --no-poll is set, the playback
// poll loop that feeds the MQTT broker.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.reload(cmd.String("config")); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	defer r.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := server.NewSessionStore()
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewAuthHandler(r.spotify, r.repo, sessions, r.active, r.logger))
	router.Handler(server.NewAPIHandler(r.engine, sessions, r.active, r.logger))

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	if !cmd.Bool("no-poll") {
		interval := time.Duration(r.config.Poll.IntervalSeconds) * time.Second
		go r.engine.Run(ctx, interval)
	}

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}
