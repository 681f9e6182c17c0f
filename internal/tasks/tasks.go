// package tasks orchestrates the poll-publish pipeline.
//
// The core abstraction is Engine, which runs one snapshot cycle: resolve a
// valid token, fetch playback state, enrich with a palette (and optionally
// audio features), and publish to the visualizer topic. Every per-cycle
// failure is contained so the loop outlives transient provider and broker
// trouble.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/palette"
	"github.com/desertthunder/prism/internal/publisher"
	"github.com/desertthunder/prism/internal/shared"
)

// Stage identifies where in the pipeline a cycle currently is, for logging.
type Stage int

const (
	StageIdle Stage = iota
	StageToken
	StagePlayback
	StagePalette
	StageFeatures
	StagePublish
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageToken:
		return "token"
	case StagePlayback:
		return "playback"
	case StagePalette:
		return "palette"
	case StageFeatures:
		return "features"
	case StagePublish:
		return "publish"
	default:
		return ""
	}
}

// TokenSource resolves a currently-valid access token for a user.
// Implemented by [tokens.Manager].
type TokenSource interface {
	Valid(ctx context.Context, userID string) (string, error)
}

// Snapshotter is the provider surface a cycle reads from.
// Implemented by [services.SpotifyService].
type Snapshotter interface {
	CurrentPlayback(ctx context.Context, accessToken string) (*models.PlaybackSnapshot, error)
	TrackFeatures(ctx context.Context, accessToken, trackID string) (*models.AudioFeatures, error)
	DownloadImage(ctx context.Context, url string) ([]byte, error)
}

// EngineOpts contains dependencies and tuning for an [Engine].
type EngineOpts struct {
	Tokens          TokenSource
	Spotify         Snapshotter
	Publisher       publisher.Publisher
	Active          *ActiveUser
	Logger          *log.Logger
	PaletteSize     int
	IncludeFeatures bool
}

// Engine runs snapshot cycles for the active user.
type Engine struct {
	tokens          TokenSource
	spotify         Snapshotter
	publisher       publisher.Publisher
	active          *ActiveUser
	logger          *log.Logger
	paletteSize     int
	includeFeatures bool

	// held for the duration of one cycle; overlapping ticks are skipped
	running sync.Mutex
}

// NewEngine creates an Engine from its dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Active == nil {
		opts.Active = NewActiveUser("")
	}
	if opts.PaletteSize <= 0 {
		opts.PaletteSize = palette.DefaultColors
	}
	return &Engine{
		tokens:          opts.Tokens,
		spotify:         opts.Spotify,
		publisher:       opts.Publisher,
		active:          opts.Active,
		logger:          opts.Logger,
		paletteSize:     opts.PaletteSize,
		includeFeatures: opts.IncludeFeatures,
	}
}

// Fetch builds a snapshot for userID without publishing: the on-demand path
// behind the HTTP playback endpoints.
func (e *Engine) Fetch(ctx context.Context, userID string) (*models.PlaybackSnapshot, error) {
	token, err := e.tokens.Valid(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot, err := e.spotify.CurrentPlayback(ctx, token)
	if err != nil {
		return nil, err
	}

	e.enrich(ctx, token, snapshot)
	return snapshot, nil
}

// Cycle runs one token → playback → palette → publish pass for the active
// user and returns the published snapshot.
//
// Failures degrade rather than abort: when no user is authenticated or any
// fetch stage fails, the safe not-playing snapshot is published and the stage
// error returned for the caller to log. A publish failure is returned without
// retrying; the next cycle supersedes the stale snapshot.
func (e *Engine) Cycle(ctx context.Context) (*models.PlaybackSnapshot, error) {
	userID := e.active.Get()
	if userID == "" {
		return e.degrade(ctx, StageToken, "", shared.ErrNotAuthenticated)
	}

	token, err := e.tokens.Valid(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrReauthRequired) {
			e.active.Clear(userID)
		}
		return e.degrade(ctx, StageToken, userID, err)
	}

	snapshot, err := e.spotify.CurrentPlayback(ctx, token)
	if err != nil {
		return e.degrade(ctx, StagePlayback, userID, err)
	}

	e.enrich(ctx, token, snapshot)

	if err := e.publisher.Publish(ctx, snapshot); err != nil {
		return snapshot, fmt.Errorf("stage %s for %s: %w", StagePublish, userID, err)
	}

	return snapshot, nil
}

// Run executes Cycle immediately and then on every interval tick until the
// context is cancelled. A tick that fires while a cycle is still in flight is
// skipped, so at most one cycle runs at a time.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	e.logger.Info("starting poll loop", "interval", interval)

	e.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("poll loop stopped")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if !e.running.TryLock() {
		e.logger.Debug("previous cycle still in flight, skipping tick")
		return
	}
	defer e.running.Unlock()

	snapshot, err := e.Cycle(ctx)
	switch {
	case err != nil && errors.Is(err, shared.ErrNotAuthenticated):
		e.logger.Debug("no authenticated user, published idle snapshot")
	case err != nil && errors.Is(err, shared.ErrRateLimited):
		e.logger.Warn("provider rate limit hit, cycle degraded", "err", err)
	case err != nil:
		e.logger.Error("poll cycle failed", "err", err)
	case snapshot.IsPlaying && snapshot.Track != nil:
		e.logger.Info("published snapshot", "track", snapshot.Track.Name, "progress_ms", snapshot.ProgressMS)
	default:
		e.logger.Debug("published snapshot", "playing", snapshot.IsPlaying)
	}
}

// enrich attaches the album-art palette and, when enabled, audio features.
// Both are best effort and never fail the snapshot.
func (e *Engine) enrich(ctx context.Context, token string, snapshot *models.PlaybackSnapshot) {
	if snapshot.Track == nil {
		return
	}

	if snapshot.Track.AlbumArtURL != "" {
		if art, err := e.spotify.DownloadImage(ctx, snapshot.Track.AlbumArtURL); err != nil {
			e.logger.Warn("album art download failed", "stage", StagePalette, "err", err)
		} else {
			snapshot.Palette = palette.Extract(art, e.paletteSize)
		}
	}

	if e.includeFeatures && snapshot.Track.ID != "" {
		if features, err := e.spotify.TrackFeatures(ctx, token, snapshot.Track.ID); err != nil {
			e.logger.Warn("audio features fetch failed", "stage", StageFeatures, "err", err)
		} else {
			snapshot.Features = features
		}
	}
}

// degrade publishes the safe not-playing snapshot and reports the stage error.
func (e *Engine) degrade(ctx context.Context, stage Stage, userID string, cause error) (*models.PlaybackSnapshot, error) {
	snapshot := models.NotPlaying()

	if err := e.publisher.Publish(ctx, snapshot); err != nil {
		e.logger.Error("failed to publish degraded snapshot", "stage", StagePublish, "user_id", userID, "err", err)
	}

	return snapshot, fmt.Errorf("stage %s for %q: %w", stage, userID, cause)
}
