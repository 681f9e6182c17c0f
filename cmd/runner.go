package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/publisher"
	"github.com/desertthunder/prism/internal/repositories"
	"github.com/desertthunder/prism/internal/services"
	"github.com/desertthunder/prism/internal/shared"
	"github.com/desertthunder/prism/internal/tasks"
	"github.com/desertthunder/prism/internal/tokens"
	"github.com/urfave/cli/v3"
)

// noopPublisher discards snapshots. Stands in when the broker is not
// configured so read-only commands still get a working engine.
type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, snapshot *models.PlaybackSnapshot) error {
	return nil
}

func (noopPublisher) Close() {}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	db        *sql.DB
	repo      *repositories.TokenRepository
	spotify   *services.SpotifyService
	manager   *tokens.Manager
	publisher publisher.Publisher
	engine    *tasks.Engine
	active    *tasks.ActiveUser
	logger    *log.Logger
	output    io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Spotify   *services.SpotifyService
	Publisher publisher.Publisher
	Logger    *log.Logger
	Output    io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// Database-backed dependencies are wired lazily by [Runner.connect] so that
// commands which never touch the database (like auth on a fresh checkout)
// don't require one.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:    opts.Config,
		spotify:   opts.Spotify,
		publisher: opts.Publisher,
		active:    tasks.NewActiveUser(""),
		logger:    opts.Logger,
		output:    opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, publishCommand, tokenCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// connect opens the database and wires the repository, token manager,
// publisher, and engine. Idempotent: a second call reuses the open handle.
func (r *Runner) connect() error {
	if r.db != nil {
		return nil
	}

	if r.spotify == nil {
		svc, err := services.NewSpotifyService(r.config.Credentials.Spotify)
		if err != nil {
			return fmt.Errorf("%w: spotify credentials are not configured", shared.ErrMissingCredentials)
		}
		r.spotify = svc
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.db = db
	r.repo = repositories.NewTokenRepository(db)

	skew := time.Duration(r.config.Poll.RefreshSkewSeconds) * time.Second
	r.manager = tokens.NewManager(r.repo, r.spotify, skew, r.logger)

	// Commands that only read playback (tui, token) work without a broker;
	// Serve and Publish validate the broker config up front.
	if r.publisher == nil {
		if pub, err := publisher.New(r.config.Broker); err == nil {
			r.publisher = pub
		} else {
			r.logger.Debug("broker not configured, publishing disabled", "err", err)
			r.publisher = noopPublisher{}
		}
	}

	// Resume the last login so a restart doesn't need a new browser trip.
	if record, err := r.repo.Latest(); err == nil {
		r.active.Set(record.UserID)
		r.logger.Debug("resumed active user", "user_id", record.UserID)
	}

	r.engine = tasks.NewEngine(tasks.EngineOpts{
		Tokens:          r.manager,
		Spotify:         r.spotify,
		Publisher:       r.publisher,
		Active:          r.active,
		Logger:          r.logger,
		PaletteSize:     r.config.Poll.PaletteSize,
		IncludeFeatures: r.config.Poll.IncludeFeatures,
	})

	return nil
}

// close releases the database handle and publisher connection.
func (r *Runner) close() {
	if r.publisher != nil {
		r.publisher.Close()
	}
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

// SetLogger swaps the runner's logger, for commands that need to redirect
// log output away from the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
