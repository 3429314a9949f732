package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotivy/internal/repositories"
	"github.com/desertthunder/spotivy/internal/services"
	"github.com/desertthunder/spotivy/internal/shared"
	"github.com/desertthunder/spotivy/internal/tasks"
	"github.com/desertthunder/spotivy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil are built from the loaded configuration when an action needs them.
type Runner struct {
	config    *shared.Config
	catalog   services.Catalog
	resolver  services.Resolver
	fetcher   services.Fetcher
	tagger    services.Tagger
	recorder  tasks.Recorder
	logger    *log.Logger
	output    io.Writer
	errOutput io.Writer
	console   *ui.Console
	version   string
	envFiles  []string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Catalog   services.Catalog
	Resolver  services.Resolver
	Fetcher   services.Fetcher
	Tagger    services.Tagger
	Recorder  tasks.Recorder
	Logger    *log.Logger
	Output    io.Writer
	ErrOutput io.Writer
	Version   string
	EnvFiles  []string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Version == "" {
		opts.Version = appVersion
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env"}
	}

	return &Runner{
		config:    opts.Config,
		catalog:   opts.Catalog,
		resolver:  opts.Resolver,
		fetcher:   opts.Fetcher,
		tagger:    opts.Tagger,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		output:    opts.Output,
		errOutput: opts.ErrOutput,
		console:   ui.NewConsole(opts.Output, opts.ErrOutput),
		version:   opts.Version,
		envFiles:  opts.EnvFiles,
	}
}

// Configure resolves the configuration for a command.
//
// Precedence, lowest first: embedded defaults, the config file, .env and the environment, then flags.
// A config passed through [RunnerOpts] replaces the first three layers.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := r.loadConfig(cmd)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if cmd.IsSet("output") {
		r.config.Output = cmd.String("output")
	}
	if cmd.IsSet("format") {
		r.config.Format = cmd.String("format")
	}
	if cmd.IsSet("audio") {
		r.config.Audio = cmd.Bool("audio")
	}
	if cmd.IsSet("debug") {
		r.config.Debug = cmd.Bool("debug")
	}

	if r.config.Debug {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if data, err := shared.MarshalJSON(redacted(r.config), true); err == nil {
		r.logger.Debug("Loaded options:\n" + string(data))
	}

	return ctx, nil
}

func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil || cmd.IsSet("config") {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := shared.LoadEnv(r.envFiles...); err != nil {
		return nil, err
	}
	config.ApplyEnv()

	return config, nil
}

// redacted returns a copy of c that is safe to log.
func redacted(c *shared.Config) shared.Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.Spotify.ClientSecret = mask(out.Spotify.ClientSecret)
	out.YouTube.APIKey = mask(out.YouTube.APIKey)
	return out
}

// services builds the catalog, resolver, fetcher and tagger that were not injected.
func (r *Runner) services(ctx context.Context) error {
	if r.catalog == nil {
		spotify, err := services.NewSpotifyService(
			r.config.Spotify.Map(),
			services.WithSpotifyRateLimit(r.config.Spotify.RateLimit),
			services.WithSpotifyLogger(shared.WithLogger(r.logger, "service", "spotify")),
		)
		if err != nil {
			return err
		}
		if err := spotify.Authenticate(ctx); err != nil {
			return err
		}
		r.catalog = spotify
	}

	if r.resolver == nil {
		youtube, err := services.NewYouTubeResolver(ctx, r.config.YouTube.APIKey,
			services.WithYouTubeRateLimit(r.config.YouTube.RateLimit),
			services.WithYouTubeTimeout(seconds(r.config.YouTube.Timeout)),
			services.WithYouTubeLogger(shared.WithLogger(r.logger, "service", "youtube")),
		)
		if err != nil {
			return err
		}
		r.resolver = youtube
	}

	if r.fetcher == nil {
		r.fetcher = r.newFetcher()
	}

	if r.tagger == nil && r.config.Fetcher.Backend == "ytdlp" && r.config.Fetcher.TagAudio {
		r.tagger = services.NewID3Tagger(shared.WithLogger(r.logger, "tagger", "id3"))
	}

	return nil
}

func (r *Runner) newFetcher() services.Fetcher {
	logger := shared.WithLogger(r.logger, "fetcher", r.config.Fetcher.Backend)
	timeout := seconds(r.config.Fetcher.Timeout)

	switch r.config.Fetcher.Backend {
	case "ytdlp":
		return services.NewYTDLPFetcher(r.config.Fetcher.YTDLPPath, timeout, logger)
	default:
		return services.NewStreamFetcher(timeout, logger)
	}
}

// openHistory opens and migrates the run history database.
func (r *Runner) openHistory() (*sql.DB, error) {
	if r.config.History.Path == "" {
		return nil, fmt.Errorf("%w: history.path is not set", shared.ErrMissingConfig)
	}

	db, err := shared.NewDatabase(r.config.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	conns := max(r.config.History.MaxOpenConns, 1)
	shared.ConfigureDatabase(db, conns, conns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// historyRecorder returns the injected recorder, or one backed by the history database when enabled.
//
// The returned close func is never nil.
func (r *Runner) historyRecorder() (tasks.Recorder, func(), error) {
	if r.recorder != nil {
		return r.recorder, func() {}, nil
	}
	if r.config.History.Path == "" {
		return nil, func() {}, nil
	}

	db, err := r.openHistory()
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewHistoryRecorder(repositories.NewRunRepository(db)), func() { db.Close() }, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
