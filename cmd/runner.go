package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/cache"
	"github.com/desertthunder/mbx/internal/repositories"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	"github.com/desertthunder/mbx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built from the configuration in [Runner.Before] unless injected through [RunnerOpts].
type Runner struct {
	config     *shared.Config
	configPath string
	providers  *services.Registry
	registry   services.ReleaseRegistry
	store      cache.Store
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	progress   io.Writer
	engine     *tasks.CatalogEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Providers  *services.Registry
	Registry   services.ReleaseRegistry
	Store      cache.Store
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Progress   io.Writer // progress lines; defaults to stderr so piped output stays clean
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Progress == nil {
		opts.Progress = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		providers:  opts.Providers,
		registry:   opts.Registry,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		progress:   opts.Progress,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		reconcileCommand, deepSearchCommand, providersCommand, resolveCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration and builds whichever services were not injected.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.config == nil {
		config, err := r.loadConfig()
		if err != nil {
			return ctx, err
		}
		r.config = config
	}
	if level := cmd.String("log-level"); level != "" {
		r.config.Log.Level = level
	}
	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	ll, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, ll)

	if err := r.init(); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// loadConfig reads the config file when present, then overlays the environment and .env.
func (r *Runner) loadConfig() (*shared.Config, error) {
	config := shared.DefaultConfig()
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			loaded, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return nil, err
			}
			config = loaded
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}
	if err := config.ApplyEnv(".env"); err != nil {
		return nil, err
	}
	return config, nil
}

func (r *Runner) init() error {
	if r.store == nil {
		store, err := r.openStore()
		if err != nil {
			return err
		}
		r.store = store
	}
	if r.providers == nil {
		providers, err := services.NewRegistryFromConfig(r.config, r.store, r.logger, r.httpClient)
		if err != nil {
			return err
		}
		r.providers = providers
	}
	if r.registry == nil {
		r.registry = services.NewMusicBrainzFromConfig(r.config, r.store, r.logger, r.httpClient)
	}
	if r.engine == nil {
		opts, err := tasks.EngineOptionsFromConfig(r.config, r.logger)
		if err != nil {
			return err
		}
		r.engine = tasks.NewCatalogEngine(r.providers, r.registry, opts)
	}
	return nil
}

func (r *Runner) openStore() (cache.Store, error) {
	switch r.config.Cache.Backend {
	case "sqlite":
		db, err := shared.OpenCacheDatabase(r.config.Cache.Path)
		if err != nil {
			return nil, err
		}
		r.db = db
		r.logger.Debug("using sqlite cache", "path", r.config.Cache.Path)
		return repositories.NewCacheStore(repositories.NewCacheEntryRepository(db)), nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

// After releases the cache database.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
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

func (r *Runner) write(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// watch prints progress updates until the returned stop function is called.
func (r *Runner) watch() (chan<- tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Total > 0 {
				fmt.Fprintf(r.progress, "[%s %d/%d] %s\n", update.Phase, update.Step, update.Total, update.Message)
			} else {
				fmt.Fprintf(r.progress, "[%s] %s\n", update.Phase, update.Message)
			}
		}
	}()
	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

// isInputError reports caller mistakes that deserve a usage hint rather than a stack of context.
func isInputError(err error) bool {
	for _, target := range []error{
		shared.ErrInvalidInput, shared.ErrMissingArgument, shared.ErrUnknownProvider,
		shared.ErrProviderDisabled, shared.ErrUnsupportedCapability,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
