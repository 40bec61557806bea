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
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/repositories"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
	"github.com/desertthunder/tubetodo/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	envFiles   []string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	browser    func(url string) error

	api      *services.APIService
	resolver tasks.PlaylistResolver

	db        *sql.DB
	ownsDB    bool
	todos     *repositories.TodoRepository
	settings  *repositories.SettingsRepository
	instances *repositories.InstanceRepository
	engine    *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	EnvFiles   []string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// DB replaces the database named in the config. The runner does not close it.
	DB *sql.DB
	// Resolver replaces the resolver built from the config.
	Resolver tasks.PlaylistResolver
	// Browser opens a URL, defaulting to [shared.OpenBrowser].
	Browser func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Browser == nil {
		opts.Browser = shared.OpenBrowser
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		envFiles:   opts.EnvFiles,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		browser:    opts.Browser,
		db:         opts.DB,
		resolver:   opts.Resolver,
	}
	r.wire()
	return r
}

// wire builds the services from the current config. A resolver passed in [RunnerOpts] is kept.
func (r *Runner) wire() {
	r.api = services.NewAPIService(r.httpClient, shared.WithLogger(r.logger, "component", "http"))

	if r.resolver == nil || isDefaultResolver(r.resolver) {
		yt := r.config.Credentials.YouTube
		dataAPI := services.NewDataAPIService(
			services.WithBaseURL(yt.BaseURL),
			services.WithRequestsPerSecond(yt.RequestsPerSecond),
			services.WithAPIService(r.api),
			services.WithDataAPILogger(r.logger),
		)
		r.resolver = services.NewResolver(dataAPI, services.NewMirrorService(r.api, r.logger), r.logger)
	}

	if r.db != nil {
		r.attach(r.db)
	}
}

func isDefaultResolver(p tasks.PlaylistResolver) bool {
	_, ok := p.(*services.Resolver)
	return ok
}

func (r *Runner) attach(db *sql.DB) {
	r.db = db
	r.todos = repositories.NewTodoRepository(db)
	r.settings = repositories.NewSettingsRepository(db)
	r.instances = repositories.NewInstanceRepository(db)
	r.engine = tasks.NewPlaylistEngine(r.resolver, r.todos, r.logger)
}

// Before loads the config file named by --config, applies environment overrides and sets the log level.
//
// A missing config file is not an error; the embedded defaults are used.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if err := shared.ApplyEnv(r.config, r.envFiles...); err != nil {
		return ctx, err
	}

	level := r.config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	if level != "" {
		if err := shared.SetLogLevelString(r.logger, level); err != nil {
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
	}

	r.wire()
	return ctx, nil
}

// After closes the database if the runner opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the database opened by [Runner.openStore].
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		err := r.db.Close()
		r.db, r.ownsDB = nil, false
		r.todos, r.settings, r.instances, r.engine = nil, nil, nil, nil
		return err
	}
	return nil
}

// openStore opens and migrates the configured database on first use.
func (r *Runner) openStore() error {
	if r.todos != nil {
		return nil
	}

	cfg := r.config.Database
	r.logger.Debug("opening database", "path", cfg.Path)
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.ownsDB = true
	r.attach(db)
	return nil
}

// credentials returns the API key and mirror base for a request.
//
// Stored settings win over config values. Settings are only consulted when the store is open.
func (r *Runner) credentials() (apiKey, mirrorBase string) {
	apiKey = r.config.Credentials.YouTube.APIKey
	mirrorBase = r.config.Mirror.BaseURL

	if r.settings == nil {
		return apiKey, mirrorBase
	}
	if v, ok, err := r.settings.Lookup(repositories.SettingAPIKey); err == nil && ok {
		apiKey = v
	} else if err != nil {
		r.logger.Warn("failed to read setting", "key", repositories.SettingAPIKey, "error", err)
	}
	if v, ok, err := r.settings.Lookup(repositories.SettingMirrorBase); err == nil && ok {
		mirrorBase = v
	} else if err != nil {
		r.logger.Warn("failed to read setting", "key", repositories.SettingMirrorBase, "error", err)
	}
	return apiKey, mirrorBase
}

// request builds a resolution request for ref, with explicit flags overriding stored credentials.
func (r *Runner) request(ref string, cmd *cli.Command) services.Request {
	key, mirror := r.credentials()
	if v := cmd.String("key"); v != "" {
		key = v
	}
	if v := cmd.String("mirror"); v != "" {
		mirror = v
	}
	return services.Request{Reference: ref, APIKey: key, MirrorBase: mirror}
}

// reference returns the playlist reference argument, or "demo" when --demo is set.
func reference(cmd *cli.Command) (string, error) {
	if cmd.Bool("demo") {
		return services.DemoReference, nil
	}
	ref := strings.TrimSpace(cmd.StringArg("reference"))
	if ref == "" {
		return "", fmt.Errorf("%w: playlist URL or id (or --demo)", shared.ErrMissingArgument)
	}
	return ref, nil
}

// watchProgress logs updates until the returned stop function is called.
func (r *Runner) watchProgress() (chan tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range ch {
			r.logger.Info(u.Message, "phase", u.Phase)
		}
	}()
	return ch, func() {
		close(ch)
		wg.Wait()
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		resolveCommand, importCommand, todoCommand, discoverCommand, settingsCommand,
		exportCommand, serveCommand, setupCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// App returns the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "tubetodo",
		Usage:   "Turn video playlists into a watch-list you can tick off",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// exitCode maps an application error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		return 2
	default:
		return 1
	}
}
