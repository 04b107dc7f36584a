package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/repositories"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/ui"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil are built from the loaded config when a command first needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	clock      clockwork.Clock

	browser  services.BrowserLoginer
	prompter services.TokenPrompter
	solver   services.CaptchaSolver
	scanner  services.Scanner
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Clock      clockwork.Clock
	Browser    services.BrowserLoginer
	Prompter   services.TokenPrompter
	Solver     services.CaptchaSolver
	Scanner    services.Scanner
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		clock:      opts.Clock,
		browser:    opts.Browser,
		prompter:   opts.Prompter,
		solver:     opts.Solver,
		scanner:    opts.Scanner,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, authCommand, captchaCommand, setupCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file and dotenv overrides named by the global flags.
//
// A missing config file falls back to the built-in defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	r.configPath = cmd.String("config")
	if r.config == nil {
		r.config = shared.DefaultConfig()
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

	lookup, err := shared.LoadEnv(cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	r.config.ApplyEnv(lookup)

	return ctx, nil
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

func (r *Runner) browserLoginer() services.BrowserLoginer {
	if r.browser == nil {
		cfg := r.cfg()
		r.browser = services.NewRodBrowser(cfg.Browser, cfg.PersonalInfo, r.logger)
	}
	return r.browser
}

func (r *Runner) tokenPrompter() services.TokenPrompter {
	if r.prompter == nil {
		r.prompter = ui.NewPrompter(ui.PrompterOpts{
			In:          r.input,
			LoginURL:    r.cfg().Browser.LoginURL,
			OpenBrowser: true,
			Logger:      r.logger,
		})
	}
	return r.prompter
}

func (r *Runner) captchaSolver() services.CaptchaSolver {
	if r.solver == nil {
		opts := services.CapSolverOptsFromConfig(r.cfg().Captcha)
		opts.Logger = r.logger
		r.solver = services.NewCapSolver(opts)
	}
	return r.solver
}

func (r *Runner) probeScanner() services.Scanner {
	if r.scanner == nil {
		app := r.cfg().App
		r.scanner = services.NewProbeScanner(app.ScanURL, app.HeadersTimeoutDuration(), r.logger)
	}
	return r.scanner
}

// orchestratorOpts builds the orchestrator dependencies from config. strategy overrides captcha.strategy when set.
func (r *Runner) orchestratorOpts(strategy string) (tasks.OrchestratorOpts, error) {
	cfg := r.cfg()
	if strategy == "" {
		strategy = cfg.Captcha.Strategy
	}

	parsed, err := tasks.ParseStrategy(strategy)
	if err != nil {
		return tasks.OrchestratorOpts{}, err
	}

	return tasks.OrchestratorOpts{
		Strategy:                parsed,
		MaxCaptchaSolverRetries: cfg.App.MaxRetry,
		AuthToken:               cfg.App.AuthToken,
		Browser:                 r.browserLoginer(),
		Prompter:                r.tokenPrompter(),
		Solver:                  r.captchaSolver(),
		Clock:                   r.clock,
		Logger:                  r.logger,
	}, nil
}

// openStore opens the history database. When it cannot be opened the returned store is nil and commands run without history.
func (r *Runner) openStore() (*sql.DB, tasks.Store) {
	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		r.logger.Warn("history database unavailable, continuing without it", "err", err)
		return nil, nil
	}
	return db, repositories.NewHistoryStore(db)
}

func closeDB(db *sql.DB) {
	if db != nil {
		db.Close()
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
