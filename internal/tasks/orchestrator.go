package tasks

import (
	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/jonboulle/clockwork"
)

// Store persists acquired tokens and captcha resolution summaries.
//
// Implemented by repositories.HistoryStore. Failures are logged and never interrupt the orchestrator.
type Store interface {
	SaveToken(strategy, value string) error
	LatestToken() (string, error)
	RecordSolve(solve models.CaptchaSolve) error
}

// OrchestratorOpts contains the dependencies of an [Orchestrator].
type OrchestratorOpts struct {
	Strategy Strategy

	// MaxCaptchaSolverRetries is the number of 2s waits per solver task before a new task is created.
	// Negative values are treated as 0.
	MaxCaptchaSolverRetries int

	// AuthToken is the pre-supplied token used by [StrategySolver].
	AuthToken string

	Browser  services.BrowserLoginer
	Prompter services.TokenPrompter
	Solver   services.CaptchaSolver
	Sleeper  Sleeper
	Store    Store // optional
	Clock    clockwork.Clock
	Logger   *log.Logger

	// Progress receives non-blocking updates when set.
	Progress chan<- ProgressUpdate
}

// Orchestrator acquires auth tokens and resolves captcha challenges.
type Orchestrator struct {
	strategy   Strategy
	maxRetries int
	authToken  string
	session    *Session

	browser  services.BrowserLoginer
	prompter services.TokenPrompter
	solver   services.CaptchaSolver
	sleeper  Sleeper
	store    Store
	clock    clockwork.Clock
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewOrchestrator creates an [Orchestrator] with an empty session.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.MaxCaptchaSolverRetries < 0 {
		opts.MaxCaptchaSolverRetries = 0
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = NewClockSleeper(opts.Clock)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Orchestrator{
		strategy:   opts.Strategy,
		maxRetries: opts.MaxCaptchaSolverRetries,
		authToken:  opts.AuthToken,
		session:    &Session{},
		browser:    opts.Browser,
		prompter:   opts.Prompter,
		solver:     opts.Solver,
		sleeper:    opts.Sleeper,
		store:      opts.Store,
		clock:      opts.Clock,
		logger:     opts.Logger,
		progress:   opts.Progress,
	}
}

// Session returns the session the orchestrator writes acquired tokens to.
func (o *Orchestrator) Session() *Session { return o.session }

// Strategy returns the configured auth strategy.
func (o *Orchestrator) Strategy() Strategy { return o.strategy }

// MaxCaptchaSolverRetries returns the configured per-task poll budget.
func (o *Orchestrator) MaxCaptchaSolverRetries() int { return o.maxRetries }

// sendProgress sends a progress update through the channel without blocking.
func (o *Orchestrator) sendProgress(update ProgressUpdate) {
	if o.progress == nil {
		return
	}
	select {
	case o.progress <- update:
	default:
	}
}
