package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/jonboulle/clockwork"
)

// CycleOutcome is the result of one scan cycle.
type CycleOutcome string

const (
	CycleScanned         CycleOutcome = "scanned"
	CycleUnauthenticated CycleOutcome = "unauthenticated"
	CycleTokenExpired    CycleOutcome = "token_expired"
	CycleCaptchaFailed   CycleOutcome = "captcha_failed"
	CycleFailed          CycleOutcome = "failed"
)

// CycleSummary describes a finished scan cycle.
type CycleSummary struct {
	ID            string        `json:"id"`
	Cycle         int           `json:"cycle"`
	Outcome       CycleOutcome  `json:"outcome"`
	StatusCode    int           `json:"status_code,omitempty"`
	CaptchaSolved bool          `json:"captcha_solved"`
	Error         string        `json:"error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// ScanLoopOpts contains the dependencies of a [ScanLoop].
type ScanLoopOpts struct {
	Orchestrator *Orchestrator
	Scanner      services.Scanner
	Interval     time.Duration // defaults to one minute
	Clock        clockwork.Clock
	Logger       *log.Logger
	Progress     chan<- ProgressUpdate
}

// ScanLoop polls the scheduling site on an interval, keeping the session authenticated
// and solving a captcha whenever the site asks for one.
type ScanLoop struct {
	orch     *Orchestrator
	scanner  services.Scanner
	interval time.Duration
	clock    clockwork.Clock
	logger   *log.Logger
	progress chan<- ProgressUpdate

	mu      sync.RWMutex
	cycles  int
	last    *CycleSummary
	expired bool
}

// NewScanLoop creates a [ScanLoop].
func NewScanLoop(opts ScanLoopOpts) *ScanLoop {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &ScanLoop{
		orch:     opts.Orchestrator,
		scanner:  opts.Scanner,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
}

// Run executes a cycle immediately and then once per interval until ctx is cancelled.
func (l *ScanLoop) Run(ctx context.Context) error {
	if l.orch == nil || l.scanner == nil {
		return shared.ErrServiceUnavailable
	}

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("scan loop started", "interval", l.interval, "strategy", l.orch.Strategy())

	for {
		l.RunCycle(ctx)

		select {
		case <-ctx.Done():
			l.logger.Info("scan loop stopped", "cycles", l.Cycles())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunCycle performs one scan cycle and records its summary.
func (l *ScanLoop) RunCycle(ctx context.Context) CycleSummary {
	l.mu.Lock()
	l.cycles++
	cycle := l.cycles
	reauth := l.expired
	l.mu.Unlock()

	summary := CycleSummary{ID: shared.GenerateID(), Cycle: cycle, StartedAt: l.clock.Now().UTC()}
	logger := shared.WithLogger(l.logger, "cycle", summary.ID)

	session := l.orch.Session()
	if reauth || !session.Valid() {
		logger.Debug("acquiring auth token", "expired", reauth)
		l.orch.GetAuthToken(ctx)
	}

	expired := reauth
	if session.Valid() {
		expired = l.scan(ctx, session, &summary)
	} else {
		summary.Outcome = CycleUnauthenticated
		summary.Error = shared.ErrNotAuthenticated.Error()
	}

	summary.Duration = l.clock.Since(summary.StartedAt)

	l.mu.Lock()
	l.expired = expired
	l.last = &summary
	l.mu.Unlock()

	if summary.Error != "" {
		logger.Warn("scan cycle finished", "outcome", summary.Outcome, "err", summary.Error)
	} else {
		logger.Info("scan cycle finished", "outcome", summary.Outcome, "status", summary.StatusCode)
	}
	l.sendProgress(scanUpdate(cycle, summary))

	return summary
}

// scan runs the request, solving a captcha and rescanning once when asked. It reports whether the token expired.
func (l *ScanLoop) scan(ctx context.Context, session *Session, summary *CycleSummary) bool {
	req := services.ScanRequest{Client: session.Client(ctx)}
	resp, err := l.scanner.Scan(ctx, req)

	if errors.Is(err, shared.ErrCaptchaRequired) {
		token := l.orch.GetCaptchaToken(ctx)
		if token == "" {
			summary.Outcome = CycleCaptchaFailed
			summary.Error = err.Error()
			if resp != nil {
				summary.StatusCode = resp.StatusCode
			}
			return false
		}
		summary.CaptchaSolved = true
		req.CaptchaToken = token
		resp, err = l.scanner.Scan(ctx, req)
	}

	if resp != nil {
		summary.StatusCode = resp.StatusCode
	}

	switch {
	case err == nil:
		summary.Outcome = CycleScanned
	case errors.Is(err, shared.ErrTokenExpired):
		summary.Outcome = CycleTokenExpired
		summary.Error = err.Error()
		return true
	case errors.Is(err, shared.ErrCaptchaRequired):
		summary.Outcome = CycleCaptchaFailed
		summary.Error = err.Error()
	default:
		summary.Outcome = CycleFailed
		summary.Error = err.Error()
	}
	return false
}

// Last returns the summary of the most recent cycle.
func (l *ScanLoop) Last() (CycleSummary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.last == nil {
		return CycleSummary{}, false
	}
	return *l.last, true
}

// Cycles returns the number of cycles started.
func (l *ScanLoop) Cycles() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cycles
}

// Session returns the session scanned with.
func (l *ScanLoop) Session() *Session { return l.orch.Session() }

// Strategy returns the auth strategy of the orchestrator.
func (l *ScanLoop) Strategy() Strategy { return l.orch.Strategy() }

func (l *ScanLoop) sendProgress(update ProgressUpdate) {
	if l.progress == nil {
		return
	}
	select {
	case l.progress <- update:
	default:
	}
}
