package tasks

import (
	"context"
	"fmt"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// solveStats counts the work of one [Orchestrator.GetCaptchaToken] call.
type solveStats struct {
	tasks    int
	polls    int
	restarts int
}

// GetCaptchaToken drives the solver until it returns a token, and returns "" when resolution is abandoned.
//
// Each solver task is polled every 2s up to the configured retry budget. A rejected task or an exhausted
// budget abandons the task and creates a new one; there is no cap on new tasks. Failing to create a task,
// a failed poll and a cancelled ctx end the call with "".
func (o *Orchestrator) GetCaptchaToken(ctx context.Context) string {
	var stats solveStats
	started := o.clock.Now()

	token, outcome := o.resolveCaptcha(ctx, &stats)
	o.recordSolve(models.CaptchaSolve{
		Outcome:      outcome,
		TasksCreated: stats.tasks,
		Polls:        stats.polls,
		Restarts:     stats.restarts,
		Duration:     o.clock.Since(started),
		StartedAt:    started.UTC(),
	})

	return token
}

func (o *Orchestrator) resolveCaptcha(ctx context.Context, stats *solveStats) (string, models.SolveOutcome) {
	if o.solver == nil {
		err := fmt.Errorf("%w: captcha solver not configured", shared.ErrServiceUnavailable)
		o.logger.Error("Error creating captcha solver task:", "err", err)
		o.sendProgress(giveUpUpdate(err))
		return "", models.SolveGiveUp
	}

	for {
		o.sendProgress(creatingTaskUpdate(stats.restarts))

		taskID, err := o.solver.CreateTask(ctx)
		if err != nil {
			o.logger.Error("Error creating captcha solver task:", "err", err)
			o.sendProgress(giveUpUpdate(err))
			return "", models.SolveGiveUp
		}
		stats.tasks++

		logger := shared.WithLogger(o.logger, "task", taskID)
		logger.Debug("captcha solver task created")

		token, outcome, restart := o.pollTask(ctx, taskID, stats)
		if !restart {
			return token, outcome
		}
		stats.restarts++
	}
}

// pollTask polls one task until it resolves. restart reports that the task was abandoned.
func (o *Orchestrator) pollTask(ctx context.Context, taskID string, stats *solveStats) (string, models.SolveOutcome, bool) {
	retries := 0
	for {
		o.sendProgress(pollingUpdate(taskID, retries, o.maxRetries))

		stats.polls++
		result, err := o.pollCaptcha(ctx, taskID)
		if err != nil {
			o.sendProgress(giveUpUpdate(err))
			return "", models.SolveGiveUp, false
		}

		switch {
		case result == nil:
			o.logger.Error("get captcha token failed! will create new task and sleep 10s!", "task", taskID)
			o.sendProgress(restartUpdate(stats.restarts+1, "task rejected"))
			if err := o.sleeper.Sleep(ctx, CaptchaRestartDelay); err != nil {
				return o.cancelled(err)
			}
			return "", "", true

		case result.Status == services.TaskReady:
			o.logger.Info("Captcha token received successfully")
			o.sendProgress(readyUpdate(taskID))
			return result.Solution.Token, models.SolveReady, false

		case result.Status == services.TaskProcessing && retries >= o.maxRetries:
			o.logger.Error(fmt.Sprintf("Get captcha token failed after %d retries! will retry!", o.maxRetries), "task", taskID)
			o.sendProgress(restartUpdate(stats.restarts+1, "retries exhausted"))
			return "", "", true

		case result.Status == services.TaskProcessing:
			if err := o.sleeper.Sleep(ctx, CaptchaPollInterval); err != nil {
				return o.cancelled(err)
			}
			retries++

		default:
			o.logger.Error("get captcha token failed! will create new task and sleep 10s!", "task", taskID,
				"err", fmt.Errorf("%w: %q", shared.ErrUnknownTaskStatus, result.Status))
			o.sendProgress(restartUpdate(stats.restarts+1, "unknown status"))
			if err := o.sleeper.Sleep(ctx, CaptchaRestartDelay); err != nil {
				return o.cancelled(err)
			}
			return "", "", true
		}
	}
}

func (o *Orchestrator) cancelled(err error) (string, models.SolveOutcome, bool) {
	o.logger.Warn("captcha resolution cancelled", "err", err)
	o.sendProgress(giveUpUpdate(err))
	return "", models.SolveCancelled, false
}

// pollCaptcha performs one poll, logging a failed call.
func (o *Orchestrator) pollCaptcha(ctx context.Context, taskID string) (*services.CaptchaResult, error) {
	result, err := o.solver.TaskResult(ctx, taskID)
	if err != nil {
		o.logger.Error("Error getting captcha solver result:", "task", taskID, "err", err)
		return nil, err
	}
	return result, nil
}

// GetCaptchaResult polls taskID once and returns nil when the call fails.
func (o *Orchestrator) GetCaptchaResult(ctx context.Context, taskID string) *services.CaptchaResult {
	if o.solver == nil {
		o.logger.Error("Error getting captcha solver result:", "task", taskID, "err", shared.ErrServiceUnavailable)
		return nil
	}
	result, _ := o.pollCaptcha(ctx, taskID)
	return result
}

func (o *Orchestrator) recordSolve(solve models.CaptchaSolve) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordSolve(solve); err != nil {
		o.logger.Warn("failed to record captcha solve", "err", err)
	}
}
