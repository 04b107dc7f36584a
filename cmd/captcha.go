package main

import (
	"context"
	"fmt"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/ui"
	"github.com/urfave/cli/v3"
)

// CaptchaSolve resolves one captcha and prints the solution token.
func (r *Runner) CaptchaSolve(ctx context.Context, cmd *cli.Command) error {
	opts, err := r.orchestratorOpts("")
	if err != nil {
		return err
	}

	db, store := r.openStore()
	defer closeDB(db)
	opts.Store = store

	var token string
	if cmd.Bool("progress") {
		token, err = r.solveWithProgress(ctx, opts)
		if err != nil {
			return err
		}
	} else {
		token = tasks.NewOrchestrator(opts).GetCaptchaToken(ctx)
	}

	if token == "" {
		return fmt.Errorf("%w: no captcha token", shared.ErrSolverTask)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"token": token}, true)
	}
	r.writePlain("✓ Captcha token received\n")
	return r.writePlain("%s\n", token)
}

func (r *Runner) solveWithProgress(ctx context.Context, opts tasks.OrchestratorOpts) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tasks.ProgressUpdate, 16)
	opts.Progress = updates
	orch := tasks.NewOrchestrator(opts)

	result := make(chan string, 1)
	go func() {
		defer close(updates)
		result <- orch.GetCaptchaToken(ctx)
	}()

	if err := ui.WatchProgress(ctx, ui.ProgressOpts{
		Title:   "Solving captcha",
		Updates: updates,
		Cancel:  cancel,
		In:      r.input,
	}); err != nil {
		cancel()
		<-result
		return "", err
	}

	return <-result, nil
}
