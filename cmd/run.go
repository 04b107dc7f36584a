package main

import (
	"context"
	"fmt"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/server"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Run starts the scan loop and, when enabled, the status server. It returns when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()

	opts, err := r.orchestratorOpts("")
	if err != nil {
		return err
	}

	serve := cfg.Server.Enabled || cmd.Bool("serve")

	var tokens *server.TokenHandler
	if cmd.Bool("token-endpoint") {
		if opts.Strategy != tasks.StrategyManual {
			return fmt.Errorf("%w: --token-endpoint requires the manual strategy, got %s", shared.ErrInvalidArgument, opts.Strategy)
		}
		tokens = server.NewTokenHandler(r.logger)
		opts.Prompter = tokens
		serve = true
	}

	db, store := r.openStore()
	defer closeDB(db)
	opts.Store = store

	loop := tasks.NewScanLoop(tasks.ScanLoopOpts{
		Orchestrator: tasks.NewOrchestrator(opts),
		Scanner:      r.probeScanner(),
		Interval:     cfg.App.IntervalDuration(),
		Clock:        r.clock,
		Logger:       r.logger,
	})

	if cmd.Bool("once") {
		summary := loop.RunCycle(ctx)
		if summary.Error != "" {
			return r.writePlain("Cycle %d: %s (%s)\n", summary.Cycle, summary.Outcome, summary.Error)
		}
		return r.writePlain("Cycle %d: %s (status %d)\n", summary.Cycle, summary.Outcome, summary.StatusCode)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serverErr chan error
	if serve {
		handlers := []server.Handler{server.NewStatusHandler(loop, r.clock)}
		if tokens != nil {
			handlers = append(handlers, tokens)
		}
		router := server.NewRouter(r.logger, handlers...)
		r.logger.Debug("status server routes", "patterns", router.Patterns())

		serverErr = make(chan error, 1)
		go func() {
			serverErr <- server.Serve(ctx, cfg.Server.Addr(), router, r.logger)
		}()
	}

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(ctx)
	}()

	select {
	case err := <-loopErr:
		cancel()
		if serverErr != nil {
			if serr := <-serverErr; err == nil {
				err = serr
			}
		}
		return err
	case err := <-serverErr:
		cancel()
		<-loopErr
		return err
	}
}
