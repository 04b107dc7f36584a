package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "txdps",
		Usage:    "Poll the Texas DPS scheduler, keeping an auth session and solving captchas",
		Version:  "0.3.0",
		Flags:    globalFlags(),
		Before:   runner.Before,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()

	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
