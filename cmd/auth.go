package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/repositories"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/urfave/cli/v3"
)

type authTokenOutput struct {
	Strategy string `json:"strategy"`
	Token    string `json:"token"`
	Masked   bool   `json:"masked"`
}

// AuthToken acquires a token once with the configured strategy and prints it.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	opts, err := r.orchestratorOpts(cmd.String("strategy"))
	if err != nil {
		return err
	}

	db, store := r.openStore()
	defer closeDB(db)
	opts.Store = store

	orch := tasks.NewOrchestrator(opts)
	token := orch.GetAuthToken(ctx)
	if token == "" {
		return fmt.Errorf("%w: no token from %s strategy", shared.ErrAuthFailed, orch.Strategy())
	}

	out := authTokenOutput{Strategy: orch.Strategy().String(), Token: shared.MaskToken(token), Masked: true}
	if cmd.Bool("reveal") {
		out.Token, out.Masked = token, false
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	r.writePlain("✓ Auth token acquired via %s\n", out.Strategy)
	return r.writePlain("Token: %s\n", out.Token)
}

// AuthStatus reports the configured strategy and the newest token in the history database.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()

	strategy, err := tasks.ParseStrategy(cfg.Captcha.Strategy)
	if err != nil {
		return err
	}

	r.writePlainHeader("Auth Status")
	r.writePlain("Strategy: %s\n", strategy)
	if cfg.App.AuthToken != "" {
		r.writePlain("Configured token: %s\n", shared.MaskToken(cfg.App.AuthToken))
	} else {
		r.writePlain("Configured token: none\n")
	}

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer db.Close()

	latest, err := repositories.NewTokenRepository(db).Latest()
	switch {
	case errors.Is(err, shared.ErrTokenNotFound):
		return r.writePlain("Stored token: ✗ none acquired yet\n")
	case err != nil:
		return err
	}

	age := r.clock.Since(latest.AcquiredAt).Truncate(time.Second)
	return r.writePlain("Stored token: ✓ %s via %s, %s ago\n", shared.MaskToken(latest.Value), latest.Strategy, age)
}
