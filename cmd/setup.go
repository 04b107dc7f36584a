package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the config file from the embedded template, optionally with a different strategy.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite): %w", path, shared.ErrInvalidArgument)
	}

	config := shared.DefaultConfig()
	if strategy := cmd.String("strategy"); strategy != "" {
		parsed, err := tasks.ParseStrategy(strategy)
		if err != nil {
			return err
		}
		config.Captcha.Strategy = parsed.String()
	}

	if err := shared.SaveConfig(path, config); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlain("Strategy: %s\n", config.Captcha.Strategy)
	return r.writePlain("Set %s in the environment or a .env file before running captcha commands\n", shared.EnvSolverAPIKey)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.cfg()

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database %s at schema version %d\n", config.Database.Path, version)
}
