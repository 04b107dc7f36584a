// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a dotenv file with secrets (TXDPS_SOLVER_API_KEY, TXDPS_AUTH_TOKEN, TXDPS_CAPTCHA_STRATEGY)",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// runCommand starts the scan loop
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Scan the scheduler on an interval, re-authenticating and solving captchas as needed",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "serve",
				Usage: "Start the status server even if server.enabled is false",
			},
			&cli.BoolFlag{
				Name:  "token-endpoint",
				Usage: "With the manual strategy, accept tokens on POST /token instead of the terminal",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single cycle and exit",
			},
		},
		Action: r.Run,
	}
}

// authCommand handles auth token acquisition
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the scheduler auth token",
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "Acquire an auth token once with the configured strategy",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Override captcha.strategy (browser, manual or solver)",
					},
					&cli.BoolFlag{
						Name:  "reveal",
						Usage: "Print the full token instead of a masked one",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthToken,
			},
			{
				Name:   "status",
				Usage:  "Show the configured strategy and the most recent stored token",
				Action: r.AuthStatus,
			},
		},
	}
}

// captchaCommand handles captcha solving
func captchaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "captcha",
		Usage: "Captcha solver operations",
		Commands: []*cli.Command{
			{
				Name:  "solve",
				Usage: "Resolve one captcha through the solving service",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show an interactive progress view",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CaptchaSolve,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Auth strategy to write (browser, manual or solver)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// historyCommand prints or exports stored tokens and captcha solves
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show acquired tokens and captcha solve history",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records of each kind",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout (csv writes {output}_tokens.csv and {output}_solves.csv)",
			},
		},
		Action: r.History,
	}
}
