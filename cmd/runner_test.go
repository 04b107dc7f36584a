package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	tu "github.com/chaithuchowdhary/texas-dps-scheduler/internal/testing"
	"github.com/urfave/cli/v3"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	t.Setenv(shared.EnvAuthToken, "")
	t.Setenv(shared.EnvCaptchaStrategy, "")
	t.Setenv(shared.EnvSolverAPIKey, "")

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "txdps.db")
	return config
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "txdps",
		Flags:    globalFlags(),
		Before:   r.Before,
		Commands: r.register(),
		Writer:   io.Discard,
	}
	envFile := filepath.Join(t.TempDir(), "missing.env")
	argv := append([]string{"txdps", "--env-file", envFile}, args...)
	return app.Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			browser := &tu.MockBrowser{}
			solver := &tu.ScriptedSolver{}

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Browser: browser,
				Solver:  solver,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.browserLoginer() != browser {
				t.Error("expected browser to be used")
			}
			if runner.captchaSolver() != solver {
				t.Error("expected solver to be used")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.clock == nil {
				t.Error("expected default clock to be set")
			}
		})

		t.Run("builds collaborators from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if _, ok := runner.browserLoginer().(*services.RodBrowser); !ok {
				t.Errorf("expected *services.RodBrowser, got %T", runner.browserLoginer())
			}
			if _, ok := runner.captchaSolver().(*services.CapSolver); !ok {
				t.Errorf("expected *services.CapSolver, got %T", runner.captchaSolver())
			}
			if _, ok := runner.probeScanner().(*services.ProbeScanner); !ok {
				t.Errorf("expected *services.ProbeScanner, got %T", runner.probeScanner())
			}
			if runner.tokenPrompter() == nil {
				t.Error("expected a token prompter")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"n": 1}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"n\":1}\n" {
				t.Errorf("expected compact JSON, got %q", output.String())
			}
		})

		t.Run("fails on unmarshalable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected marshal error")
			}
		})

		t.Run("fails on write error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writeJSON("x", false); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s\n", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world\n" {
			t.Errorf("expected %q, got %q", "hello world\n", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("x"); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestBefore(t *testing.T) {
	t.Run("loads config file", func(t *testing.T) {
		testConfig(t)
		t.Chdir(t.TempDir())
		path := filepath.Join(t.TempDir(), "config.toml")
		config := shared.DefaultConfig()
		config.Captcha.Strategy = "manual"
		config.App.MaxRetry = 7
		if err := shared.SaveConfig(path, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runApp(t, runner, "--config", path, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if runner.config.Captcha.Strategy != "manual" {
			t.Errorf("expected strategy manual, got %s", runner.config.Captcha.Strategy)
		}
		if runner.config.App.MaxRetry != 7 {
			t.Errorf("expected max retry 7, got %d", runner.config.App.MaxRetry)
		}
		if runner.configPath != path {
			t.Errorf("expected config path %s, got %s", path, runner.configPath)
		}
	})

	t.Run("missing config file uses defaults", func(t *testing.T) {
		testConfig(t)
		t.Chdir(t.TempDir())
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		path := filepath.Join(t.TempDir(), "absent.toml")
		if err := runApp(t, runner, "--config", path, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.config.Captcha.Strategy != shared.DefaultConfig().Captcha.Strategy {
			t.Errorf("expected default strategy, got %s", runner.config.Captcha.Strategy)
		}
	})

	t.Run("invalid config file fails", func(t *testing.T) {
		testConfig(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[app\ninterval ="), 0600); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runApp(t, runner, "--config", path, "auth", "status"); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("environment overrides config", func(t *testing.T) {
		config := testConfig(t)
		t.Setenv(shared.EnvCaptchaStrategy, "solver")
		t.Setenv(shared.EnvAuthToken, "env-token-123456")

		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})
		if err := runApp(t, runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if runner.config.Captcha.Strategy != "solver" {
			t.Errorf("expected strategy from env, got %s", runner.config.Captcha.Strategy)
		}
		if runner.config.App.AuthToken != "env-token-123456" {
			t.Errorf("expected auth token from env, got %s", runner.config.App.AuthToken)
		}
	})

	t.Run("verbose enables debug logging", func(t *testing.T) {
		config := testConfig(t)
		logger := shared.NewLogger(&bytes.Buffer{})
		runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: &bytes.Buffer{}})

		if err := runApp(t, runner, "--verbose", "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("token via browser prints masked token and stores it", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		browser := &tu.MockBrowser{Token: "browser-token-abcdef"}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Browser: browser})

		if err := runApp(t, runner, "auth", "token"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if browser.Calls != 1 {
			t.Errorf("expected 1 browser login, got %d", browser.Calls)
		}
		if !strings.Contains(output.String(), "✓ Auth token acquired via browser") {
			t.Errorf("expected success message, got %s", output.String())
		}
		if !strings.Contains(output.String(), shared.MaskToken("browser-token-abcdef")) {
			t.Errorf("expected masked token, got %s", output.String())
		}
		if strings.Contains(output.String(), "browser-token-abcdef") {
			t.Error("expected token to be masked")
		}

		output.Reset()
		if err := runApp(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Stored token: ✓") {
			t.Errorf("expected stored token, got %s", output.String())
		}
	})

	t.Run("token via manual override with reveal and json", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		prompter := &tu.MockPrompter{Response: services.PromptResponse{Token: "pasted-token-1234"}}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Prompter: prompter})

		if err := runApp(t, runner, "auth", "token", "--strategy", "manual", "--reveal", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out authTokenOutput
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON output, got %s", output.String())
		}
		if out.Strategy != "manual" || out.Token != "pasted-token-1234" || out.Masked {
			t.Errorf("unexpected output %+v", out)
		}
	})

	t.Run("failed acquisition returns ErrAuthFailed", func(t *testing.T) {
		config := testConfig(t)
		browser := &tu.MockBrowser{Err: errors.New("navigation failed")}
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Browser: browser, Logger: shared.NewLogger(io.Discard)})

		err := runApp(t, runner, "auth", "token")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("invalid strategy", func(t *testing.T) {
		config := testConfig(t)
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		err := runApp(t, runner, "auth", "token", "--strategy", "fax")
		if !errors.Is(err, shared.ErrInvalidStrategy) {
			t.Errorf("expected ErrInvalidStrategy, got %v", err)
		}
	})

	t.Run("status without stored tokens", func(t *testing.T) {
		config := testConfig(t)
		config.App.AuthToken = "configured-token-xyz"
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		if err := runApp(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Strategy: browser") {
			t.Errorf("expected strategy line, got %s", result)
		}
		if !strings.Contains(result, "Configured token: "+shared.MaskToken("configured-token-xyz")) {
			t.Errorf("expected masked configured token, got %s", result)
		}
		if !strings.Contains(result, "Stored token: ✗ none acquired yet") {
			t.Errorf("expected no stored token, got %s", result)
		}
	})
}

func TestCaptchaCommands(t *testing.T) {
	t.Run("solve prints token and records history", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		solver := &tu.ScriptedSolver{
			TaskIDs: []string{"A"},
			Polls:   map[string][]tu.PollStep{"A": {{Result: services.Ready("solved-captcha")}}},
		}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Solver: solver})

		if err := runApp(t, runner, "captcha", "solve"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "solved-captcha") {
			t.Errorf("expected token in output, got %s", output.String())
		}
		if solver.CreateCalls() != 1 {
			t.Errorf("expected 1 task, got %d", solver.CreateCalls())
		}

		output.Reset()
		if err := runApp(t, runner, "history", "--format", "json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var out historyOutput
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON output, got %s", output.String())
		}
		if len(out.Solves) != 1 || out.Solves[0].Outcome != "ready" || out.Solves[0].Tasks != 1 {
			t.Errorf("unexpected solves %+v", out.Solves)
		}
	})

	t.Run("solve json output", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		solver := &tu.ScriptedSolver{Polls: map[string][]tu.PollStep{"task-1": {{Result: services.Ready("tok")}}}}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Solver: solver})

		if err := runApp(t, runner, "captcha", "solve", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"token": "tok"`) {
			t.Errorf("expected JSON token, got %s", output.String())
		}
	})

	t.Run("task creation failure returns ErrSolverTask", func(t *testing.T) {
		config := testConfig(t)
		solver := &tu.ScriptedSolver{CreateErrs: []error{errors.New("boom")}}
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Solver: solver, Logger: shared.NewLogger(io.Discard)})

		err := runApp(t, runner, "captcha", "solve")
		if !errors.Is(err, shared.ErrSolverTask) {
			t.Errorf("expected ErrSolverTask, got %v", err)
		}
		if len(solver.PollCalls()) != 0 {
			t.Errorf("expected no polls, got %d", len(solver.PollCalls()))
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes template with strategy", func(t *testing.T) {
		testConfig(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runApp(t, runner, "--config", path, "setup", "config", "--strategy", "Manual"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load written config: %v", err)
		}
		if config.Captcha.Strategy != "manual" {
			t.Errorf("expected strategy manual, got %s", config.Captcha.Strategy)
		}
		if !strings.Contains(output.String(), "✓ Config written to") {
			t.Errorf("expected success message, got %s", output.String())
		}
	})

	t.Run("config refuses to overwrite without force", func(t *testing.T) {
		testConfig(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := shared.CreateConfigFile(path); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		err := runApp(t, runner, "--config", path, "setup", "config")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		runner = NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runApp(t, runner, "--config", path, "setup", "config", "--force"); err != nil {
			t.Errorf("expected overwrite with --force, got %v", err)
		}
	})

	t.Run("database migrates and rolls back", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		if err := runApp(t, runner, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "schema version 2") {
			t.Errorf("expected version 2, got %s", output.String())
		}

		output.Reset()
		if err := runApp(t, runner, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "schema version 1") {
			t.Errorf("expected version 1, got %s", output.String())
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("text output after acquisition", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Browser: &tu.MockBrowser{Token: "history-token-abcd"}})

		if err := runApp(t, runner, "auth", "token"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		output.Reset()
		if err := runApp(t, runner, "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Tokens: 1") {
			t.Errorf("expected one token, got %s", output.String())
		}
		if !strings.Contains(output.String(), "via browser") {
			t.Errorf("expected strategy, got %s", output.String())
		}
	})

	t.Run("csv export to files", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		base := filepath.Join(t.TempDir(), "out")
		if err := runApp(t, runner, "history", "--format", "csv", "--output", base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, base+"_tokens.csv")
		tu.AssertFileExists(t, base+"_solves.csv")
	})

	t.Run("unknown format", func(t *testing.T) {
		config := testConfig(t)
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		err := runApp(t, runner, "history", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRunCommand(t *testing.T) {
	t.Run("once with pre-supplied token", func(t *testing.T) {
		config := testConfig(t)
		config.Captcha.Strategy = "solver"
		config.App.AuthToken = "presupplied-token"
		output := &bytes.Buffer{}
		scanner := &tu.MockScanner{Steps: []tu.ScanStep{{Status: http.StatusOK}}}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Scanner: scanner})

		if err := runApp(t, runner, "run", "--once"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "Cycle 1: scanned (status 200)\n" {
			t.Errorf("unexpected output %q", output.String())
		}
		if len(scanner.Requests()) != 1 {
			t.Errorf("expected 1 scan, got %d", len(scanner.Requests()))
		}
	})

	t.Run("once without a token skips the scan", func(t *testing.T) {
		config := testConfig(t)
		config.Captcha.Strategy = "solver"
		output := &bytes.Buffer{}
		scanner := &tu.MockScanner{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Scanner: scanner, Logger: shared.NewLogger(io.Discard)})

		if err := runApp(t, runner, "run", "--once"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(output.String(), "Cycle 1: unauthenticated") {
			t.Errorf("unexpected output %q", output.String())
		}
		if len(scanner.Requests()) != 0 {
			t.Errorf("expected no scans, got %d", len(scanner.Requests()))
		}
	})

	t.Run("token endpoint requires manual strategy", func(t *testing.T) {
		config := testConfig(t)
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		err := runApp(t, runner, "run", "--token-endpoint")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		config := testConfig(t)
		config.Captcha.Strategy = "solver"
		config.App.AuthToken = "presupplied-token"
		scanner := &tu.MockScanner{}
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Scanner: scanner, Logger: shared.NewLogger(io.Discard)})

		app := &cli.Command{Name: "txdps", Flags: globalFlags(), Before: runner.Before, Commands: runner.register()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		envFile := filepath.Join(t.TempDir(), "missing.env")
		if err := app.Run(ctx, []string{"txdps", "--env-file", envFile, "run"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(scanner.Requests()) != 1 {
			t.Errorf("expected the first cycle to run, got %d scans", len(scanner.Requests()))
		}
	})
}
