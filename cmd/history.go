package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/formatter"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/repositories"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/urfave/cli/v3"
)

type historyOutput struct {
	Tokens []tokenRecord `json:"tokens"`
	Solves []solveRecord `json:"solves"`
}

type tokenRecord struct {
	ID         string `json:"id"`
	Strategy   string `json:"strategy"`
	Token      string `json:"token"`
	AcquiredAt string `json:"acquired_at"`
}

type solveRecord struct {
	ID         string `json:"id"`
	Outcome    string `json:"outcome"`
	Tasks      int    `json:"tasks"`
	Polls      int    `json:"polls"`
	Restarts   int    `json:"restarts"`
	DurationMS int64  `json:"duration_ms"`
	StartedAt  string `json:"started_at"`
}

// History prints or exports stored tokens and captcha solve summaries.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "text", "markdown", "md", "csv", "json":
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer db.Close()

	store := repositories.NewHistoryStore(db)
	limit := cmd.Int("limit")

	tokens, err := store.Tokens().List(limit)
	if err != nil {
		return err
	}
	solves, err := store.Solves().List(limit)
	if err != nil {
		return err
	}

	history := &formatter.History{Tokens: tokens, Solves: solves}
	output := cmd.String("output")

	switch format {
	case "json":
		return r.writeJSON(toHistoryOutput(history), true)
	case "csv":
		if output != "" {
			result, err := formatter.WriteCSVExport(history, output)
			if err != nil {
				return err
			}
			return r.writePlain("✓ Exported %s and %s\n", result.TokensFile, result.SolvesFile)
		}
		tokensCSV, err := formatter.TokensToCSV(history.Tokens)
		if err != nil {
			return err
		}
		solvesCSV, err := formatter.SolvesToCSV(history.Solves)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n%s", tokensCSV, solvesCSV)
	case "markdown", "md":
		if output != "" {
			path, err := formatter.WriteMarkdownExport(history, output)
			if err != nil {
				return err
			}
			return r.writePlain("✓ Exported %s\n", path)
		}
		data, err := formatter.ExportToMarkdown(history)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		if output != "" {
			path, err := formatter.WriteTextExport(history, output)
			if err != nil {
				return err
			}
			return r.writePlain("✓ Exported %s\n", path)
		}
		data, err := formatter.ExportToText(history)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}
}

func toHistoryOutput(history *formatter.History) historyOutput {
	out := historyOutput{Tokens: []tokenRecord{}, Solves: []solveRecord{}}
	for _, t := range history.Tokens {
		out.Tokens = append(out.Tokens, tokenRecord{
			ID:         t.ID,
			Strategy:   t.Strategy,
			Token:      shared.MaskToken(t.Value),
			AcquiredAt: t.AcquiredAt.UTC().Format(time.RFC3339),
		})
	}
	for _, s := range history.Solves {
		out.Solves = append(out.Solves, solveRecord{
			ID:         s.ID,
			Outcome:    string(s.Outcome),
			Tasks:      s.TasksCreated,
			Polls:      s.Polls,
			Restarts:   s.Restarts,
			DurationMS: s.Duration.Milliseconds(),
			StartedAt:  s.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
