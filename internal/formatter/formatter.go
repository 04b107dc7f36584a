// package formatter provides functions to export token and captcha solve history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// History is the persisted record of acquired tokens and captcha resolutions, newest first.
//
// Token values are always masked on export.
type History struct {
	Tokens []models.Token
	Solves []models.CaptchaSolve
}

// TokensToCSV converts tokens to CSV format with columns: ID, Strategy, Token, Acquired At
func TokensToCSV(tokens []models.Token) ([]byte, error) {
	records := make([][]string, 0, len(tokens))
	for _, token := range tokens {
		records = append(records, []string{
			token.ID,
			token.Strategy,
			shared.MaskToken(token.Value),
			token.AcquiredAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV([]string{"ID", "Strategy", "Token", "Acquired At"}, records)
}

// SolvesToCSV converts captcha solves to CSV format with columns: ID, Outcome, Tasks, Polls, Restarts, Duration (ms), Started At
func SolvesToCSV(solves []models.CaptchaSolve) ([]byte, error) {
	records := make([][]string, 0, len(solves))
	for _, solve := range solves {
		records = append(records, []string{
			solve.ID,
			string(solve.Outcome),
			strconv.Itoa(solve.TasksCreated),
			strconv.Itoa(solve.Polls),
			strconv.Itoa(solve.Restarts),
			strconv.FormatInt(solve.Duration.Milliseconds(), 10),
			solve.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV([]string{"ID", "Outcome", "Tasks", "Polls", "Restarts", "Duration (ms)", "Started At"}, records)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a History to Markdown with one table per record kind
func ExportToMarkdown(history *History) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Scheduler History\n\n")
	buf.WriteString(fmt.Sprintf("**Tokens**: %d\n", len(history.Tokens)))
	buf.WriteString(fmt.Sprintf("**Captcha Solves**: %d (%d ready)\n\n", len(history.Solves), countReady(history.Solves)))

	buf.WriteString("## Tokens\n\n")
	if len(history.Tokens) == 0 {
		buf.WriteString("_No tokens acquired._\n\n")
	} else {
		buf.WriteString("| Acquired At | Strategy | Token |\n")
		buf.WriteString("|---|---|---|\n")
		for _, token := range history.Tokens {
			buf.WriteString(fmt.Sprintf("| %s | %s | `%s` |\n",
				token.AcquiredAt.UTC().Format(time.RFC3339), token.Strategy, shared.MaskToken(token.Value)))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Captcha Solves\n\n")
	if len(history.Solves) == 0 {
		buf.WriteString("_No captcha solves recorded._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Started At | Outcome | Tasks | Polls | Restarts | Duration |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, solve := range history.Solves {
		buf.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s |\n",
			solve.StartedAt.UTC().Format(time.RFC3339), solve.Outcome,
			solve.TasksCreated, solve.Polls, solve.Restarts, solve.Duration.Round(time.Millisecond)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a History to plain text format
func ExportToText(history *History) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Tokens: %d\n", len(history.Tokens)))
	for i, token := range history.Tokens {
		buf.WriteString(fmt.Sprintf("%d. %s via %s (%s)\n",
			i+1, token.AcquiredAt.UTC().Format(time.DateTime), token.Strategy, shared.MaskToken(token.Value)))
	}

	buf.WriteString(fmt.Sprintf("\nCaptcha Solves: %d\n", len(history.Solves)))
	for i, solve := range history.Solves {
		buf.WriteString(fmt.Sprintf("%d. %s %s after %d task(s), %d poll(s) in %s\n",
			i+1, solve.StartedAt.UTC().Format(time.DateTime), solve.Outcome,
			solve.TasksCreated, solve.Polls, solve.Duration.Round(time.Millisecond)))
	}

	return buf.Bytes(), nil
}

func countReady(solves []models.CaptchaSolve) int {
	n := 0
	for _, solve := range solves {
		if solve.Outcome == models.SolveReady {
			n++
		}
	}
	return n
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TokensFile string
	SolvesFile string
}

// WriteCSVExport writes {base}_tokens.csv and {base}_solves.csv.
//
// Defaults to "history" as the base filename.
func WriteCSVExport(history *History, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "history"
	}

	tokensCSV, err := TokensToCSV(history.Tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens CSV: %w", err)
	}

	tokensFile := baseFilepath + "_tokens.csv"
	if err := os.WriteFile(tokensFile, tokensCSV, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	solvesCSV, err := SolvesToCSV(history.Solves)
	if err != nil {
		return nil, fmt.Errorf("failed to generate solves CSV: %w", err)
	}

	solvesFile := baseFilepath + "_solves.csv"
	if err := os.WriteFile(solvesFile, solvesCSV, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	return &CSVExportResult{TokensFile: tokensFile, SolvesFile: solvesFile}, nil
}

// WriteMarkdownExport exports the history to a Markdown file.
//
// Defaults to history.md as the filename.
func WriteMarkdownExport(history *History, filepath string) (string, error) {
	if filepath == "" {
		filepath = "history.md"
	}

	mdData, err := ExportToMarkdown(history)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports the history to plain text format.
//
// Defaults to history.txt as the filename.
func WriteTextExport(history *History, filepath string) (string, error) {
	if filepath == "" {
		filepath = "history.txt"
	}

	textData, err := ExportToText(history)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
