package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// CaptchaSolveRepository persists [models.CaptchaSolve] summaries.
type CaptchaSolveRepository struct {
	db *sql.DB
}

// NewCaptchaSolveRepository creates a new [CaptchaSolveRepository] with the given database connection
func NewCaptchaSolveRepository(db *sql.DB) *CaptchaSolveRepository {
	return &CaptchaSolveRepository{db: db}
}

// Create inserts a solve summary with a generated ID
func (r *CaptchaSolveRepository) Create(solve *models.CaptchaSolve) error {
	if err := solve.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	solve.ID = shared.GenerateID()

	query := `
		INSERT INTO captcha_solves (id, outcome, tasks_created, polls, restarts, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		solve.ID,
		string(solve.Outcome),
		solve.TasksCreated,
		solve.Polls,
		solve.Restarts,
		solve.Duration.Milliseconds(),
		solve.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert captcha solve: %w", err)
	}

	return nil
}

// List returns up to limit solves, newest first
func (r *CaptchaSolveRepository) List(limit int) ([]models.CaptchaSolve, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, outcome, tasks_created, polls, restarts, duration_ms, started_at
		FROM captcha_solves
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query captcha solves: %w", err)
	}
	defer rows.Close()

	var solves []models.CaptchaSolve
	for rows.Next() {
		var (
			solve      models.CaptchaSolve
			outcome    string
			durationMS int64
		)
		err := rows.Scan(&solve.ID, &outcome, &solve.TasksCreated, &solve.Polls, &solve.Restarts, &durationMS, &solve.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan captcha solve: %w", err)
		}
		solve.Outcome = models.SolveOutcome(outcome)
		solve.Duration = time.Duration(durationMS) * time.Millisecond
		solves = append(solves, solve)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captcha solves: %w", err)
	}

	return solves, nil
}
