package repositories

import (
	"database/sql"
	"fmt"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
)

// HistoryStore implements tasks.Store using [TokenRepository] and [CaptchaSolveRepository].
type HistoryStore struct {
	tokens *TokenRepository
	solves *CaptchaSolveRepository
}

// NewHistoryStore creates a [HistoryStore] over a migrated database
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{
		tokens: NewTokenRepository(db),
		solves: NewCaptchaSolveRepository(db),
	}
}

// SaveToken records a successfully acquired token.
func (h *HistoryStore) SaveToken(strategy, value string) error {
	if err := h.tokens.Create(models.NewToken(strategy, value)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LatestToken returns the value of the newest persisted token.
func (h *HistoryStore) LatestToken() (string, error) {
	token, err := h.tokens.Latest()
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// RecordSolve records a captcha resolution summary.
func (h *HistoryStore) RecordSolve(solve models.CaptchaSolve) error {
	if err := h.solves.Create(&solve); err != nil {
		return fmt.Errorf("failed to record captcha solve: %w", err)
	}
	return nil
}

// Tokens returns the underlying token repository.
func (h *HistoryStore) Tokens() *TokenRepository { return h.tokens }

// Solves returns the underlying solve repository.
func (h *HistoryStore) Solves() *CaptchaSolveRepository { return h.solves }
