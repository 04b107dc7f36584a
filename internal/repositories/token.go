package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/models"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// TokenRepository persists [models.Token] records.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a token with a generated ID
func (r *TokenRepository) Create(token *models.Token) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	token.ID = shared.GenerateID()

	query := `INSERT INTO tokens (id, strategy, value, acquired_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Exec(query, token.ID, token.Strategy, token.Value, token.AcquiredAt); err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

// Latest returns the most recently acquired token.
//
// Returns [shared.ErrTokenNotFound] when the table is empty.
func (r *TokenRepository) Latest() (*models.Token, error) {
	query := `
		SELECT id, strategy, value, acquired_at
		FROM tokens
		ORDER BY acquired_at DESC
		LIMIT 1
	`

	var token models.Token
	err := r.db.QueryRow(query).Scan(&token.ID, &token.Strategy, &token.Value, &token.AcquiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest token: %w", err)
	}

	return &token, nil
}

// List returns up to limit tokens, newest first
func (r *TokenRepository) List(limit int) ([]models.Token, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, strategy, value, acquired_at
		FROM tokens
		ORDER BY acquired_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.Token
	for rows.Next() {
		var token models.Token
		if err := rows.Scan(&token.ID, &token.Strategy, &token.Value, &token.AcquiredAt); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}

	return tokens, nil
}
