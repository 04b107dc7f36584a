// package models defines the persisted records of the scheduler
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for persisted records.
type Model interface {
	Key() string     // Key returns the unique identifier for this record
	Validate() error // Validate checks if the record's data is valid and returns an error if not
}

// Token is an auth token acquired by one of the auth strategies.
type Token struct {
	ID         string
	Strategy   string
	Value      string
	AcquiredAt time.Time
}

// NewToken creates a [Token] stamped with the current time. The ID is assigned on persistence.
func NewToken(strategy, value string) *Token {
	return &Token{Strategy: strategy, Value: value, AcquiredAt: time.Now().UTC()}
}

func (t *Token) Key() string { return t.ID }

// Validate rejects empty token values; an empty string means "no session" and is never stored.
func (t *Token) Validate() error {
	if strings.TrimSpace(t.Value) == "" {
		return fmt.Errorf("token value is required")
	}
	if t.Strategy == "" {
		return fmt.Errorf("token strategy is required")
	}
	return nil
}

// SolveOutcome is the terminal state of one captcha resolution.
type SolveOutcome string

const (
	SolveReady     SolveOutcome = "ready"
	SolveGiveUp    SolveOutcome = "give_up"
	SolveCancelled SolveOutcome = "cancelled"
)

// CaptchaSolve summarizes one captcha resolution: how many solver tasks it created and polled before it ended.
type CaptchaSolve struct {
	ID           string
	Outcome      SolveOutcome
	TasksCreated int
	Polls        int
	Restarts     int
	Duration     time.Duration
	StartedAt    time.Time
}

func (c *CaptchaSolve) Key() string { return c.ID }

func (c *CaptchaSolve) Validate() error {
	switch c.Outcome {
	case SolveReady, SolveGiveUp, SolveCancelled:
	default:
		return fmt.Errorf("unknown solve outcome %q", c.Outcome)
	}
	if c.StartedAt.IsZero() {
		return fmt.Errorf("solve start time is required")
	}
	return nil
}

var (
	_ Model = (*Token)(nil)
	_ Model = (*CaptchaSolve)(nil)
)
