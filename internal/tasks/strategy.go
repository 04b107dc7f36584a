package tasks

import (
	"fmt"
	"strings"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// Strategy selects how [Orchestrator.GetAuthToken] acquires a token.
type Strategy int

const (
	StrategyBrowser Strategy = iota // automated browser login
	StrategyManual                  // operator pastes a token
	StrategySolver                  // token supplied up front
)

// ParseStrategy maps a configured strategy name onto a [Strategy].
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "browser":
		return StrategyBrowser, nil
	case "manual":
		return StrategyManual, nil
	case "solver":
		return StrategySolver, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected browser, manual or solver)", shared.ErrInvalidStrategy, s)
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyBrowser:
		return "browser"
	case StrategyManual:
		return "manual"
	case StrategySolver:
		return "solver"
	default:
		return ""
	}
}
