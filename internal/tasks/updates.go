package tasks

import (
	"fmt"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

// ProgressUpdate represents a progress event of the orchestrator.
//
// Sent to the CLI or status layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Poll attempt, restart count or cycle number depending on phase
	Total   int    // Upper bound of Step when one exists
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	CreatingTask
	Polling
	Ready
	Restart
	GiveUp
	Scan
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case CreatingTask:
		return "creating_task"
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case Restart:
		return "restart"
	case GiveUp:
		return "give_up"
	case Scan:
		return "scan"
	default:
		return ""
	}
}

func authenticatedUpdate(strategy Strategy, token string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Auth token acquired via %s (%s)", strategy, shared.MaskToken(token)),
	}
}

func creatingTaskUpdate(restarts int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatingTask,
		Step:    restarts,
		Message: "Creating captcha solver task...",
	}
}

func pollingUpdate(taskID string, retries, max int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Polling,
		Step:    retries,
		Total:   max,
		Message: fmt.Sprintf("[%d/%d] Polling task %s...", retries, max, taskID),
		Data:    taskID,
	}
}

func readyUpdate(taskID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Ready,
		Step:    1,
		Total:   1,
		Message: "✓ Captcha token received",
		Data:    taskID,
	}
}

func restartUpdate(restarts int, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Restart,
		Step:    restarts,
		Message: fmt.Sprintf("Restarting captcha task (%s)", reason),
	}
}

func giveUpUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GiveUp,
		Message: fmt.Sprintf("✗ Captcha resolution failed: %v", err),
	}
}

func scanUpdate(cycle int, summary CycleSummary) ProgressUpdate {
	msg := fmt.Sprintf("Cycle %d: %s", cycle, summary.Outcome)
	if summary.Error != "" {
		msg = fmt.Sprintf("Cycle %d: %s (%s)", cycle, summary.Outcome, summary.Error)
	}
	return ProgressUpdate{
		Phase:   Scan,
		Step:    cycle,
		Message: msg,
		Data:    summary,
	}
}
