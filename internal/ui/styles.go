package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
)

const (
	colorAccent = lipgloss.Color("#7D56F4")
	colorOK     = lipgloss.Color("#04B575")
	colorErr    = lipgloss.Color("#FF0000")
	colorWarn   = lipgloss.Color("#FFA500")
	colorMuted  = lipgloss.Color("#626262")
)

// styles is the stylesheet shared by the token prompt and the solve progress view.
var styles = struct {
	title   lipgloss.Style
	spinner lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
}{
	title:   lipgloss.NewStyle().Foreground(colorAccent).Bold(true).MarginBottom(1),
	spinner: lipgloss.NewStyle().Foreground(colorAccent),
	ok:      lipgloss.NewStyle().Foreground(colorOK).Bold(true),
	err:     lipgloss.NewStyle().Foreground(colorErr).Bold(true),
	warn:    lipgloss.NewStyle().Foreground(colorWarn),
	help:    lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
}

// phaseStyle returns the style for a terminal or restart phase; other phases render plain.
func phaseStyle(phase tasks.Phase) (lipgloss.Style, bool) {
	switch phase {
	case tasks.Ready:
		return styles.ok, true
	case tasks.GiveUp:
		return styles.err, true
	case tasks.Restart:
		return styles.warn, true
	default:
		return lipgloss.Style{}, false
	}
}
