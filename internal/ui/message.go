package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgProgressDone
)

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// progressDoneMsg is the constructor for [MsgProgressDone]
func progressDoneMsg() Msg {
	return Msg{kind: MsgProgressDone}
}
