// Package bubbletea provides the interactive chat TUI for one assistant.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/vox"
)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. When ctx is cancelled the program quits. A stream still running
// on exit is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	}
	return err
}

// ChunkMsg carries one piece of the reply being streamed.
type ChunkMsg struct {
	Text string
}

// WarningMsg reports a non-fatal stream error, such as a malformed record
// that was skipped.
type WarningMsg struct {
	Err error
}

// StreamDoneMsg reports how the active stream ended. Usage is set only
// when State is vox.StreamCompleted; Err only when it is not.
type StreamDoneMsg struct {
	State vox.StreamState
	Usage vox.Usage
	Err   error
}

// HistoryMsg carries the conversation loaded from the backend.
type HistoryMsg struct {
	History vox.History
	Err     error
}

// ResetMsg reports the outcome of a history reset.
type ResetMsg struct {
	Err error
}
