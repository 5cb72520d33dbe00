package tui

import (
	"sendertally/internal/model"
	"sendertally/internal/tally"
)

// Async message types for Bubble Tea commands.

type progressMsg tally.Progress

type runDoneMsg struct {
	result tally.Result
	err    error
}

type trashDoneMsg struct {
	senders []string
	report  model.TrashReport
	err     error
}

type statusMsg string
