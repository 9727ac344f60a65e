// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCommandTimeout means a command produced no idle window before its deadline.
	ErrCommandTimeout = errors.New("collector: command timed out")
	// ErrCommandExecution means writing to or reading from the shell failed.
	ErrCommandExecution = errors.New("collector: command execution failed")
	// ErrNoCommands is returned for an empty battery.
	ErrNoCommands = errors.New("collector: no commands to run")
)

// CommandError describes the command that aborted a run.
type CommandError struct {
	Kind    error // ErrCommandTimeout or ErrCommandExecution
	Index   int
	Total   int
	Command string
	Elapsed time.Duration
	Err     error // underlying cause, may be nil for timeouts
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %d/%d %q", e.Index, e.Total, e.Command)
	if errors.Is(e.Kind, ErrCommandTimeout) {
		msg = fmt.Sprintf("%s: timed out after %s", msg, e.Elapsed.Round(time.Millisecond))
	} else {
		msg = fmt.Sprintf("%s: execution failed", msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches the error kind.
func (e *CommandError) Is(target error) bool { return target == e.Kind }

func (e *CommandError) Unwrap() error { return e.Err }
