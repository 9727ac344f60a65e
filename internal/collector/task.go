// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Outcome is decided once per task.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
)

// Task is one executed command.
type Task struct {
	Index   int // 1-based
	Total   int
	Command string
	Raw     []byte
	Output  string // cleaned
	Pages   int    // continue keystrokes sent
	Elapsed time.Duration
	Outcome Outcome
}

// ansiCSI matches VT100/ANSI control sequences, e.g. the cursor moves VRP
// emits after erasing the pagination prompt.
var ansiCSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// Clean strips the first echo of command, every pager marker and terminal
// control sequences, then trims surrounding whitespace.
func Clean(raw, command, marker string) string {
	text := ansiCSI.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	if command != "" {
		text = strings.Replace(text, command, "", 1)
	}
	if marker != "" {
		text = strings.ReplaceAll(text, marker, "")
	}
	return strings.TrimSpace(text)
}

// Fragment formats one task for the report body.
func (t Task) Fragment() string {
	return fmt.Sprintf("=== Command %d/%d: %s ===\n%s", t.Index, t.Total, t.Command, t.Output)
}

// BuildReport joins task fragments, in order, separated by a blank line.
func BuildReport(tasks []Task) string {
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = t.Fragment()
	}
	return strings.Join(parts, "\n\n")
}
