// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReportFragmentsInOrder(t *testing.T) {
	term := &scriptedTerminal{respond: vrp(map[string]string{
		"display version":   "VRP (R) software, Version 5.160",
		"display cpu-usage": "CPU utilization for five seconds: 12%",
	})}
	rec := &recorder{}

	tasks, err := NewRunner(fastPolicy()).Run(context.Background(), term,
		[]string{"display version", "display cpu-usage"}, rec)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for i, task := range tasks {
		assert.Equal(t, i+1, task.Index)
		assert.Equal(t, 2, task.Total)
		assert.Equal(t, OutcomeSuccess, task.Outcome)
	}
	assert.Equal(t, "VRP (R) software, Version 5.160\n<HUAWEI>", tasks[0].Output)

	report := BuildReport(tasks)
	assert.True(t, strings.HasPrefix(report, "=== Command 1/2: display version ===\n"))
	assert.Contains(t, report, "\n\n=== Command 2/2: display cpu-usage ===\nCPU utilization for five seconds: 12%")
	assert.Less(t, strings.Index(report, "Command 1/2"), strings.Index(report, "Command 2/2"))

	msgs := rec.messages()
	assert.Equal(t, "executing command 1/2: display version", msgs[0])
	assert.Contains(t, msgs, "command 1/2 finished (40 characters)")
	assert.True(t, strings.HasPrefix(msgs[len(msgs)-1], "all 2 commands finished"))
	for _, ev := range rec.events {
		assert.Equal(t, progress.StatusCollect, ev.Status)
	}
}

func TestRun_PaginationSendsOneKeyPerMarker(t *testing.T) {
	pages := 0
	term := &scriptedTerminal{}
	term.respond = func(input string) []string {
		switch input {
		case "display ip routing-table\n":
			return []string{"display ip routing-table\r\nRoute 1\r\n  ---- More ----"}
		case " ":
			pages++
			if pages < 3 {
				return []string{"\x1b[42D                                          \x1b[42DRoute " + string(rune('1'+pages)) + "\r\n  ---- More ----"}
			}
			return []string{"\x1b[42DRoute 4\r\n<HUAWEI>"}
		}
		return nil
	}
	rec := &recorder{}

	tasks, err := NewRunner(fastPolicy()).Run(context.Background(), term, []string{"display ip routing-table"}, rec)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	assert.Equal(t, 3, term.keystrokes(" "), "K markers yield exactly K continue keystrokes")
	assert.Equal(t, 3, tasks[0].Pages)
	out := tasks[0].Output
	assert.NotContains(t, out, "---- More ----")
	assert.NotContains(t, out, "\x1b")
	assert.NotContains(t, out, "display ip routing-table")
	for _, route := range []string{"Route 1", "Route 2", "Route 3", "Route 4"} {
		assert.Contains(t, out, route)
	}

	loading := 0
	for _, m := range rec.messages() {
		if strings.Contains(m, "loading next page") {
			loading++
		}
	}
	assert.Equal(t, 3, loading)
}

func TestRun_MarkerSplitAcrossReads(t *testing.T) {
	term := &scriptedTerminal{}
	term.respond = func(input string) []string {
		if input == " " {
			return []string{"tail\r\n<HUAWEI>"}
		}
		return []string{"display interface brief\r\nGE0/0/1 up\r\n---- Mo", "re ----"}
	}

	tasks, err := NewRunner(fastPolicy()).Run(context.Background(), term, []string{"display interface brief"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, term.keystrokes(" "))
	assert.Equal(t, "GE0/0/1 up\ntail\n<HUAWEI>", tasks[0].Output)
}

func TestRun_TimeoutAbortsWithinBound(t *testing.T) {
	term := &scriptedTerminal{endless: true}
	p := fastPolicy()

	start := time.Now()
	tasks, err := NewRunner(p).Run(context.Background(), term, []string{"display logbuffer", "display version"}, nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, tasks, "no partial report")
	assert.ErrorIs(t, err, ErrCommandTimeout)
	assert.NotErrorIs(t, err, ErrCommandExecution)

	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Index)
	assert.Equal(t, "display logbuffer", ce.Command)

	// CommandTimeout plus one poll interval, with scheduler slack.
	assert.Less(t, elapsed, p.CommandTimeout+p.PollInterval+200*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, p.CommandTimeout)
	assert.Equal(t, []string{"display logbuffer\n"}, term.sent, "second command never runs")
}

func TestRun_ShellClosedIsExecutionError(t *testing.T) {
	term := &scriptedTerminal{eof: true}
	_, err := NewRunner(fastPolicy()).Run(context.Background(), term, []string{"display version"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandExecution)
	assert.Contains(t, err.Error(), "shell closed by device")
}

func TestRun_SendFailureIsExecutionError(t *testing.T) {
	term := &scriptedTerminal{sendErr: errors.New("broken pipe")}
	rec := &recorder{}
	_, err := NewRunner(fastPolicy()).Run(context.Background(), term, []string{"display version"}, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandExecution)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Contains(t, rec.messages()[len(rec.messages())-1], "failed")
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	term := &scriptedTerminal{}
	_, err := NewRunner(fastPolicy()).Run(ctx, term, []string{"display version"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandExecution)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyBattery(t *testing.T) {
	_, err := NewRunner(fastPolicy()).Run(context.Background(), &scriptedTerminal{}, nil, nil)
	assert.ErrorIs(t, err, ErrNoCommands)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		command string
		want    string
	}{
		{
			name:    "strips only first echo",
			raw:     "display version\r\ndisplay version is not a keyword\r\n",
			command: "display version",
			want:    "display version is not a keyword",
		},
		{
			name:    "removes markers and control sequences",
			raw:     "a\r\n  ---- More ----\x1b[16D                \x1b[16Db\r\n",
			command: "x",
			want:    "a\n                  b",
		},
		{
			name:    "empty output",
			raw:     "display clock\r\n",
			command: "display clock",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw, tt.command, "---- More ----"))
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.Default().Collector)
	assert.Equal(t, DefaultPolicy(), p)
}
