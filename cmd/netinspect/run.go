// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/netinspect/internal/daemon"
	"github.com/ManuGH/netinspect/internal/inspection"
	"github.com/ManuGH/netinspect/internal/progress"
	"github.com/ManuGH/netinspect/internal/version"
)

var (
	styleTime = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleMute = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type runOptions struct {
	output  string
	plain   bool
	timeout time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one inspection in the terminal and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "also write the report as markdown to this file")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print the report without markdown rendering")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the run after this long (0 = no limit)")
	return cmd
}

func runOnce(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	ctx, stop := daemon.WaitForShutdown()
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	rt, err := daemon.Bootstrap(ctx, daemon.Options{
		ConfigPath: root.configPath,
		Version:    version.Version,
		LogOutput:  io.Discard,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

	out := cmd.OutOrStdout()
	sub := rt.Bus.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range sub.Events(context.Background()) {
			_, _ = fmt.Fprintln(out, formatEvent(ev, time.Now()))
			if ev.Status.Terminal() {
				return
			}
		}
	}()

	rep, runErr := rt.Inspection.RunOnce(ctx)
	// Events already queued are still delivered after Close.
	sub.Close()
	<-printed
	if runErr != nil {
		return runErr
	}

	doc := reportMarkdown(rep, time.Now())
	if opts.output != "" {
		if err := renameio.WriteFile(opts.output, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		_, _ = fmt.Fprintln(out, styleMute.Render("report written to "+opts.output))
	}

	if opts.plain {
		_, err = io.WriteString(out, doc)
		return err
	}
	rendered, err := renderMarkdown(doc)
	if err != nil {
		_, err = io.WriteString(out, doc)
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// formatEvent renders one progress line.
func formatEvent(ev progress.Event, at time.Time) string {
	style := styleInfo
	switch ev.Status {
	case progress.StatusDone:
		style = styleDone
	case progress.StatusError:
		style = styleFail
	case progress.StatusIdle:
		style = styleMute
	}
	// The done message carries the whole report; the rendered document follows.
	msg := ev.Message
	if ev.Status == progress.StatusDone {
		msg, _, _ = strings.Cut(msg, "\n")
	}
	return styleTime.Render(at.Format("15:04:05")) + " " +
		style.Render(fmt.Sprintf("%-7s", ev.Status)) + " " + msg
}

// reportMarkdown is the document printed to the terminal and written by --output.
func reportMarkdown(rep inspection.Report, at time.Time) string {
	var b strings.Builder
	b.WriteString("# Device inspection report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", rep.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", at.Format(time.RFC3339))
	if rep.Analysis.Degraded {
		b.WriteString("- Analysis: timed out, basic report shown\n")
	}
	b.WriteString("\n## Analysis\n\n")
	b.WriteString(strings.TrimSpace(rep.Analysis.Text()))
	b.WriteString("\n\n## Raw data\n\n```text\n")
	b.WriteString(strings.TrimRight(rep.Body, "\n"))
	b.WriteString("\n```\n")
	return b.String()
}

func renderMarkdown(doc string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(doc)
}
