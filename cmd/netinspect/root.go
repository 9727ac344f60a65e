// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ManuGH/netinspect/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "netinspect",
		Short: "SSH health inspection for network devices",
		Long: `netinspect logs in to a network device over SSH, runs a battery of
display commands, and asks an LLM backend for a health report. Progress is
streamed live to the web dashboard.

Without a subcommand it runs the HTTP server (same as "netinspect serve").`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c",
		config.ParseString("NETINSPECT_CONFIG", ""), "path to config file (YAML)")

	cmd.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
