// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ManuGH/netinspect/internal/daemon"
	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard, trigger API and inspection worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	rt, err := daemon.Bootstrap(ctx, daemon.Options{
		ConfigPath: opts.configPath,
		Version:    version.Version,
		LogOutput:  cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	app, err := rt.App()
	if err != nil {
		return err
	}

	rt.Logger.Info().
		Str(xglog.FieldEvent, "daemon.start").
		Str("build", version.String()).
		Msg("starting netinspect")

	if err := app.Run(ctx); err != nil {
		rt.Logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return err
	}
	rt.Logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("netinspect stopped")
	return nil
}
