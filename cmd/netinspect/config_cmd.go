// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/version"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (password masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(opts.configPath, version.Version).Load()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(config.Masked(cfg))
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.NewLoader(opts.configPath, version.Version).Load(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			source := opts.configPath
			if source == "" {
				source = "environment and defaults"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "configuration from %s is valid\n", source)
			return nil
		},
	})
	return cmd
}
