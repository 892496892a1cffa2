// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Polylingo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "polylingo",
		Short: "Polylingo - language tutoring gateway",
		Long: `Polylingo authenticates users with bearer tokens and forwards their
text to a hosted language model for translation, grammar tutoring,
exercise generation and conversation analysis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/polylingo/config.yaml when present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
