// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/polylingo/polylingo/internal/auth"
	"github.com/polylingo/polylingo/internal/config"
	"github.com/polylingo/polylingo/internal/xdg"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read a password from the first line of stdin and print its hash using
the configured algorithm (auth.hasher and auth.bcrypt_cost).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := xdg.ResolveConfigFile(configFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path, nil)
			if err != nil {
				return err
			}
			return runHashPassword(cmd, cfg)
		},
	}
}

func runHashPassword(cmd *cobra.Command, cfg *config.Config) error {
	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return oops.Wrapf(err, "failed to read password from stdin")
	}
	password := strings.TrimRight(line, "\r\n")

	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}
