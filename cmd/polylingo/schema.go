// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/polylingo/polylingo/internal/normalize"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "schema [name]",
		Short: "Print the JSON Schemas requested from the model",
		Long: `Print the JSON Schema for one task response shape, or list the schema
names when no name is given. With --out every schema is written to
<dir>/<name>.schema.json instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				return writeSchemas(cmd, outDir)
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return printSchema(cmd, name)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "write all schemas to this directory")
	return cmd
}

func printSchema(cmd *cobra.Command, name string) error {
	if name == "" {
		for _, s := range normalize.Schemas() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), s.Name()); err != nil {
				return err
			}
		}
		return nil
	}
	schema := normalize.Lookup(name)
	if schema == nil {
		return oops.With("schema", name).Errorf("unknown schema %q", name)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), string(schema.JSON()))
	return err
}

func writeSchemas(cmd *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return oops.With("dir", dir).Wrapf(err, "failed to create schema directory")
	}
	for _, s := range normalize.Schemas() {
		path := filepath.Join(dir, s.Name()+".schema.json")
		if err := os.WriteFile(path, s.JSON(), 0o600); err != nil {
			return oops.With("path", path).Wrapf(err, "failed to write schema")
		}
		cmd.Println("Generated " + path)
	}
	return nil
}
