// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// HealthStatus is the health report of a running server.
type HealthStatus struct {
	URL              string `json:"url"`
	Running          bool   `json:"running"`
	Status           string `json:"status,omitempty"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Error            string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	url        string
	timeout    time.Duration
	jsonOutput bool
}

const defaultStatusURL = "http://127.0.0.1:8001"

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running Polylingo server",
		Long:  `Query the health endpoint of a running server and report whether it is running and whether an upstream API key is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg, &http.Client{Timeout: cfg.timeout})
		},
	}

	cmd.Flags().StringVar(&cfg.url, "url", defaultStatusURL, "base URL of the server")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 2*time.Second, "request timeout")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig, client *http.Client) error {
	status := queryHealth(client, cfg.url)

	if cfg.jsonOutput {
		output, err := formatStatusJSON(status)
		if err != nil {
			return err
		}
		cmd.Println(output)
		return nil
	}
	cmd.Println(formatStatusTable(status))
	return nil
}

// queryHealth fetches /health and reports the result. Failures are recorded
// in the status rather than returned.
func queryHealth(client *http.Client, baseURL string) HealthStatus {
	status := HealthStatus{URL: baseURL}

	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/health")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return status
	}

	var body struct {
		Status           string `json:"status"`
		APIKeyConfigured bool   `json:"api_key_configured"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		status.Error = fmt.Sprintf("failed to decode health response: %v", err)
		return status
	}

	status.Running = true
	status.Status = body.Status
	status.APIKeyConfigured = body.APIKeyConfigured
	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status HealthStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "SERVER\tSTATUS\tHEALTH\tAPI KEY")
	_, _ = fmt.Fprintln(w, "------\t------\t------\t-------")
	if status.Running {
		apiKey := "missing"
		if status.APIKeyConfigured {
			apiKey = "configured"
		}
		_, _ = fmt.Fprintf(w, "%s\trunning\t%s\t%s\n", status.URL, status.Status, apiKey)
	} else {
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		_, _ = fmt.Fprintf(w, "%s\tstopped\t-\t%s\n", status.URL, reason)
	}

	_ = w.Flush()
	return buf.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status HealthStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", oops.Wrapf(err, "failed to marshal status")
	}
	return string(data), nil
}
