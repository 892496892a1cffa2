// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryHealth(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantRunning bool
		wantErr     string
	}{
		{
			name:        "healthy",
			status:      http.StatusOK,
			body:        `{"status":"healthy","api_key_configured":true}`,
			wantRunning: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"detail":"Internal server error"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "bad body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: "failed to decode health response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := healthServer(t, tt.status, tt.body)
			status := queryHealth(srv.Client(), srv.URL+"/")

			assert.Equal(t, tt.wantRunning, status.Running)
			if tt.wantErr != "" {
				assert.Contains(t, status.Error, tt.wantErr)
				return
			}
			assert.Empty(t, status.Error)
			assert.True(t, status.APIKeyConfigured)
		})
	}
}

func TestQueryHealth_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	status := queryHealth(&http.Client{Timeout: time.Second}, url)
	assert.False(t, status.Running)
	assert.Contains(t, status.Error, "failed to connect")
}

func TestRunStatus_JSON(t *testing.T) {
	srv := healthServer(t, http.StatusOK, `{"status":"healthy","api_key_configured":false}`)

	cmd := NewStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	require.NoError(t, runStatus(cmd, &statusConfig{url: srv.URL, jsonOutput: true}, srv.Client()))

	var got HealthStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, "healthy", got.Status)
}

func TestFormatStatusTable(t *testing.T) {
	running := formatStatusTable(HealthStatus{URL: "http://x", Running: true, Status: "healthy", APIKeyConfigured: true})
	assert.Contains(t, running, "SERVER")
	assert.Contains(t, running, "running")
	assert.Contains(t, running, "configured")

	stopped := formatStatusTable(HealthStatus{URL: "http://x", Error: "failed to connect: refused"})
	assert.Contains(t, stopped, "stopped")
	assert.Contains(t, stopped, "failed to connect: refused")
}

func TestStatus_Flags(t *testing.T) {
	cmd := NewStatusCmd()
	for _, name := range []string{"url", "timeout", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "status missing --%s", name)
	}
}
