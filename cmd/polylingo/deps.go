// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"context"
	"net"
	"net/http"

	"github.com/polylingo/polylingo/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ObservabilityServerFactory creates the metrics and probe server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// UpstreamClient is the HTTP client used for completion calls.
	// Default: a client with no overall timeout; calls are bounded per request.
	UpstreamClient *http.Client
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
