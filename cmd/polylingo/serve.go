// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/polylingo/polylingo/internal/auth"
	"github.com/polylingo/polylingo/internal/completion"
	"github.com/polylingo/polylingo/internal/config"
	"github.com/polylingo/polylingo/internal/httpapi"
	"github.com/polylingo/polylingo/internal/logging"
	"github.com/polylingo/polylingo/internal/observability"
	"github.com/polylingo/polylingo/internal/tutor"
	"github.com/polylingo/polylingo/internal/xdg"
)

const serviceName = "polylingo"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server with the auth and tutor endpoints, plus the
observability server for metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := xdg.ResolveConfigFile(configFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting polylingo",
		"addr", cfg.Server.Addr,
		"model", cfg.Upstream.Model,
		"require_auth_for_tasks", cfg.Auth.RequireForTasks,
	)
	if cfg.UsesInsecureSigningKey() {
		logger.Warn("using the built-in token signing key; set JWT_SECRET_KEY or auth.jwt_secret_key")
	}

	var ready atomic.Bool
	obsServer := deps.ObservabilityServerFactory(cfg.Server.MetricsAddr, ready.Load)
	metrics := obsServer.Metrics()

	router, err := buildRouter(cfg, logger, metrics, deps.UpstreamClient)
	if err != nil {
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.With("addr", cfg.Server.Addr).Wrapf(err, "failed to listen")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()
	logger.Info("HTTP server listening", "addr", listener.Addr().String())

	if cfg.Server.MetricsAddr != "" {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if stopErr := httpSrv.Shutdown(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop HTTP server during cleanup", "error", stopErr)
			}
			return oops.Wrapf(err, "failed to start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("Polylingo listening on " + listener.Addr().String())

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		logger.Error("HTTP server error", "error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")

	// Shutdown waits for in-flight requests, so it must not inherit ctx.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	if serveErr != nil {
		return oops.Wrapf(serveErr, "HTTP server error")
	}
	return nil
}

// buildRouter wires the auth core, completion gateway and tutor behind the
// HTTP router.
func buildRouter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, upstreamClient *http.Client) (*httpapi.Router, error) {
	store := auth.NewMemoryStore()
	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(cfg.SigningKey(), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	authLogger := logger.With("component", "auth")
	service, err := auth.NewService(store, hasher, tokens, auth.WithLogger(authLogger))
	if err != nil {
		return nil, err
	}
	resolver, err := auth.NewResolver(tokens, store)
	if err != nil {
		return nil, err
	}

	gatewayOpts := []completion.Option{
		completion.WithLogger(logger.With("component", "completion")),
		completion.WithMetrics(metrics),
	}
	if upstreamClient != nil {
		gatewayOpts = append(gatewayOpts, completion.WithHTTPClient(upstreamClient))
	}
	gateway, err := completion.New(completion.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		APIKey:      cfg.Upstream.APIKey,
		Model:       cfg.Upstream.Model,
		Temperature: cfg.Upstream.Temperature,
		MaxTokens:   cfg.Upstream.MaxTokens,
		Timeout:     cfg.Upstream.Timeout,
		MaxRetries:  cfg.Upstream.MaxRetries,
	}, gatewayOpts...)
	if err != nil {
		return nil, err
	}
	if !gateway.Configured() {
		logger.Warn("no completion API key configured; tutor tasks will report upstream errors")
	}

	tasks, err := tutor.New(gateway,
		tutor.WithLogger(logger.With("component", "tutor")),
		tutor.WithMetrics(metrics),
		tutor.WithTimeout(cfg.Upstream.Timeout),
	)
	if err != nil {
		return nil, err
	}

	return httpapi.NewRouter(httpapi.Config{
		Auth:                service,
		Resolver:            resolver,
		Tutor:               tasks,
		Upstream:            gateway,
		Logger:              logger.With("component", "http"),
		Metrics:             metrics,
		AllowedOrigins:      cfg.CORS.AllowedOrigins,
		RequireAuthForTasks: cfg.Auth.RequireForTasks,
	})
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
