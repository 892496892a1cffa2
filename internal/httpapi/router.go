// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

// Package httpapi exposes the auth and tutor operations over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/polylingo/polylingo/internal/auth"
	"github.com/polylingo/polylingo/internal/observability"
	"github.com/polylingo/polylingo/internal/tutor"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// UpstreamStatus reports whether the completion service is configured.
type UpstreamStatus interface {
	Configured() bool
}

// Config holds the router dependencies.
type Config struct {
	Auth     *auth.Service
	Resolver *auth.Resolver
	Tutor    *tutor.Tutor
	Upstream UpstreamStatus
	Logger   *slog.Logger
	Metrics  *observability.Metrics

	// AllowedOrigins are CORS origin glob patterns. Empty disables CORS headers.
	AllowedOrigins []string
	// RequireAuthForTasks puts the tutor routes behind bearer authentication.
	RequireAuthForTasks bool
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *chi.Mux
	auth     *auth.Service
	resolver *auth.Resolver
	tutor    *tutor.Tutor
	upstream UpstreamStatus
	logger   *slog.Logger
	metrics  *observability.Metrics
	origins  *originMatcher
}

// NewRouter assembles routes with dependencies.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Auth == nil || cfg.Resolver == nil || cfg.Tutor == nil || cfg.Upstream == nil {
		return nil, oops.Errorf("auth service, resolver, tutor and upstream status are required")
	}
	origins, err := newOriginMatcher(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	rt := &Router{
		mux:      chi.NewRouter(),
		auth:     cfg.Auth,
		resolver: cfg.Resolver,
		tutor:    cfg.Tutor,
		upstream: cfg.Upstream,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		origins:  origins,
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	rt.routes(cfg.RequireAuthForTasks)
	return rt, nil
}

// ServeHTTP delegates to the underlying mux.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rt.mux.ServeHTTP(w, req)
}

func (rt *Router) routes(requireAuthForTasks bool) {
	r := rt.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.observe)
	r.Use(middleware.Recoverer)
	r.Use(rt.cors)
	r.Use(limitBody)

	r.Get("/health", rt.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", rt.handleRegister)
		r.Post("/token", rt.handleToken)
		r.Post("/login", rt.handleLogin)
		r.With(rt.requireUser).Get("/users/me", rt.handleMe)
	})

	r.Group(func(r chi.Router) {
		if requireAuthForTasks {
			r.Use(rt.requireUser)
		}
		r.Post("/learning-suggestions", rt.handleSuggestions)
		r.Post("/generate-exercises", rt.handleExercises)
		r.Post("/analyze-conversation", rt.handleConversation)
		r.Post("/analyze-sentence", rt.handleSentence)
		r.Post("/translate", rt.handleTranslate)
		r.Post("/generate", rt.handleGenerate)
	})
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"api_key_configured": rt.upstream.Configured(),
	})
}
