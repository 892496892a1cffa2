// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/polylingo/polylingo/internal/auth"
	"github.com/polylingo/polylingo/internal/completion"
	"github.com/polylingo/polylingo/internal/httpapi"
	"github.com/polylingo/polylingo/internal/observability"
	"github.com/polylingo/polylingo/internal/tutor"
)

// stubCompleter answers every completion with the same result. The result
// is swapped by tests while server goroutines read it.
type stubCompleter struct {
	mu     sync.Mutex
	result completion.Result
}

func (s *stubCompleter) Complete(context.Context, completion.Request) completion.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *stubCompleter) respond(result completion.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

type stubUpstream bool

func (s stubUpstream) Configured() bool { return bool(s) }

type fixture struct {
	server  *httptest.Server
	store   *auth.MemoryStore
	tokens  *auth.TokenService
	metrics *observability.Metrics
	gateway *stubCompleter
}

type fixtureOptions struct {
	requireAuth bool
	origins     []string
	tokenClock  func() time.Time
}

func newFixture(opts fixtureOptions) (*fixture, error) {
	store := auth.NewMemoryStore()
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	var tokenOpts []auth.TokenOption
	if opts.tokenClock != nil {
		tokenOpts = append(tokenOpts, auth.WithClock(opts.tokenClock))
	}
	tokens, err := auth.NewTokenService([]byte("test-signing-key"), time.Hour, tokenOpts...)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc, err := auth.NewService(store, hasher, tokens, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	resolver, err := auth.NewResolver(tokens, store)
	if err != nil {
		return nil, err
	}

	gateway := &stubCompleter{result: completion.Success{Text: "{}"}}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	tt, err := tutor.New(gateway, tutor.WithLogger(logger), tutor.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	router, err := httpapi.NewRouter(httpapi.Config{
		Auth:                svc,
		Resolver:            resolver,
		Tutor:               tt,
		Upstream:            stubUpstream(true),
		Logger:              logger,
		Metrics:             metrics,
		AllowedOrigins:      opts.origins,
		RequireAuthForTasks: opts.requireAuth,
	})
	if err != nil {
		return nil, err
	}

	return &fixture{
		server:  httptest.NewServer(router),
		store:   store,
		tokens:  tokens,
		metrics: metrics,
		gateway: gateway,
	}, nil
}

func (f *fixture) close() {
	f.server.Close()
}

func (f *fixture) postJSON(path, body string, header ...string) (*http.Response, map[string]any, error) {
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, strings.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return do(req)
}

func (f *fixture) postForm(path string, form url.Values) (*http.Response, map[string]any, error) {
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(req)
}

func (f *fixture) get(path, token string) (*http.Response, map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	if err != nil {
		return nil, nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(req)
}

func do(req *http.Request) (*http.Response, map[string]any, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	var body map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return resp, nil, err
		}
	}
	return resp, body, nil
}
