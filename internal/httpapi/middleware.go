// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/polylingo/polylingo/internal/auth"
)

type contextKey string

const userContextKey contextKey = "polylingo-user"

// observe logs each request and records its metrics under the chi route
// pattern, so path parameters do not explode label cardinality.
func (rt *Router) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		rt.metrics.RecordHTTPRequest(route, req.Method, status, elapsed)
		rt.logger.InfoContext(req.Context(), "http request",
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(req.Context()),
		)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Body != nil {
			req.Body = http.MaxBytesReader(w, req.Body, MaxBodyBytes)
		}
		next.ServeHTTP(w, req)
	})
}

// originMatcher matches request origins against glob patterns.
type originMatcher struct {
	any      bool
	patterns []glob.Glob
}

func newOriginMatcher(patterns []string) (*originMatcher, error) {
	m := &originMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == "*" {
			m.any = true
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.With("pattern", p).Wrapf(err, "invalid CORS origin pattern")
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

func (m *originMatcher) allows(origin string) bool {
	if m.any {
		return true
	}
	for _, g := range m.patterns {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (m *originMatcher) enabled() bool {
	return m.any || len(m.patterns) > 0
}

// cors sets CORS headers for allowed origins and answers preflight requests.
func (rt *Router) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin == "" || !rt.origins.enabled() {
			next.ServeHTTP(w, req)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		allowed := rt.origins.allows(origin)
		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// requireUser resolves the bearer token to a user before invoking the handler.
func (rt *Router) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token, err := bearerToken(req.Header.Get("Authorization"))
		if err != nil {
			rt.metrics.RecordAuthEvent("resolve", "failure")
			rt.logger.InfoContext(req.Context(), "authorization header invalid", "error", err, "path", req.URL.Path)
			writeUnauthorized(w, "Not authenticated")
			return
		}
		user, err := rt.resolver.Resolve(req.Context(), token)
		if err != nil {
			rt.metrics.RecordAuthEvent("resolve", "failure")
			rt.respondError(w, req, err)
			return
		}
		rt.metrics.RecordAuthEvent("resolve", "success")
		ctx := context.WithValue(req.Context(), userContextKey, user)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// userFromContext returns the user set by requireUser.
func userFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userContextKey).(*auth.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
