// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package completion_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/polylingo/polylingo/internal/completion"
	"github.com/polylingo/polylingo/internal/observability"
	"github.com/polylingo/polylingo/pkg/errutil"
)

const okBody = `{"choices":[{"message":{"role":"assistant","content":"  Hola  "}}]}`

// newUpstream starts a fake completion service and returns a gateway
// pointed at it. Both are torn down when the test ends.
func newUpstream(t *testing.T, handler http.HandlerFunc, cfg completion.Config, opts ...completion.Option) *completion.Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	client := &http.Client{Transport: &http.Transport{}}
	t.Cleanup(func() {
		client.CloseIdleConnections()
		server.Close()
	})

	cfg.BaseURL = server.URL + "/v1"
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	gw, err := completion.New(cfg, append([]completion.Option{completion.WithHTTPClient(client)}, opts...)...)
	require.NoError(t, err)
	return gw
}

func TestNew_Validation(t *testing.T) {
	_, err := completion.New(completion.Config{BaseURL: "not a url"})
	assert.ErrorContains(t, err, "invalid completion base URL")

	_, err = completion.New(completion.Config{MaxRetries: -1})
	assert.ErrorContains(t, err, "max retries")

	gw, err := completion.New(completion.Config{})
	require.NoError(t, err)
	assert.False(t, gw.Configured())
	assert.Equal(t, completion.DefaultModel, gw.Model())
}

func TestComplete_Success(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	var authHeader, requestID, path string

	gw := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okBody)
	}, completion.Config{Model: "test-model", Temperature: 0.7})

	result := gw.Complete(t.Context(), completion.Request{
		Prompt:            "Translate hello",
		SystemInstruction: "You are a tutor.",
	})

	require.True(t, result.OK())
	assert.Equal(t, completion.Success{Text: "Hola"}, result)

	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "test-model", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "You are a tutor.", received.Messages[0].Content)
	assert.Equal(t, "user", received.Messages[1].Role)
	assert.Equal(t, "Translate hello", received.Messages[1].Content)
	assert.InDelta(t, 0.7, received.Temperature, 1e-9)
	assert.Equal(t, completion.DefaultMaxTokens, received.MaxTokens)
}

func TestComplete_TemperatureOverride(t *testing.T) {
	var temperature float64
	gw := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Temperature float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		temperature = body.Temperature
		_, _ = io.WriteString(w, okBody)
	}, completion.Config{Temperature: 0.7})

	low := 0.3
	result := gw.Complete(t.Context(), completion.Request{Prompt: "x", Temperature: &low})
	require.True(t, result.OK())
	assert.InDelta(t, 0.3, temperature, 1e-9)
}

func TestComplete_SamplingOverrides(t *testing.T) {
	var received struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		MaxTokens int     `json:"max_tokens"`
		TopP      float64 `json:"top_p"`
	}
	gw := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = io.WriteString(w, okBody)
	}, completion.Config{})

	result := gw.Complete(t.Context(), completion.Request{Prompt: "x", MaxTokens: 800, TopP: 0.9})
	require.True(t, result.OK())
	assert.Equal(t, 800, received.MaxTokens)
	assert.InDelta(t, 0.9, received.TopP, 1e-9)
	require.Len(t, received.Messages, 1, "no system message without an instruction")
	assert.Equal(t, "user", received.Messages[0].Role)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	gw, err := completion.New(completion.Config{})
	require.NoError(t, err)

	result := gw.Complete(t.Context(), completion.Request{Prompt: "hi"})
	failure, ok := result.(completion.Failure)
	require.True(t, ok)
	assert.Equal(t, completion.CodeTransport, failure.Code())
	assert.Equal(t, "completion API key is not configured", failure.Message)
	errutil.AssertErrorCode(t, failure.Err, completion.CodeTransport)
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
		wantRaw     bool
	}{
		{
			name:        "non-2xx status",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"message":"Invalid API Key"}}`,
			wantCode:    completion.CodeTransport,
			wantMessage: "completion service returned status 401: Invalid API Key",
			wantRaw:     true,
		},
		{
			name:        "undecodable body",
			status:      http.StatusOK,
			body:        `<html>gateway</html>`,
			wantCode:    completion.CodeShape,
			wantMessage: "invalid completion response structure",
			wantRaw:     true,
		},
		{
			name:        "no choices",
			status:      http.StatusOK,
			body:        `{"choices":[]}`,
			wantCode:    completion.CodeShape,
			wantMessage: "invalid completion response structure: no choices",
			wantRaw:     true,
		},
		{
			name:        "missing content",
			status:      http.StatusOK,
			body:        `{"choices":[{"message":{"role":"assistant"}}]}`,
			wantCode:    completion.CodeShape,
			wantMessage: "invalid completion response structure: no message content",
			wantRaw:     true,
		},
		{
			name:        "blank content",
			status:      http.StatusOK,
			body:        `{"choices":[{"message":{"content":"   "}}]}`,
			wantCode:    completion.CodeShape,
			wantMessage: "completion response content is empty",
			wantRaw:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, completion.Config{})

			result := gw.Complete(t.Context(), completion.Request{Prompt: "hi"})
			failure, ok := result.(completion.Failure)
			require.True(t, ok, "expected Failure, got %#v", result)
			assert.False(t, result.OK())
			assert.Equal(t, tt.wantCode, failure.Code())
			assert.Equal(t, tt.wantMessage, failure.Message)
			if tt.wantRaw {
				assert.Equal(t, tt.body, failure.RawPayload)
			}
		})
	}
}

func TestComplete_TruncatesLargePayload(t *testing.T) {
	gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", completion.MaxPayloadBytes*2))
	}, completion.Config{})

	failure, ok := gw.Complete(t.Context(), completion.Request{Prompt: "hi"}).(completion.Failure)
	require.True(t, ok)
	assert.Len(t, failure.RawPayload, completion.MaxPayloadBytes)
}

func TestComplete_TimeoutReleasesResources(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	client := &http.Client{Transport: &http.Transport{}}
	defer func() {
		close(release)
		client.CloseIdleConnections()
		server.Close()
	}()

	gw, err := completion.New(completion.Config{BaseURL: server.URL, APIKey: "k"}, completion.WithHTTPClient(client))
	require.NoError(t, err)

	const timeout = 100 * time.Millisecond
	start := time.Now()
	result := gw.Complete(t.Context(), completion.Request{Prompt: "hi", Timeout: timeout})
	elapsed := time.Since(start)

	failure, ok := result.(completion.Failure)
	require.True(t, ok)
	assert.Equal(t, completion.CodeTransport, failure.Code())
	assert.Contains(t, failure.Message, "timed out")
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestComplete_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	gw, err := completion.New(completion.Config{BaseURL: url, APIKey: "k"})
	require.NoError(t, err)

	failure, ok := gw.Complete(t.Context(), completion.Request{Prompt: "hi", Timeout: time.Second}).(completion.Failure)
	require.True(t, ok)
	assert.Equal(t, completion.CodeTransport, failure.Code())
	assert.Equal(t, "completion service is unreachable", failure.Message)
	assert.Empty(t, failure.RawPayload)
}

func TestComplete_Retries(t *testing.T) {
	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, okBody)
		}, completion.Config{MaxRetries: 2, RetryBackoff: time.Millisecond})

		result := gw.Complete(t.Context(), completion.Request{Prompt: "hi"})
		assert.True(t, result.OK())
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down"}}`)
		}, completion.Config{MaxRetries: 1, RetryBackoff: time.Millisecond})

		failure, ok := gw.Complete(t.Context(), completion.Request{Prompt: "hi"}).(completion.Failure)
		require.True(t, ok)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, "completion service returned status 429: slow down", failure.Message)
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		var calls atomic.Int32
		gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}, completion.Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

		assert.False(t, gw.Complete(t.Context(), completion.Request{Prompt: "hi"}).OK())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("no retries by default", func(t *testing.T) {
		var calls atomic.Int32
		gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}, completion.Config{})

		assert.False(t, gw.Complete(t.Context(), completion.Request{Prompt: "hi"}).OK())
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestComplete_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	gw := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}, completion.Config{}, completion.WithMetrics(metrics))

	gw.Complete(t.Context(), completion.Request{Prompt: "hi"})
	gw.Complete(t.Context(), completion.Request{Prompt: "hi"})

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.CompletionsTotal.WithLabelValues("shape")), 0)
}
