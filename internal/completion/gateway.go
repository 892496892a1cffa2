// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polylingo/polylingo/internal/observability"
)

var tracer = otel.Tracer("polylingo/completion")

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultBaseURL      = "https://api.groq.com/openai/v1"
	DefaultModel        = "llama3-8b-8192"
	DefaultTimeout      = 15 * time.Second
	DefaultMaxTokens    = 1000
	DefaultRetryBackoff = 200 * time.Millisecond

	// MaxPayloadBytes bounds how much of an upstream body is read.
	MaxPayloadBytes = 64 << 10

	promptLogLimit = 100
)

// Config describes the upstream completion service.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Request is one prompt to complete.
type Request struct {
	Prompt            string
	SystemInstruction string
	// Timeout bounds the whole call including retries. Zero means the
	// gateway default.
	Timeout time.Duration
	// Temperature overrides the configured sampling temperature when set.
	Temperature *float64
	// TopP is sent only when positive.
	TopP float64
	// MaxTokens overrides the configured limit when positive.
	MaxTokens int
}

// Gateway calls the completion service.
type Gateway struct {
	cfg      Config
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Gateway during construction.
type Option func(*Gateway)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records call outcomes and latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New creates a Gateway. An empty APIKey is allowed: every call then fails
// fast without touching the network.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.MaxRetries < 0 {
		return nil, oops.With("max_retries", cfg.MaxRetries).Errorf("max retries cannot be negative")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, oops.With("base_url", cfg.BaseURL).Errorf("invalid completion base URL")
	}

	g := &Gateway{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		client:   &http.Client{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Configured reports whether an API key is set.
func (g *Gateway) Configured() bool {
	return g.cfg.APIKey != ""
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.cfg.Model
}

// Complete sends the request and reports the outcome. It returns within the
// request timeout (plus connection teardown) whatever the upstream does.
func (g *Gateway) Complete(ctx context.Context, req Request) Result {
	ctx, span := tracer.Start(ctx, "completion.complete",
		trace.WithAttributes(
			attribute.String("completion.model", g.cfg.Model),
			attribute.Int("completion.prompt_length", len(req.Prompt)),
		),
	)
	defer span.End()

	start := time.Now()
	result := g.complete(ctx, req)
	elapsed := time.Since(start)

	outcome := "success"
	if failure, ok := result.(Failure); ok {
		outcome = outcomeLabel(failure.Code())
		span.RecordError(failure.Err)
		span.SetStatus(codes.Error, failure.Message)
		g.logger.WarnContext(ctx, "completion failed",
			"code", failure.Code(),
			"error", failure.Error(),
			"elapsed", elapsed,
		)
	}
	span.SetAttributes(attribute.String("completion.outcome", outcome))
	g.metrics.RecordCompletion(outcome, elapsed)
	return result
}

type upstreamResponse struct {
	status int
	body   []byte
}

func (g *Gateway) complete(ctx context.Context, req Request) Result {
	if !g.Configured() {
		return newFailure(CodeTransport, "completion API key is not configured", "", nil)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = g.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := g.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := g.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	messages := make([]chatMessage, 0, 2)
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	payload, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        req.TopP,
	})
	if err != nil {
		return newFailure(CodeTransport, "could not encode completion request", "", err)
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	g.logger.DebugContext(ctx, "calling completion service",
		"request_id", requestID,
		"prompt", truncate(req.Prompt, promptLogLimit),
	)

	// resp holds the last attempt's response; a failed attempt clears it.
	var resp *upstreamResponse
	backoff := retry.WithMaxRetries(uint64(g.cfg.MaxRetries), retry.NewExponential(g.cfg.RetryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp = nil
		r, sendErr := g.send(ctx, payload, requestID)
		if sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		resp = r
		if retryableStatus(r.status) {
			return retry.RetryableError(fmt.Errorf("status %d", r.status))
		}
		return nil
	})
	if resp != nil {
		return interpret(resp)
	}
	return transportFailure(ctx, timeout, err)
}

func (g *Gateway) send(ctx context.Context, payload []byte, requestID string) (*upstreamResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadBytes))
	if err != nil {
		return nil, err
	}
	g.logger.DebugContext(ctx, "completion service responded",
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
	)
	return &upstreamResponse{status: resp.StatusCode, body: body}, nil
}

// interpret turns a received response into a Result.
func interpret(resp *upstreamResponse) Result {
	raw := string(resp.body)

	if resp.status < 200 || resp.status > 299 {
		message := fmt.Sprintf("completion service returned status %d", resp.status)
		var apiErr errorResponse
		if json.Unmarshal(resp.body, &apiErr) == nil && apiErr.Error.Message != "" {
			message += ": " + apiErr.Error.Message
		}
		return Failure{
			Err:        oops.Code(CodeTransport).With("status", resp.status).Errorf("%s", message),
			Message:    message,
			RawPayload: raw,
		}
	}

	var decoded chatResponse
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return newFailure(CodeShape, "invalid completion response structure", raw, err)
	}
	if len(decoded.Choices) == 0 {
		return newFailure(CodeShape, "invalid completion response structure: no choices", raw, nil)
	}
	content := decoded.Choices[0].Message.Content
	if content == nil {
		return newFailure(CodeShape, "invalid completion response structure: no message content", raw, nil)
	}
	text := strings.TrimSpace(*content)
	if text == "" {
		return newFailure(CodeShape, "completion response content is empty", raw, nil)
	}
	return Success{Text: text}
}

func transportFailure(ctx context.Context, timeout time.Duration, err error) Failure {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newFailure(CodeTransport, fmt.Sprintf("completion request timed out after %s", timeout), "", err)
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return newFailure(CodeTransport, "completion request was canceled", "", err)
	default:
		return newFailure(CodeTransport, "completion service is unreachable", "", err)
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func outcomeLabel(code string) string {
	switch code {
	case CodeShape:
		return "shape"
	default:
		return "transport"
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
