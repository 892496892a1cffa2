// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

// Package tutor implements the language-learning tasks. Each task renders a
// prompt, asks the completion gateway for text and normalizes the reply.
// Upstream problems never fail a task; they surface in the normalized
// result instead. Generate is a plain passthrough and reports them as
// CodeUpstreamFailed.
package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/polylingo/polylingo/internal/completion"
	"github.com/polylingo/polylingo/internal/normalize"
	"github.com/polylingo/polylingo/internal/observability"
)

var tracer = otel.Tracer("polylingo/tutor")

// Error codes.
const (
	CodeInvalidInput   = "TASK_INVALID_INPUT"
	CodePromptFailed   = "TASK_PROMPT_FAILED"
	CodeUpstreamFailed = "TASK_UPSTREAM_FAILED"
)

// Focus areas for learning suggestions.
const (
	FocusGrammar    = "grammar"
	FocusVocabulary = "vocabulary"
	FocusIdioms     = "idioms"
	FocusGeneral    = "general"
)

// Defaults for omitted request fields.
const (
	DefaultProficiency  = "intermediate"
	DefaultFocus        = FocusGeneral
	DefaultExerciseType = "mixed"
	DefaultLanguage     = "en"
	DefaultAspect       = "sentiment"

	translateTemperature = 0.3
	translateTopP        = 0.9
	fallbackPrefix       = "[FALLBACK] "

	generateMaxTokens = 800
	generateTopP      = 0.9
	maxTemperature    = 2
)

// Task names used in logs and metrics.
const (
	TaskSuggestions  = "learning_suggestions"
	TaskExercises    = "exercises"
	TaskConversation = "conversation_analysis"
	TaskSentence     = "sentence_analysis"
	TaskTranslate    = "translate"
	TaskGenerate     = "generate"
)

// Completer is the part of the completion gateway the tutor uses.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) completion.Result
}

// LearningInput requests learning suggestions for a sentence.
type LearningInput struct {
	Text           string
	UserLanguage   string
	TargetLanguage string
	Proficiency    string
	Focus          string
}

// WithDefaults fills omitted fields.
func (in LearningInput) WithDefaults() LearningInput {
	if in.Proficiency == "" {
		in.Proficiency = DefaultProficiency
	}
	if in.Focus == "" {
		in.Focus = DefaultFocus
	}
	return in
}

// ExerciseInput requests practice exercises based on a text.
type ExerciseInput struct {
	Text           string
	TargetLanguage string
	Proficiency    string
	ExerciseType   string
}

// WithDefaults fills omitted fields.
func (in ExerciseInput) WithDefaults() ExerciseInput {
	if in.Proficiency == "" {
		in.Proficiency = DefaultProficiency
	}
	if in.ExerciseType == "" {
		in.ExerciseType = DefaultExerciseType
	}
	return in
}

// Message is one line of a conversation.
type Message struct {
	Text     string
	Speaker  string
	Language string
}

// ConversationInput requests analysis of a conversation.
type ConversationInput struct {
	Messages   []Message
	AnalyzeFor []string
}

// WithDefaults fills omitted fields.
func (in ConversationInput) WithDefaults() ConversationInput {
	if len(in.AnalyzeFor) == 0 {
		in.AnalyzeFor = []string{DefaultAspect}
	}
	messages := make([]Message, len(in.Messages))
	for i, m := range in.Messages {
		if m.Language == "" {
			m.Language = DefaultLanguage
		}
		messages[i] = m
	}
	in.Messages = messages
	return in
}

// TranslateInput requests a translation.
type TranslateInput struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

// WithDefaults fills omitted fields.
func (in TranslateInput) WithDefaults() TranslateInput {
	if in.SourceLanguage == "" {
		in.SourceLanguage = AutoDetect
	}
	return in
}

// GenerateInput is a free-form prompt with optional sampling settings.
// Nil or zero fields use the defaults.
type GenerateInput struct {
	Prompt      string
	Temperature *float64
	MaxTokens   int
	TopP        *float64
}

// Generation is the trimmed model output for a free-form prompt.
type Generation struct {
	Text    string
	Elapsed time.Duration
}

// Report is the normalized outcome of a task and how long it took.
type Report struct {
	Result  normalize.Result
	Elapsed time.Duration
}

// Translation is the outcome of Translate. Fallback is set when the
// upstream call failed and Text is the marked-up original.
type Translation struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	Fallback       bool
	Elapsed        time.Duration
}

// Tutor runs the tasks.
type Tutor struct {
	gateway Completer
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Tutor during construction.
type Option func(*Tutor)

// WithLogger sets the tutor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tutor) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics records normalized result kinds per task.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tutor) {
		t.metrics = m
	}
}

// WithTimeout sets the per-call upstream timeout. Zero uses the gateway default.
func WithTimeout(d time.Duration) Option {
	return func(t *Tutor) {
		t.timeout = d
	}
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(t *Tutor) {
		t.now = now
	}
}

// New creates a Tutor.
func New(gateway Completer, opts ...Option) (*Tutor, error) {
	if gateway == nil {
		return nil, oops.Errorf("completion gateway is required")
	}
	t := &Tutor{
		gateway: gateway,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Suggestions produces learning suggestions. Unknown focus areas use the
// general prompt.
func (t *Tutor) Suggestions(ctx context.Context, in LearningInput) (*Report, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, invalidInput("Text is required.")
	}
	in = in.WithDefaults()
	guidance, ok := focusGuidance[in.Focus]
	if !ok {
		guidance = focusGuidance[FocusGeneral]
	}

	prompt, err := render(tutorPrompt, struct {
		LearningInput
		Guidance string
	}{in, guidance})
	if err != nil {
		return nil, err
	}
	return t.run(ctx, TaskSuggestions, completion.Request{
		Prompt:            prompt,
		SystemInstruction: tutorSystem,
	}, normalize.TutorSchema), nil
}

// Exercises generates practice questions and answers.
func (t *Tutor) Exercises(ctx context.Context, in ExerciseInput) (*Report, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, invalidInput("Text is required.")
	}
	prompt, err := render(exercisePrompt, in.WithDefaults())
	if err != nil {
		return nil, err
	}
	return t.run(ctx, TaskExercises, completion.Request{
		Prompt:            prompt,
		SystemInstruction: exerciseSystem,
	}, normalize.ExerciseSchema), nil
}

// AnalyzeConversation analyzes a conversation for the requested aspects.
func (t *Tutor) AnalyzeConversation(ctx context.Context, in ConversationInput) (*Report, error) {
	if len(in.Messages) == 0 {
		return nil, invalidInput("Messages are required.")
	}
	in = in.WithDefaults()
	prompt, err := render(conversationPrompt, struct {
		Aspects  string
		Messages []Message
	}{strings.Join(in.AnalyzeFor, ", "), in.Messages})
	if err != nil {
		return nil, err
	}
	return t.run(ctx, TaskConversation, completion.Request{
		Prompt:            prompt,
		SystemInstruction: analystSystem,
	}, nil), nil
}

// AnalyzeSentence scores a single sentence.
func (t *Tutor) AnalyzeSentence(ctx context.Context, text string) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalidInput("Text is required.")
	}
	prompt, err := render(sentencePrompt, struct{ Text string }{text})
	if err != nil {
		return nil, err
	}
	return t.run(ctx, TaskSentence, completion.Request{
		Prompt:            prompt,
		SystemInstruction: sentenceSystem,
	}, normalize.SentenceSchema), nil
}

// Translate translates text. When the upstream call fails the original text
// is returned with a fallback marker rather than an error.
func (t *Tutor) Translate(ctx context.Context, in TranslateInput) (*Translation, error) {
	if in.Text == "" || in.TargetLanguage == "" {
		return nil, invalidInput("Missing required parameters. Please provide text and targetLanguage.")
	}
	in = in.WithDefaults()

	source := ""
	if in.SourceLanguage != AutoDetect {
		source = LanguageName(in.SourceLanguage)
	}
	prompt, err := render(translatePrompt, struct {
		Source, Target, Text string
	}{source, LanguageName(in.TargetLanguage), in.Text})
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "tutor."+TaskTranslate)
	defer span.End()

	start := t.now()
	temperature := translateTemperature
	result := t.gateway.Complete(ctx, completion.Request{
		Prompt:            prompt,
		SystemInstruction: translateSystem,
		Timeout:           t.timeout,
		Temperature:       &temperature,
		TopP:              translateTopP,
	})

	out := &Translation{
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: in.TargetLanguage,
	}
	if success, ok := result.(completion.Success); ok {
		out.Text = cleanTranslation(success.Text)
	} else {
		out.Text = fallbackPrefix + in.Text
		out.Fallback = true
	}
	out.Elapsed = t.now().Sub(start)

	span.SetAttributes(attribute.Bool("tutor.fallback", out.Fallback))
	t.logger.InfoContext(ctx, "task completed",
		"task", TaskTranslate,
		"fallback", out.Fallback,
		"elapsed_ms", out.Elapsed.Milliseconds(),
	)
	return out, nil
}

// Generate sends a free-form prompt without a system instruction and returns
// the model text as is.
func (t *Tutor) Generate(ctx context.Context, in GenerateInput) (*Generation, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, invalidInput("Missing required parameters. Please provide a prompt.")
	}
	if in.Temperature != nil && (*in.Temperature < 0 || *in.Temperature > maxTemperature) {
		return nil, invalidInput("temperature must be between 0 and 2")
	}
	if in.TopP != nil && (*in.TopP <= 0 || *in.TopP > 1) {
		return nil, invalidInput("top_p must be greater than 0 and at most 1")
	}
	if in.MaxTokens < 0 {
		return nil, invalidInput("max_tokens must not be negative")
	}

	ctx, span := tracer.Start(ctx, "tutor."+TaskGenerate)
	defer span.End()

	req := completion.Request{
		Prompt:    in.Prompt,
		Timeout:   t.timeout,
		MaxTokens: generateMaxTokens,
		TopP:      generateTopP,
	}
	if in.Temperature != nil {
		temperature := *in.Temperature
		req.Temperature = &temperature
	}
	if in.MaxTokens > 0 {
		req.MaxTokens = in.MaxTokens
	}
	if in.TopP != nil {
		req.TopP = *in.TopP
	}

	start := t.now()
	result := t.gateway.Complete(ctx, req)
	elapsed := t.now().Sub(start)

	success, ok := result.(completion.Success)
	span.SetAttributes(attribute.Bool("tutor.ok", ok))
	t.logger.InfoContext(ctx, "task completed",
		"task", TaskGenerate,
		"ok", ok,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	if !ok {
		failure, _ := result.(completion.Failure)
		return nil, oops.Code(CodeUpstreamFailed).
			With("upstream_code", failure.Code()).
			With("upstream_error", failure.Error()).
			Errorf("Text generation failed. Please try again later.")
	}
	return &Generation{Text: strings.TrimSpace(success.Text), Elapsed: elapsed}, nil
}

func (t *Tutor) run(ctx context.Context, task string, req completion.Request, schema *normalize.Schema) *Report {
	ctx, span := tracer.Start(ctx, "tutor."+task, trace.WithAttributes(attribute.String("tutor.task", task)))
	defer span.End()

	req.Timeout = t.timeout
	start := t.now()
	result := normalize.Normalize(t.gateway.Complete(ctx, req), schema)
	elapsed := t.now().Sub(start)

	attrs := []any{"task", task, "kind", result.Kind(), "elapsed_ms", elapsed.Milliseconds()}
	if structured, ok := result.(normalize.Structured); ok && len(structured.SchemaWarnings) > 0 {
		attrs = append(attrs, "schema_warnings", structured.SchemaWarnings)
	}
	t.logger.InfoContext(ctx, "task completed", attrs...)

	span.SetAttributes(attribute.String("tutor.result_kind", result.Kind()))
	t.metrics.RecordNormalized(task, result.Kind())
	return &Report{Result: result, Elapsed: elapsed}
}

// cleanTranslation removes one pair of wrapping quotes and unescapes quotes
// the model escaped.
func cleanTranslation(text string) string {
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = text[1 : len(text)-1]
		}
	}
	return strings.NewReplacer(`\"`, `"`, `\'`, `'`).Replace(text)
}

func invalidInput(detail string) error {
	return oops.Code(CodeInvalidInput).Errorf("%s", detail)
}
