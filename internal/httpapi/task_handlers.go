// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package httpapi

import (
	"net/http"

	"github.com/polylingo/polylingo/internal/tutor"
)

// Task responses always carry success=true: upstream and parse problems are
// reported inside the normalized result, never as an HTTP error.

func (rt *Router) handleSuggestions(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Text             string `json:"text"`
		UserLanguage     string `json:"userLanguage"`
		TargetLanguage   string `json:"targetLanguage"`
		ProficiencyLevel string `json:"proficiencyLevel"`
		FocusArea        string `json:"focusArea"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	in := tutor.LearningInput{
		Text:           payload.Text,
		UserLanguage:   payload.UserLanguage,
		TargetLanguage: payload.TargetLanguage,
		Proficiency:    payload.ProficiencyLevel,
		Focus:          payload.FocusArea,
	}
	report, err := rt.tutor.Suggestions(req.Context(), in)
	if err != nil {
		rt.respondError(w, req, err)
		return
	}
	in = in.WithDefaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"text":             in.Text,
		"suggestions":      report.Result,
		"userLanguage":     in.UserLanguage,
		"targetLanguage":   in.TargetLanguage,
		"proficiencyLevel": in.Proficiency,
		"focusArea":        in.Focus,
		"processingTimeMs": report.Elapsed.Milliseconds(),
	})
}

func (rt *Router) handleExercises(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Text             string `json:"text"`
		TargetLanguage   string `json:"targetLanguage"`
		ProficiencyLevel string `json:"proficiencyLevel"`
		ExerciseType     string `json:"exerciseType"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	in := tutor.ExerciseInput{
		Text:           payload.Text,
		TargetLanguage: payload.TargetLanguage,
		Proficiency:    payload.ProficiencyLevel,
		ExerciseType:   payload.ExerciseType,
	}
	report, err := rt.tutor.Exercises(req.Context(), in)
	if err != nil {
		rt.respondError(w, req, err)
		return
	}
	in = in.WithDefaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"text":             in.Text,
		"exercises":        report.Result,
		"targetLanguage":   in.TargetLanguage,
		"proficiencyLevel": in.Proficiency,
		"exerciseType":     in.ExerciseType,
		"processingTimeMs": report.Elapsed.Milliseconds(),
	})
}

func (rt *Router) handleConversation(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Messages []struct {
			Text     string `json:"text"`
			Speaker  string `json:"speaker"`
			Language string `json:"language"`
		} `json:"messages"`
		AnalyzeFor []string `json:"analyzeFor"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	in := tutor.ConversationInput{AnalyzeFor: payload.AnalyzeFor}
	for _, m := range payload.Messages {
		in.Messages = append(in.Messages, tutor.Message{Text: m.Text, Speaker: m.Speaker, Language: m.Language})
	}
	report, err := rt.tutor.AnalyzeConversation(req.Context(), in)
	if err != nil {
		rt.respondError(w, req, err)
		return
	}
	in = in.WithDefaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"messageCount":     len(in.Messages),
		"analysis":         report.Result,
		"analyzedFor":      in.AnalyzeFor,
		"processingTimeMs": report.Elapsed.Milliseconds(),
	})
}

func (rt *Router) handleSentence(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	report, err := rt.tutor.AnalyzeSentence(req.Context(), payload.Text)
	if err != nil {
		rt.respondError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"text":             payload.Text,
		"analysis":         report.Result,
		"processingTimeMs": report.Elapsed.Milliseconds(),
	})
}

func (rt *Router) handleTranslate(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Text           string `json:"text"`
		SourceLanguage string `json:"sourceLanguage"`
		TargetLanguage string `json:"targetLanguage"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	out, err := rt.tutor.Translate(req.Context(), tutor.TranslateInput{
		Text:           payload.Text,
		SourceLanguage: payload.SourceLanguage,
		TargetLanguage: payload.TargetLanguage,
	})
	if err != nil {
		rt.respondError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"translation":      out.Text,
		"translated":       out.Text,
		"sourceLanguage":   out.SourceLanguage,
		"targetLanguage":   out.TargetLanguage,
		"fallback":         out.Fallback,
		"processingTimeMs": out.Elapsed.Milliseconds(),
	})
}

// handleGenerate is the free-form passthrough. Unlike the tutor tasks it
// answers 502 when the upstream call fails.
func (rt *Router) handleGenerate(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Prompt      string   `json:"prompt"`
		Temperature *float64 `json:"temperature"`
		MaxTokens   int      `json:"max_tokens"`
		TopP        *float64 `json:"top_p"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	out, err := rt.tutor.Generate(req.Context(), tutor.GenerateInput{
		Prompt:      payload.Prompt,
		Temperature: payload.Temperature,
		MaxTokens:   payload.MaxTokens,
		TopP:        payload.TopP,
	})
	if err != nil {
		rt.respondError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":             out.Text,
		"processingTimeMs": out.Elapsed.Milliseconds(),
	})
}
