// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

// Package normalize turns model output into a JSON object when it parses as
// one, and preserves it verbatim when it does not.
package normalize

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/polylingo/polylingo/internal/completion"
)

// ParseErrorMessage prefixes the error reported for text that is not a
// JSON object.
const ParseErrorMessage = "failed to parse JSON response"

// Result is Structured or Unstructured.
type Result interface {
	// Kind is "structured" or "unstructured".
	Kind() string
	isResult()
}

// Structured holds a parsed JSON object exactly as the model produced it.
// SchemaWarnings lists deviations from the expected shape; they never alter
// Fields.
type Structured struct {
	Fields         map[string]any
	SchemaWarnings []string
}

// Unstructured holds text that could not be parsed, or the payload of a
// failed completion, together with the reason.
type Unstructured struct {
	Raw        string
	ParseError string
}

func (Structured) Kind() string   { return "structured" }
func (Unstructured) Kind() string { return "unstructured" }

func (Structured) isResult()   {}
func (Unstructured) isResult() {}

// MarshalJSON encodes the parsed object itself.
func (s Structured) MarshalJSON() ([]byte, error) {
	if s.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Fields)
}

// MarshalJSON encodes {"raw": ..., "error": ...}.
func (u Unstructured) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Raw   string `json:"raw"`
		Error string `json:"error"`
	}{Raw: u.Raw, Error: u.ParseError})
}

// Normalize converts a completion result. A nil schema skips shape checks.
func Normalize(result completion.Result, schema *Schema) Result {
	switch r := result.(type) {
	case completion.Success:
		return parse(r.Text, schema)
	case completion.Failure:
		return Unstructured{Raw: r.RawPayload, ParseError: r.Message}
	default:
		return Unstructured{ParseError: "no completion result"}
	}
}

func parse(text string, schema *Schema) Result {
	fields, err := decodeObject(stripFence(text))
	if err != nil {
		return Unstructured{Raw: text, ParseError: ParseErrorMessage + ": " + err.Error()}
	}
	return Structured{Fields: fields, SchemaWarnings: schema.Check(fields)}
}

// decodeObject accepts exactly one JSON object. Numbers are kept as
// json.Number so they re-encode unchanged.
func decodeObject(body string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("response is empty")
		}
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("response is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

// stripFence removes one Markdown code fence wrapping the whole text.
func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return text
	}
	inner := trimmed[3 : len(trimmed)-3]
	newline := strings.IndexByte(inner, '\n')
	if newline < 0 {
		return text
	}
	// The first line is the optional language tag.
	if tag := strings.TrimSpace(inner[:newline]); tag != "" && !isWord(tag) {
		return text
	}
	return inner[newline+1:]
}

func isWord(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	}) < 0
}
