// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// TutorReport is the shape requested from the model for learning
// suggestions.
type TutorReport struct {
	Translation []string `json:"translation"`
	Grammar     []string `json:"grammar"`
	Vocabulary  []string `json:"vocabulary"`
	Suggestions []string `json:"suggestions"`
	Cultural    []string `json:"cultural"`
}

// ExerciseSet is the shape requested for generated exercises.
type ExerciseSet struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
}

// SentenceAnalysis is the shape requested for single-sentence scoring.
type SentenceAnalysis struct {
	Score    int    `json:"score" jsonschema:"minimum=1,maximum=100"`
	Feedback string `json:"feedback"`
	Tip      string `json:"tip"`
}

// Compiled schemas for each task. Conversation analysis is free-form and has
// no schema.
var (
	TutorSchema    = MustCompile("tutor-report", &TutorReport{})
	ExerciseSchema = MustCompile("exercise-set", &ExerciseSet{})
	SentenceSchema = MustCompile("sentence-analysis", &SentenceAnalysis{})
)

// Schemas returns the task schemas in a stable order.
func Schemas() []*Schema {
	return []*Schema{TutorSchema, ExerciseSchema, SentenceSchema}
}

// Lookup returns the task schema with the given name, or nil.
func Lookup(name string) *Schema {
	for _, s := range Schemas() {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Schema checks a parsed object against a JSON Schema reflected from a Go
// type.
type Schema struct {
	name     string
	source   []byte
	compiled *jschema.Schema
}

// Compile reflects v into a JSON Schema and compiles it. Additional
// properties are allowed.
func Compile(name string, v any) (*Schema, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Anonymous:                 true,
	}
	reflected := r.Reflect(v)
	reflected.Title = name

	source, err := json.Marshal(reflected)
	if err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "marshal schema")
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(source))
	if err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "parse schema")
	}

	url := name + ".schema.json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "add schema resource")
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "compile schema")
	}
	return &Schema{name: name, source: source, compiled: compiled}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(name string, v any) *Schema {
	s, err := Compile(name, v)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// JSON returns the reflected JSON Schema document.
func (s *Schema) JSON() []byte {
	if s == nil {
		return nil
	}
	return s.source
}

// Check returns one warning per violated constraint, sorted by instance
// location. A nil schema reports nothing.
func (s *Schema) Check(fields map[string]any) []string {
	if s == nil {
		return nil
	}
	err := s.compiled.Validate(fields)
	if err == nil {
		return nil
	}

	var verr *jschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}

	var warnings []string
	for _, unit := range verr.BasicOutput().Errors {
		if unit.Error == nil {
			continue
		}
		switch unit.Error.Kind.(type) {
		case *kind.Group, *kind.Schema, *kind.Reference:
			continue
		}
		location := unit.InstanceLocation
		if location == "" {
			location = "/"
		}
		warnings = append(warnings, fmt.Sprintf("%s: %s", location, unit.Error.String()))
	}
	if len(warnings) == 0 {
		return []string{verr.Error()}
	}
	sort.Strings(warnings)
	return warnings
}
