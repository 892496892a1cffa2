// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package tutor

import (
	"strings"
	"text/template"

	"github.com/samber/oops"
)

const (
	tutorSystem     = "You are a language tutor. Give helpful, accurate learning feedback formatted as JSON."
	exerciseSystem  = "You write language practice exercises. Produce engaging exercises suited to the learner, formatted as JSON."
	analystSystem   = "You analyze conversations. Give a detailed, accurate analysis formatted as JSON."
	sentenceSystem  = "You grade sentences written by language learners. Respond with JSON only."
	translateSystem = "You are a professional multilingual translator for a travel and communication app. Translate text precisely and naturally."
)

// focusGuidance is the extra emphasis added to the tutor prompt per focus area.
var focusGuidance = map[string]string{
	FocusGrammar:    "Spend most of the grammar section on sentence structure, tense and agreement.",
	FocusVocabulary: "Spend most of the vocabulary section on key words, their meanings and example usage.",
	FocusIdioms:     "Point out idiomatic or figurative expressions and give natural equivalents.",
	FocusGeneral:    "Balance the sections evenly.",
}

var (
	tutorPrompt = template.Must(template.New("tutor").Parse(`Review the sentence below for a learner and give structured feedback.

Sentence: "{{.Text}}"
Learner's language: {{.UserLanguage}}
Language being learned: {{.TargetLanguage}}
Proficiency: {{.Proficiency}}
Focus: {{.Focus}}
{{.Guidance}}

Cover these sections:
- translation: a natural translation, plus a literal one when it differs noticeably
- grammar: the structure of the sentence and the grammar it uses, pitched at the learner's level
- vocabulary: key words and phrases with short definitions and an example each
- suggestions: patterns to practice next and a follow-up exercise or question
- cultural: register, politeness or regional notes, if any

Reply with a single JSON object using exactly these keys: translation, grammar, vocabulary, suggestions, cultural.
Every value must be an array of strings, for example:
{"translation": ["..."], "grammar": ["..."], "vocabulary": ["..."], "suggestions": ["..."], "cultural": ["..."]}
Do not write anything outside the JSON object.`))

	exercisePrompt = template.Must(template.New("exercise").Parse(`Write 3 {{.Proficiency}} level practice questions on the topic "{{.TargetLanguage}} {{.ExerciseType}}".
Base every question on this text: "{{.Text}}"
Give the answer to each question.

Reply with a single JSON object using exactly these keys: questions, answers.
Both values must be arrays of strings of equal length, for example:
{"questions": ["...", "...", "..."], "answers": ["...", "...", "..."]}
Do not write anything outside the JSON object.`))

	conversationPrompt = template.Must(template.New("conversation").Parse(`Analyze this conversation for {{.Aspects}}:
{{range .Messages}}Speaker {{.Speaker}} ({{.Language}}): {{.Text}}
{{end}}`))

	sentencePrompt = template.Must(template.New("sentence").Parse(`Grade this sentence: "{{.Text}}".
Judge its grammar, spelling and structure, then give:
- score: an integer from 1 to 100
- feedback: one sentence
- tip: one concrete improvement

Reply with a single JSON object using exactly these keys: score, feedback, tip. For example:
{"score": 85, "feedback": "...", "tip": "..."}
Do not write anything outside the JSON object.`))

	translatePrompt = template.Must(template.New("translate").Parse(`Translate the following {{if .Source}}{{.Source}} {{end}}text to {{.Target}}:

"{{.Text}}"`))
)

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", oops.Code(CodePromptFailed).
			With("template", tmpl.Name()).
			Wrap(err)
	}
	return strings.TrimSpace(b.String()), nil
}
