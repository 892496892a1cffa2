// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package tutor

// AutoDetect asks the model to detect the source language.
const AutoDetect = "auto"

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"tr": "Turkish",
	"nl": "Dutch",
	"pl": "Polish",
	"vi": "Vietnamese",
	"th": "Thai",
}

// LanguageName returns the English name for a language code, or the code
// itself when it is not in the table.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
