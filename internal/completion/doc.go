// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

// Package completion is the client for the external chat completion
// service. Every call produces a Result: either the generated text or a
// Failure describing what went wrong. Complete never returns a Go error.
package completion
