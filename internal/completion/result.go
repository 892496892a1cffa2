// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package completion

import (
	"github.com/samber/oops"
)

// Error codes carried by Failure.Err.
const (
	// CodeTransport covers a missing API key, network errors, timeouts and
	// non-2xx statuses.
	CodeTransport = "UPSTREAM_TRANSPORT"
	// CodeShape covers 2xx responses that do not contain generated text.
	CodeShape = "UPSTREAM_SHAPE"
)

// Result is the outcome of one completion call: Success or Failure.
type Result interface {
	// OK reports whether the call produced text.
	OK() bool
	isResult()
}

// Success carries the trimmed text of the first choice.
type Success struct {
	Text string
}

// Failure describes a call that produced no text. RawPayload holds the
// upstream body, if one was received.
type Failure struct {
	Err        error
	Message    string
	RawPayload string
}

func (Success) OK() bool { return true }
func (Failure) OK() bool { return false }

func (Success) isResult() {}
func (Failure) isResult() {}

// Error implements error so a Failure can be logged or wrapped directly.
func (f Failure) Error() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Message
}

// Code returns the failure's error code.
func (f Failure) Code() string {
	if oopsErr, ok := oops.AsOops(f.Err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return CodeTransport
}

func newFailure(code, message, raw string, cause error) Failure {
	builder := oops.Code(code).With("message", message)
	var err error
	if cause != nil {
		err = builder.Wrapf(cause, "%s", message)
	} else {
		err = builder.Errorf("%s", message)
	}
	return Failure{Err: err, Message: message, RawPayload: raw}
}
