// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// Error codes attached to oops errors returned by this package.
const (
	CodeDuplicateUsername  = "AUTH_DUPLICATE_USERNAME"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeInvalidEmail       = "AUTH_INVALID_EMAIL"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeInvalidHash        = "AUTH_INVALID_HASH"
	CodeStoreFailed        = "AUTH_STORE_FAILED"
	CodeHashFailed         = "AUTH_HASH_FAILED"
	CodeTokenFailed        = "AUTH_TOKEN_FAILED"
)
