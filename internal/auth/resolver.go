// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Resolver maps a bearer token to the current user record.
// It is the only place a token subject is turned into a User.
type Resolver struct {
	tokens TokenValidator
	store  CredentialStore
}

// NewResolver creates a Resolver.
func NewResolver(tokens TokenValidator, store CredentialStore) (*Resolver, error) {
	if tokens == nil {
		return nil, oops.Errorf("token validator is required")
	}
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	return &Resolver{tokens: tokens, store: store}, nil
}

// Resolve validates the token and loads its subject. Every failure, including
// a subject that no longer exists, is reported as CodeUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, token string) (*User, error) {
	subject, err := r.tokens.Validate(token)
	if err != nil {
		// A fresh error keeps CodeUnauthenticated as the outermost code.
		return nil, oops.Code(CodeUnauthenticated).
			With("reason", "invalid_token").
			With("cause", err.Error()).
			Errorf("could not validate credentials")
	}

	user, err := r.store.Get(ctx, subject)
	if err != nil {
		reason := "lookup_failed"
		if errors.Is(err, ErrNotFound) {
			reason = "unknown_subject"
		}
		return nil, oops.Code(CodeUnauthenticated).
			With("reason", reason).
			With("username", subject).
			With("cause", err.Error()).
			Errorf("could not validate credentials")
	}
	return user, nil
}
