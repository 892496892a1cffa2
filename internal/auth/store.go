// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package auth

import (
	"context"
	"sync"

	"github.com/samber/oops"
)

// CredentialStore holds one record per username.
// Implementations must make Insert's uniqueness check and write atomic.
type CredentialStore interface {
	// Get retrieves a user by username. Returns ErrNotFound if absent.
	Get(ctx context.Context, username string) (*User, error)

	// Insert stores a new user. It fails with CodeDuplicateUsername or
	// CodeDuplicateEmail if either is already taken.
	Insert(ctx context.Context, user *User) error

	// ExistsEmail reports whether any record uses the email (case-insensitive).
	ExistsEmail(ctx context.Context, email string) (bool, error)

	// Count returns the number of stored users.
	Count(ctx context.Context) (int, error)
}

// MemoryStore is an in-process CredentialStore. Its contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]User
	emails map[string]string // normalized email -> username
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]User),
		emails: make(map[string]string),
	}
}

// Get returns a copy of the stored user.
func (s *MemoryStore) Get(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// Insert stores a copy of user after checking both uniqueness constraints
// under the write lock.
func (s *MemoryStore) Insert(_ context.Context, user *User) error {
	if user == nil {
		return oops.Code(CodeStoreFailed).Errorf("user cannot be nil")
	}
	email := normalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return oops.Code(CodeDuplicateUsername).
			With("username", user.Username).
			Errorf("username already registered")
	}
	if _, exists := s.emails[email]; exists {
		return oops.Code(CodeDuplicateEmail).
			Errorf("email already registered")
	}

	s.users[user.Username] = *user
	s.emails[email] = user.Username
	return nil
}

// ExistsEmail reports whether the email is already registered.
func (s *MemoryStore) ExistsEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.emails[normalizeEmail(email)]
	return ok, nil
}

// Count returns the number of stored users.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
