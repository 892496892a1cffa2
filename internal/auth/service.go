// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token *Token
	User  *User
}

// Service provides registration and credential operations.
type Service struct {
	store  CredentialStore
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger
	now    func() time.Time

	// dummyHash is verified against when a username is unknown so both
	// failure paths cost one hash verification.
	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithLogger sets the logger used for auth events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock replaces time.Now for record timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. All dependencies are required.
func NewService(store CredentialStore, hasher PasswordHasher, tokens TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a new user. Username conflicts are reported before email
// conflicts; the store re-checks both atomically on insert.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	// Pre-check so duplicates are rejected without paying for a hash.
	_, err := s.store.Get(ctx, username)
	switch {
	case err == nil:
		return nil, oops.Code(CodeDuplicateUsername).
			With("username", username).
			Errorf("username already registered")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "get user by username").
			Wrap(err)
	}

	taken, err := s.store.ExistsEmail(ctx, email)
	if err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "check email").
			Wrap(err)
	}
	if taken {
		return nil, oops.Code(CodeDuplicateEmail).Errorf("email already registered")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "username", username, "user_id", user.ID.String())
	return user, nil
}

// Find returns the user with the given username or ErrNotFound.
func (s *Service) Find(ctx context.Context, username string) (*User, error) {
	user, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "get user by username").
			Wrap(err)
	}
	return user, nil
}

// VerifyCredentials returns the user when password matches. Unknown usernames
// and wrong passwords fail with the same CodeInvalidCredentials error, and
// unknown usernames still pay for one hash verification.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	user, lookupErr := s.store.Get(ctx, username)

	var targetHash string
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.dummyPasswordHash()
	default:
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	// bcrypt ignores bytes past MaxPasswordLength, so longer input could
	// match a registered prefix.
	if len(password) > MaxPasswordLength {
		return nil, invalidCredentials()
	}
	if verifyErr != nil && exists {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "verify password").
			With("username", username).
			Wrap(verifyErr)
	}

	if !exists || !valid {
		return nil, invalidCredentials()
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token for the user.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Username, 0)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "username", user.Username)
	return &LoginResult{Token: token, User: user}, nil
}

// UserCount returns the number of registered users.
func (s *Service) UserCount(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, oops.Code(CodeStoreFailed).With("operation", "count users").Wrap(err)
	}
	return n, nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("incorrect username or password")
}

func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return
		}
		hash, err := s.hasher.Hash(hex.EncodeToString(secret))
		if err != nil {
			s.logger.Warn("failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
