// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token defaults.
const (
	DefaultTokenTTL = 24 * time.Hour
	TokenType       = "bearer"
	tokenIssuer     = "polylingo"
)

// InsecureDefaultSigningKey is used when no signing key is configured.
// Anyone who knows it can mint tokens; operators are warned at startup.
const InsecureDefaultSigningKey = "polylingo_secret_key"

// Token is a signed bearer token and the claims it carries.
type Token struct {
	Value     string
	Subject   string
	ExpiresAt time.Time
}

// TokenIssuer mints tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (*Token, error)
}

// TokenValidator checks a token and returns its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// TokenService issues and validates HS256 JWTs. Tokens are stateless:
// validity depends only on the signature and the expiry.
type TokenService struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenService during construction.
type TokenOption func(*TokenService)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. A non-positive ttl selects DefaultTokenTTL.
func NewTokenService(signingKey []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(signingKey) == 0 {
		return nil, oops.Code(CodeTokenFailed).Errorf("signing key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	s := &TokenService{
		key:    key,
		ttl:    ttl,
		issuer: tokenIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject expiring after ttl (the default when ttl <= 0).
func (s *TokenService) Issue(subject string, ttl time.Duration) (*Token, error) {
	if subject == "" {
		return nil, oops.Code(CodeTokenFailed).Errorf("token subject cannot be empty")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, oops.Code(CodeTokenFailed).
			With("subject", subject).
			Wrap(err)
	}

	return &Token{
		Value:     signed,
		Subject:   subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate returns the token's subject. It fails with CodeInvalidToken when the
// signature does not verify, the token cannot be decoded, or the current time
// is at or after the expiry.
func (s *TokenService) Validate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", oops.Code(CodeInvalidToken).
			With("reason", "empty").
			Errorf("token cannot be empty")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", oops.Code(CodeInvalidToken).
			With("reason", invalidReason(err)).
			Wrapf(err, "invalid token")
	}

	if claims.Subject == "" {
		return "", oops.Code(CodeInvalidToken).
			With("reason", "no_subject").
			Errorf("token has no subject")
	}
	return claims.Subject, nil
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "claims"
	}
}
