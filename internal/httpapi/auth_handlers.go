// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/polylingo/polylingo/internal/auth"
)

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	User        *userResponse `json:"user,omitempty"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (rt *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}

	user, err := rt.auth.Register(req.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		rt.metrics.RecordAuthEvent("register", "failure")
		rt.respondError(w, req, err)
		return
	}
	rt.metrics.RecordAuthEvent("register", "success")
	if n, err := rt.auth.UserCount(req.Context()); err == nil {
		rt.metrics.SetRegisteredUsers(n)
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// handleToken is the OAuth2 password-grant style endpoint: form fields in,
// bare token out.
func (rt *Router) handleToken(w http.ResponseWriter, req *http.Request) {
	creds, ok := readFormCredentials(w, req)
	if !ok {
		return
	}
	result, ok := rt.login(w, req, creds)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: result.Token.Value,
		TokenType:   auth.TokenType,
		ExpiresAt:   result.Token.ExpiresAt,
	})
}

// handleLogin accepts form or JSON credentials and returns the user with the token.
func (rt *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var creds credentials
	if isJSON(req) {
		if !decodeJSON(w, req, &creds) {
			return
		}
	} else {
		var ok bool
		if creds, ok = readFormCredentials(w, req); !ok {
			return
		}
	}

	result, ok := rt.login(w, req, creds)
	if !ok {
		return
	}
	user := newUserResponse(result.User)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: result.Token.Value,
		TokenType:   auth.TokenType,
		ExpiresAt:   result.Token.ExpiresAt,
		User:        &user,
	})
}

func (rt *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	user, ok := userFromContext(req.Context())
	if !ok {
		writeUnauthorized(w, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (rt *Router) login(w http.ResponseWriter, req *http.Request, creds credentials) (*auth.LoginResult, bool) {
	result, err := rt.auth.Login(req.Context(), creds.Username, creds.Password)
	if err != nil {
		rt.metrics.RecordAuthEvent("login", "failure")
		rt.respondError(w, req, err)
		return nil, false
	}
	rt.metrics.RecordAuthEvent("login", "success")
	return result, true
}

func readFormCredentials(w http.ResponseWriter, req *http.Request) (credentials, bool) {
	if err := req.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return credentials{}, false
		}
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return credentials{}, false
	}
	creds := credentials{
		Username: req.PostForm.Get("username"),
		Password: req.PostForm.Get("password"),
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return credentials{}, false
	}
	return creds, true
}
