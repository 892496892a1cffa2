// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/polylingo/polylingo/internal/auth"
	"github.com/polylingo/polylingo/internal/tutor"
	"github.com/polylingo/polylingo/pkg/errutil"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error detail.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeUnauthorized sends a 401 with a bearer challenge.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}

// respondError maps an error code to a status. Unknown errors are logged and
// reported without detail.
func (rt *Router) respondError(w http.ResponseWriter, req *http.Request, err error) {
	switch errutil.Code(err) {
	case auth.CodeDuplicateUsername, auth.CodeDuplicateEmail,
		auth.CodeInvalidUsername, auth.CodeInvalidEmail, auth.CodeWeakPassword,
		tutor.CodeInvalidInput:
		writeError(w, http.StatusBadRequest, err.Error())
	case auth.CodeInvalidCredentials:
		errutil.LogError(req.Context(), rt.logger, slog.LevelInfo, "credential check failed", err)
		writeUnauthorized(w, "Incorrect username or password")
	case auth.CodeUnauthenticated, auth.CodeInvalidToken:
		errutil.LogError(req.Context(), rt.logger, slog.LevelInfo, "token rejected", err)
		writeUnauthorized(w, "Could not validate credentials")
	case tutor.CodeUpstreamFailed:
		errutil.LogError(req.Context(), rt.logger, slog.LevelWarn, "generation failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		errutil.LogError(req.Context(), rt.logger, slog.LevelError, "request failed", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads the body into dst, answering 413 or 400 itself on failure.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func isJSON(req *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
