// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/methods"
	"github.com/ManuGH/boardlink/internal/trello"
)

// Error codes in response bodies.
const (
	codeRejected    = "rejected"
	codeAuthExpired = "auth_expired"
	codeRetryable   = "retryable"
	codeBadRequest  = "bad_request"
	codeNotFound    = "not_found"
)

// retryAfterSeconds is advertised on retryable failures.
const retryAfterSeconds = "5"

type problem struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, problem{Error: code, Message: message})
}

// writeMethodError maps a method failure onto the host contract. Retryable
// failures never carry a message; the detail goes to the log only.
func writeMethodError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, methods.ErrUnknownMethod) {
		writeProblem(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}

	var message string
	kind := trello.KindOf(err)
	if e, ok := trello.AsError(err); ok {
		message = e.UserMessage()
	}

	switch kind {
	case trello.KindRejected:
		writeProblem(w, http.StatusUnprocessableEntity, codeRejected, message)
	case trello.KindAuthExpired:
		writeProblem(w, http.StatusUnauthorized, codeAuthExpired, message)
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "invocation.retryable").
			Str(log.FieldErrorKind, kind.String()).
			Msg("invocation failed, host should retry")
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeProblem(w, http.StatusServiceUnavailable, codeRetryable, "")
	}
}
