// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxDiagnosticBody = 512

// Classify maps an upstream status code and raw body onto either a JSON
// payload or a classified *Error.
func Classify(status int, body []byte) (json.RawMessage, error) {
	switch {
	case status >= http.StatusOK && status <= 299:
		return parsePayload(status, body)

	case status == http.StatusUnauthorized:
		return nil, &Error{
			Kind:    KindAuthExpired,
			Message: MsgAuthExpired,
			Status:  status,
			Body:    diagnosticBody(body),
		}

	case status >= http.StatusBadRequest && status <= 499:
		return nil, &Error{
			Kind:    KindRejected,
			Message: rejectedMessage(body),
			Status:  status,
			Body:    diagnosticBody(body),
		}

	default:
		return nil, &Error{
			Kind:    KindRetryable,
			Message: msgRetryablePrefix + redact(bodyMessage(body, msgRetryableFallback)),
			Status:  status,
			Body:    diagnosticBody(body),
		}
	}
}

// ClassifyTransport classifies a failure that happened before any status code
// was received. These are always retryable.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}

	reason := "transport failure"
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "request timed out"
	case errors.Is(err, context.Canceled):
		reason = "request cancelled"
	case errors.As(err, &dnsErr):
		reason = "host lookup failed"
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = "request timed out"
	}
	return Retryable(msgRetryablePrefix+reason, err)
}

func parsePayload(status int, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		var probe any
		cause := json.Unmarshal(trimmed, &probe)
		return nil, &Error{
			Kind:    KindRetryable,
			Message: msgRetryablePrefix + "invalid JSON in response",
			Status:  status,
			Body:    diagnosticBody(body),
			Err:     cause,
		}
	}
	out := make(json.RawMessage, len(trimmed))
	copy(out, trimmed)
	return out, nil
}

func rejectedMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if strings.EqualFold(trimmed, "invalid objectId") || strings.EqualFold(trimmed, "invalid id") {
		return MsgInvalidRecordID
	}
	return bodyMessage(body, MsgRejectedFallback)
}

// bodyMessage returns the trimmed body with its first letter upper-cased, or
// fallback when the body is blank.
func bodyMessage(body []byte, fallback string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}
	return capitalize(trimmed)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func diagnosticBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxDiagnosticBody {
		s = s[:maxDiagnosticBody] + "..."
	}
	return redact(s)
}
