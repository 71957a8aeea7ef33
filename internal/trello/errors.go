// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"errors"
	"fmt"
)

// Kind is the three-way outcome attached to every failed upstream call.
type Kind int

const (
	// KindRetryable covers transport failures, 5xx and malformed bodies.
	// The host may retry with backoff; the message is diagnostic only.
	KindRetryable Kind = iota + 1
	// KindAuthExpired is a 401. The host refreshes credentials and retries once.
	KindAuthExpired
	// KindRejected is any other 4xx or a local validation failure. Terminal,
	// and the message is shown to the end user verbatim.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindAuthExpired:
		return "auth_expired"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var (
	// Sentinel errors for errors.Is checks at the host boundary.
	ErrRetryable   = errors.New("trello: retryable upstream failure")
	ErrAuthExpired = errors.New("trello: service connection expired")
	ErrRejected    = errors.New("trello: request rejected")
)

// User-facing messages.
const (
	MsgAuthExpired      = "Your service connection is not valid, please renew."
	MsgInvalidRecordID  = "You used a record ID that doesn't exist."
	MsgRejectedFallback = "Something unexpected happened and the request didn't succeed."

	msgRetryablePrefix   = "Error connecting to Trello: "
	msgRetryableFallback = "An unexpected error occurred."
)

func (k Kind) sentinel() error {
	switch k {
	case KindAuthExpired:
		return ErrAuthExpired
	case KindRejected:
		return ErrRejected
	default:
		return ErrRetryable
	}
}

// Error is a classified upstream (or local validation) failure.
type Error struct {
	Kind      Kind
	Message   string
	Operation string // route template, e.g. "boards/{id}/lists"
	Status    int
	Body      string // redacted, truncated diagnostic copy of the response body
	Err       error  // lower-level cause (net.Error, json.SyntaxError, ...)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("trello: %s: %s", e.Kind, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("trello: %s %s: %s", e.Operation, e.Kind, e.Message)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// UserMessage returns the text that may be shown to an end user. Retryable
// errors never carry one.
func (e *Error) UserMessage() string {
	if e.Kind == KindRetryable {
		return ""
	}
	return e.Message
}

// Rejected builds a user-facing, non-retryable error. Used for local input
// validation before any network call.
func Rejected(message string) *Error {
	return &Error{Kind: KindRejected, Message: message}
}

// Retryable wraps cause as a retryable failure with a diagnostic message.
func Retryable(message string, cause error) *Error {
	return &Error{Kind: KindRetryable, Message: message, Err: cause}
}

// AsError extracts a classified error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the classification of err. Errors that never went through
// the classifier (store failures, cancelled contexts) are retryable.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindRetryable
}
