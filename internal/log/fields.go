// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService      = "service"
	FieldVersion      = "version"
	FieldRequestID    = "request_id"
	FieldConnectionID = "connection_id"
	FieldComponent    = "component"
	FieldEvent        = "event"

	// Connector fields
	FieldMethod     = "method"
	FieldScript     = "script"
	FieldPollerKey  = "poller_key"
	FieldBoardID    = "board_id"
	FieldCardID     = "card_id"
	FieldTarget     = "target"
	FieldFieldCount = "field_count"

	// Upstream call fields
	FieldRoute      = "route"
	FieldHTTPMethod = "http_method"
	FieldStatus     = "status"
	FieldErrorKind  = "error_kind"
	FieldDurationMS = "duration_ms"

	// Poll cache fields
	FieldIncoming = "incoming"
	FieldNew      = "new"
	FieldBackend  = "backend"
)
