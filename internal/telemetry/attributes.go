// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across boardlink.
const (
	// Resource attributes
	ServiceNameKey           = "service.name"
	ServiceVersionKey        = "service.version"
	DeploymentEnvironmentKey = "deployment.environment"

	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Upstream attributes
	PeerServiceKey = "peer.service"

	// Connector attributes
	MethodKey      = "connector.method"
	ScriptKey      = "connector.script"
	TargetFieldKey = "connector.target_field"
	PollerKeyKey   = "connector.poller_key"
	BatchSizeKey   = "connector.batch_size"
	NewItemsKey    = "connector.new_items"
	FieldCountKey  = "connector.field_count"

	// Error attributes
	ErrorKey     = "error"
	ErrorKindKey = "error.kind"
)

// UpstreamAttributes describes an outbound call to the Trello API.
func UpstreamAttributes(method, route string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PeerServiceKey, "trello"),
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
}

// ScriptAttributes describes one connector method invocation.
func ScriptAttributes(method, script string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MethodKey, method),
		attribute.String(ScriptKey, script),
	}
}

// PollAttributes describes a poll dedup pass. Empty keys are omitted.
func PollAttributes(pollerKey string, batch, fresh int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if pollerKey != "" {
		attrs = append(attrs, attribute.String(PollerKeyKey, pollerKey))
	}
	return append(attrs,
		attribute.Int(BatchSizeKey, batch),
		attribute.Int(NewItemsKey, fresh),
	)
}

// ResolveAttributes describes a field resolution pass.
func ResolveAttributes(target string, fields int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if target != "" {
		attrs = append(attrs, attribute.String(TargetFieldKey, target))
	}
	return append(attrs, attribute.Int(FieldCountKey, fields))
}

// ErrorAttributes flags a span as failed with the given classification.
func ErrorAttributes(kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorKindKey, kind),
	}
}
