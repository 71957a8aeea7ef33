// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package methods implements the connector's host-facing methods: each has
// an input script (schema) and a run script (side effect or poll).
package methods

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/pollcache"
	"github.com/ManuGH/boardlink/internal/trello"
)

// Method types and kinds as the host registers them.
const (
	TypeAction = "action"
	TypePoller = "poller"

	KindTask    = "task"
	KindTrigger = "trigger"
)

// ErrUnknownMethod is returned for slugs that are not registered.
var ErrUnknownMethod = errors.New("methods: unknown method")

// Meta describes a method to the host.
type Meta struct {
	Name   string              `json:"name"`
	Slug   string              `json:"slug"`
	Type   string              `json:"type"`
	Kind   string              `json:"kind"`
	Fields []fields.InputField `json:"input_fields"`
}

// Client is the Trello surface the methods use. *trello.Client implements it.
type Client interface {
	fields.Source
	LatestCardIDs(ctx context.Context, boardID string) ([]string, error)
	Cards(ctx context.Context, ids []string) ([]json.RawMessage, error)
	CreateCard(ctx context.Context, card trello.NewCard) (trello.CreatedCard, error)
}

// Env carries everything one invocation needs. Nothing in it outlives the
// call except the poll store behind Poll.
type Env struct {
	Client       Client
	Resolver     *fields.Resolver
	Poll         *pollcache.Engine
	ConnectionID string
}

// InputRequest is the input script argument.
type InputRequest struct {
	Target *fields.FieldTarget `json:"target,omitempty"`
	// Flat asks for one schema spanning all boards instead of dependent
	// fields.
	Flat bool `json:"flat,omitempty"`
}

// Method is one registered connector method.
type Method interface {
	Meta() Meta
	Input(ctx context.Context, env Env, req InputRequest) ([]fields.InputField, error)
	Run(ctx context.Context, env Env, values Values) (any, error)
}

// Values holds the user's input as the host sends it.
type Values map[string]any

// String returns the value under key as a string. Numbers are formatted
// without exponent; nil and missing keys give "".
func (v Values) String(key string) string {
	switch x := v[key].(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, Values{"v": p}.String("v"))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

// Trimmed is String with surrounding whitespace removed.
func (v Values) Trimmed(key string) string {
	return strings.TrimSpace(v.String(key))
}
