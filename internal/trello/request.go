// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	adlio "github.com/adlio/trello"
)

// Credentials is the token bundle handed over by the host for one connection.
// It is never mutated and never logged.
type Credentials struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret,omitempty"`
	Token          string `json:"token"`
	TokenSecret    string `json:"token_secret,omitempty"`
}

// String keeps credentials out of logs and %v output.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{consumer_key:%s token:%s}", mask(c.ConsumerKey), mask(c.Token))
}

// authorization renders the Trello OAuth header.
func (c Credentials) authorization() string {
	if c.ConsumerKey == "" && c.Token == "" {
		return ""
	}
	return fmt.Sprintf(`OAuth oauth_consumer_key="%s", oauth_token="%s"`, c.ConsumerKey, c.Token)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// RequestSpec describes one logical call against the Trello REST API.
type RequestSpec struct {
	// Path is relative to the API root, e.g. "boards/42/lists".
	Path string
	// Route is the low-cardinality template used for metrics and spans.
	// Derived from Path when empty.
	Route  string
	Method string
	Query  adlio.Arguments
	// Body is JSON encoded when non-nil.
	Body any
	// ExpectJSON validates 2xx bodies as JSON. When false the raw body is
	// handed back as a JSON string.
	ExpectJSON bool
}

// Get returns a JSON GET spec.
func Get(path string, query adlio.Arguments) RequestSpec {
	return RequestSpec{Path: path, Method: http.MethodGet, Query: query, ExpectJSON: true}
}

// Post returns a JSON POST spec.
func Post(path string, body any) RequestSpec {
	return RequestSpec{Path: path, Method: http.MethodPost, Body: body, ExpectJSON: true}
}

// WithRoute sets the metrics route template.
func (s RequestSpec) WithRoute(route string) RequestSpec {
	s.Route = route
	return s
}

func (s RequestSpec) method() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(s.Method)
}

func (s RequestSpec) route() string {
	if s.Route != "" {
		return s.Route
	}
	return routeTemplate(s.Path)
}

func (s RequestSpec) encodedQuery() string {
	if len(s.Query) == 0 {
		return ""
	}
	v := url.Values{}
	for k, val := range s.Query {
		v.Set(k, val)
	}
	return v.Encode()
}

// JoinQueryList encodes an array query parameter the way Trello expects it.
func JoinQueryList(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}

var idSegment = regexp.MustCompile(`^(?:[0-9a-fA-F]{24}|[0-9]+|[A-Za-z0-9]{8})$`)

// routeTemplate replaces identifier-looking path segments with {id}.
func routeTemplate(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if i > 0 && idSegment.MatchString(p) && p != "me" {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
