// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Success(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "object", status: 200, body: `{"id":"abc"}`, want: `{"id":"abc"}`},
		{name: "array with whitespace", status: 200, body: "  [1,2]\n", want: `[1,2]`},
		{name: "created", status: 201, body: `{"id":"x"}`, want: `{"id":"x"}`},
		{name: "empty body", status: 204, body: "", want: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.status, []byte(tt.body))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestClassify_InvalidJSONIsRetryable(t *testing.T) {
	_, err := Classify(200, []byte("<html>oops</html>"))
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindRetryable, e.Kind)
	assert.Equal(t, "Error connecting to Trello: invalid JSON in response", e.Message)
	assert.Equal(t, 200, e.Status)

	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
	assert.ErrorIs(t, err, ErrRetryable)
}

func TestClassify_Unauthorized(t *testing.T) {
	for _, body := range []string{"", "invalid token", `{"message":"expired"}`} {
		_, err := Classify(401, []byte(body))
		e, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindAuthExpired, e.Kind)
		assert.Equal(t, "Your service connection is not valid, please renew.", e.Message)
		assert.ErrorIs(t, err, ErrAuthExpired)
	}
}

func TestClassify_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "invalid objectId", status: 400, body: "invalid objectId", want: "You used a record ID that doesn't exist."},
		{name: "invalid id mixed case padded", status: 400, body: "  Invalid ID\n", want: "You used a record ID that doesn't exist."},
		{name: "plain body capitalized", status: 400, body: "invalid value for idList", want: "Invalid value for idList"},
		{name: "already capitalized", status: 404, body: "The requested resource was not found.", want: "The requested resource was not found."},
		{name: "empty body", status: 403, body: "", want: "Something unexpected happened and the request didn't succeed."},
		{name: "whitespace body", status: 422, body: " \n\t", want: "Something unexpected happened and the request didn't succeed."},
		{name: "rate limited", status: 429, body: "rate limit exceeded", want: "Rate limit exceeded"},
		{name: "non ascii", status: 400, body: "é invalide", want: "É invalide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.status, []byte(tt.body))
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindRejected, e.Kind)
			assert.Equal(t, tt.want, e.Message)
			assert.Equal(t, tt.want, e.UserMessage())
			assert.Equal(t, tt.status, e.Status)
			assert.ErrorIs(t, err, ErrRejected)
		})
	}
}

func TestClassify_Retryable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "server error", status: 500, body: "internal failure", want: "Error connecting to Trello: Internal failure"},
		{name: "unavailable empty", status: 503, body: "", want: "Error connecting to Trello: An unexpected error occurred."},
		{name: "redirect", status: 302, body: "", want: "Error connecting to Trello: An unexpected error occurred."},
		{name: "credential echoed", status: 502, body: "bad gateway token=abc123", want: "Error connecting to Trello: Bad gateway token=[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.status, []byte(tt.body))
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindRetryable, e.Kind)
			assert.Equal(t, tt.want, e.Message)
			assert.Empty(t, e.UserMessage())
		})
	}
}

func TestClassify_EveryStatusHasOneKind(t *testing.T) {
	for status := 100; status < 600; status++ {
		payload, err := Classify(status, []byte(`{}`))
		if status >= 200 && status <= 299 {
			assert.NoError(t, err, "status %d", status)
			assert.NotNil(t, payload)
			continue
		}
		require.Error(t, err, "status %d", status)
		assert.Nil(t, payload)

		var want Kind
		switch {
		case status == 401:
			want = KindAuthExpired
		case status >= 400 && status <= 499:
			want = KindRejected
		default:
			want = KindRetryable
		}
		assert.Equal(t, want, KindOf(err), "status %d", status)
	}
}

func TestClassify_RejectedMessageIsVerbatim(t *testing.T) {
	_, err := Classify(400, []byte("invalid value for key: desc"))
	e, ok := AsError(err)
	require.True(t, ok)

	assert.Equal(t, "Invalid value for key: desc", e.Message)
	assert.Equal(t, "Invalid value for key: desc", e.UserMessage())
	assert.Equal(t, "invalid value for key: [REDACTED]", e.Body)
}

func TestClassify_DiagnosticBodyIsRedactedAndTruncated(t *testing.T) {
	body := `{"message":"bad","token":"s3cr3t"}` + strings.Repeat("x", 2*maxDiagnosticBody)
	_, err := Classify(500, []byte(body))
	e, ok := AsError(err)
	require.True(t, ok)

	assert.NotContains(t, e.Body, "s3cr3t")
	assert.Contains(t, e.Body, "[REDACTED]")
	assert.True(t, strings.HasSuffix(e.Body, "..."))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("do: %w", context.DeadlineExceeded), want: "Error connecting to Trello: request timed out"},
		{name: "cancelled", err: context.Canceled, want: "Error connecting to Trello: request cancelled"},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "api.trello.com"}, want: "Error connecting to Trello: host lookup failed"},
		{name: "net timeout", err: timeoutErr{}, want: "Error connecting to Trello: request timed out"},
		{name: "other", err: errors.New("connection reset by peer"), want: "Error connecting to Trello: transport failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyTransport(tt.err)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindRetryable, e.Kind)
			assert.Equal(t, tt.want, e.Message)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, ClassifyTransport(nil))

	already := Rejected("nope")
	assert.Same(t, already, ClassifyTransport(already))
}
