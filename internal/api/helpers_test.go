// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/pollcache"
	"github.com/ManuGH/boardlink/internal/trello"
)

// stubExecutor answers by request path and records credentials.
type stubExecutor struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
	creds     []trello.Credentials
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{responses: map[string]string{}, errs: map[string]error{}}
}

func (s *stubExecutor) Execute(_ context.Context, spec trello.RequestSpec, creds trello.Credentials) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, spec.Method+" "+spec.Path)
	s.creds = append(s.creds, creds)
	if err, ok := s.errs[spec.Path]; ok {
		return nil, err
	}
	if body, ok := s.responses[spec.Path]; ok {
		return json.RawMessage(body), nil
	}
	return nil, &trello.Error{Kind: trello.KindRejected, Message: "The requested resource was not found.", Status: 404}
}

func (s *stubExecutor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestServer(t *testing.T, exec trello.Executor) *Server {
	t.Helper()
	store := pollcache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewServer(Config{Version: "test"}, Deps{
		Executor:  exec,
		Poll:      pollcache.NewEngine(store),
		FieldMode: fields.ModeAdvertise,
	})
}

var testCreds = map[string]string{"consumer_key": "key", "token": "tok"}

func invoke(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
