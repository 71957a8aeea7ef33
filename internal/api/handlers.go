// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/boardlink/internal/api/middleware"
	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/methods"
	"github.com/ManuGH/boardlink/internal/trello"
)

const msgMissingCredentials = "Trello credentials are missing. Please reconnect your account."

// invocation is the envelope the host posts for both scripts.
type invocation struct {
	Credentials  trello.Credentials `json:"credentials"`
	ConnectionID string             `json:"connection_id,omitempty"`
	Input        json.RawMessage    `json:"input,omitempty"`
}

type fieldsResponse struct {
	Fields []fields.InputField `json:"fields"`
}

type runResponse struct {
	Result any `json:"result"`
}

type methodsResponse struct {
	Methods []methods.Meta `json:"methods"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	PollBackend string `json:"poll_backend,omitempty"`
	FieldMode   string `json:"field_mode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Version:     s.cfg.Version,
		PollBackend: s.pollBackend(),
		FieldMode:   s.resolver.Load().Mode().String(),
	})
}

func (s *Server) handleListMethods(w http.ResponseWriter, r *http.Request) {
	middleware.AnnotateRoute(r)
	writeJSON(w, http.StatusOK, methodsResponse{Methods: s.registry.List()})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	middleware.AnnotateRoute(r)
	slug := chi.URLParam(r, "slug")

	inv, err := decodeInvocation(w, r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req methods.InputRequest
	if len(inv.Input) > 0 && !isJSONNull(inv.Input) {
		if err := json.Unmarshal(inv.Input, &req); err != nil {
			writeProblem(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid input: %v", err))
			return
		}
	}
	if strings.EqualFold(r.URL.Query().Get("mode"), "flat") {
		req.Flat = true
	}

	env, err := s.env(r, inv)
	if err != nil {
		writeMethodError(w, r, err)
		return
	}
	out, err := s.registry.Input(r.Context(), slug, env, req)
	if err != nil {
		writeMethodError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fieldsResponse{Fields: out})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	middleware.AnnotateRoute(r)
	slug := chi.URLParam(r, "slug")

	inv, err := decodeInvocation(w, r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	values := methods.Values{}
	if len(inv.Input) > 0 && !isJSONNull(inv.Input) {
		dec := json.NewDecoder(bytes.NewReader(inv.Input))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			writeProblem(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid input: %v", err))
			return
		}
	}

	env, err := s.env(r, inv)
	if err != nil {
		writeMethodError(w, r, err)
		return
	}
	out, err := s.registry.Run(r.Context(), slug, env, values)
	if err != nil {
		writeMethodError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Result: out})
}

// env builds the per-invocation environment. Unknown slugs are reported
// before credentials are checked.
func (s *Server) env(r *http.Request, inv invocation) (methods.Env, error) {
	slug := chi.URLParam(r, "slug")
	if _, ok := s.registry.Get(slug); !ok {
		return methods.Env{}, fmt.Errorf("%w: %s", methods.ErrUnknownMethod, slug)
	}
	creds := inv.Credentials
	if strings.TrimSpace(creds.ConsumerKey) == "" || strings.TrimSpace(creds.Token) == "" {
		return methods.Env{}, &trello.Error{Kind: trello.KindAuthExpired, Message: msgMissingCredentials}
	}
	return methods.Env{
		Client:       trello.NewClient(s.exec, creds),
		Resolver:     s.resolver.Load(),
		Poll:         s.poll,
		ConnectionID: inv.ConnectionID,
	}, nil
}

func decodeInvocation(w http.ResponseWriter, r *http.Request) (invocation, error) {
	var inv invocation
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&inv); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return inv, errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return inv, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return inv, fmt.Errorf("malformed request body: %v", err)
		}
	}
	if dec.More() {
		return inv, errors.New("request body contains trailing data")
	}
	return inv, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
