// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pollcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

const fileFormatVersion = 1

type fileDocument struct {
	Version int                 `json:"version"`
	Entries map[string][]string `json:"entries"`
}

// FileStore keeps every seen set in one JSON document that is replaced
// atomically on each Put. Suited to single-process deployments with few
// pollers.
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  fileDocument
}

// NewFileStore loads path if it exists.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create poll store dir: %w", err)
	}

	s := &FileStore{
		path: path,
		doc:  fileDocument{Version: fileFormatVersion, Entries: map[string][]string{}},
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read poll store: %w", err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("decode poll store %s: %w", path, err)
	}
	if s.doc.Version != fileFormatVersion {
		return nil, fmt.Errorf("poll store %s: unsupported format version %d", path, s.doc.Version)
	}
	if s.doc.Entries == nil {
		s.doc.Entries = map[string][]string{}
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.doc.Entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), ids...), true, nil
}

func (s *FileStore) Put(_ context.Context, key string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.doc.Entries[key]
	s.doc.Entries[key] = union(prev, ids)
	if err := s.flush(); err != nil {
		// Keep memory and disk in agreement.
		if had {
			s.doc.Entries[key] = prev
		} else {
			delete(s.doc.Entries, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode poll store: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending poll store file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write poll store: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace poll store: %w", err)
	}
	return nil
}

func (s *FileStore) Backend() string { return BackendFile }

func (s *FileStore) Close() error { return nil }
