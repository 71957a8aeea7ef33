// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_CreatesParentDirAndWAL(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "poll.sqlite")

	db, err := Open(context.Background(), dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("expected WAL journal mode, got %q", mode)
	}
}

func TestVerifyIntegrity_Healthy(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthy.sqlite")
	db, err := Open(context.Background(), dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT);"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	db.Close()

	issues, err := VerifyIntegrity(context.Background(), dbPath, "quick")
	if err != nil {
		t.Fatalf("verification failed with system error: %v", err)
	}
	if issues != nil {
		t.Fatalf("expected healthy database, got issues: %v", issues)
	}
}

func TestVerifyIntegrity_Corruption(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corruptible.sqlite")

	db, err := Open(context.Background(), dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT);"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	payload := strings.Repeat("A", 100)
	for i := 0; i < 200; i++ {
		if _, err := db.Exec("INSERT INTO test (data) VALUES (?);", payload); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	// Fold the WAL into the main file before corrupting it.
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		t.Fatalf("checkpoint failed: %v", err)
	}
	db.Close()

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("Failed to open file for corruption: %v", err)
	}
	garbage := []byte(strings.Repeat("\xff", 100))
	_, err = f.WriteAt(garbage, 4096)
	f.Close()
	if err != nil {
		t.Fatalf("Failed to write corrupt data: %v", err)
	}

	issues, err := VerifyIntegrity(context.Background(), dbPath, "full")
	if err != nil {
		t.Fatalf("Verification after corruption failed with system error: %v", err)
	}
	if issues == nil {
		t.Error("verification passed but should have reported corruption")
	}
}

func TestVerifyIntegrity_MissingFile(t *testing.T) {
	_, err := VerifyIntegrity(context.Background(), filepath.Join(t.TempDir(), "absent.sqlite"), "quick")
	if err == nil {
		t.Fatal("expected error for missing database")
	}
}
