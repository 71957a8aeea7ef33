// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/boardlink/internal/log"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("BL_TEST_STRING", "value")
	t.Setenv("BL_TEST_EMPTY", "")
	t.Setenv("BL_TEST_INT", " 42 ")
	t.Setenv("BL_TEST_BAD_INT", "forty-two")
	t.Setenv("BL_TEST_FLOAT", "0.5")
	t.Setenv("BL_TEST_DUR", "250ms")
	t.Setenv("BL_TEST_BAD_DUR", "later")
	t.Setenv("BL_TEST_BOOL", "YES")
	t.Setenv("BL_TEST_BAD_BOOL", "maybe")

	if got := ParseString("BL_TEST_STRING", "d"); got != "value" {
		t.Errorf("ParseString = %q", got)
	}
	if got := ParseString("BL_TEST_EMPTY", "d"); got != "d" {
		t.Errorf("empty env should give default, got %q", got)
	}
	if got := ParseString("BL_TEST_UNSET", "d"); got != "d" {
		t.Errorf("unset env should give default, got %q", got)
	}
	if got := ParseInt("BL_TEST_INT", 1); got != 42 {
		t.Errorf("ParseInt = %d", got)
	}
	if got := ParseInt("BL_TEST_BAD_INT", 1); got != 1 {
		t.Errorf("bad int should give default, got %d", got)
	}
	if got := ParseFloat("BL_TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("ParseFloat = %g", got)
	}
	if got := ParseDuration("BL_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("ParseDuration = %s", got)
	}
	if got := ParseDuration("BL_TEST_BAD_DUR", time.Second); got != time.Second {
		t.Errorf("bad duration should give default, got %s", got)
	}
	if got := ParseBool("BL_TEST_BOOL", false); !got {
		t.Error("ParseBool(YES) = false")
	}
	if got := ParseBool("BL_TEST_BAD_BOOL", true); !got {
		t.Error("bad bool should give default")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "BL_DOTENV_NEW=from-file\nBL_DOTENV_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BL_DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("BL_DOTENV_NEW") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("BL_DOTENV_NEW"); got != "from-file" {
		t.Errorf("BL_DOTENV_NEW = %q", got)
	}
	if got := os.Getenv("BL_DOTENV_SET"); got != "from-env" {
		t.Errorf("existing variables must win, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Fatalf("empty path should be ignored: %v", err)
	}
}

func TestLoadDotEnv_LogsLoadedFile(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BL_DOTENV_LOGGED=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("BL_DOTENV_LOGGED") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"event":"config.dotenv_loaded"`) {
		t.Fatalf("expected dotenv event in log output, got %q", out)
	}
	if !strings.Contains(out, `"component":"config"`) {
		t.Errorf("expected config component in log output, got %q", out)
	}
}
