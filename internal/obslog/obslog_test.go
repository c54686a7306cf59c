package obslog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "run.log")
	err := Init(Options{
		Level: "info",
		File:  file,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Get().Info().Msg("hello from test")

	if _, err := os.Stat(file); err != nil {
		t.Errorf("expected log file at %s after logging: %v", file, err)
	}
}

func TestInitDefaultsToInfoOnInvalidLevel(t *testing.T) {
	dir := t.TempDir()
	err := Init(Options{Level: "not-a-real-level", File: filepath.Join(dir, "run.log")})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()
}
