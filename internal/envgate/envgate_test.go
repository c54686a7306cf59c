package envgate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckWritableSucceedsOnTempDir(t *testing.T) {
	dir := t.TempDir()
	if err := checkWritable(dir); err != nil {
		t.Errorf("checkWritable: %v", err)
	}
}

func TestCheckWritableCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "workdir")
	if err := checkWritable(dir); err != nil {
		t.Errorf("checkWritable: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected dir created: %v", err)
	}
}

func TestResolveBinaryFallsBackToPath(t *testing.T) {
	g := New(t.TempDir(), nil)
	// "sh" should be on PATH in any Unix test environment; this exercises
	// the fallback branch without requiring tesseract to be installed.
	if _, err := g.resolveBinary("HYBRIDOCR_UNSET_ENV_VAR", "sh"); err != nil {
		t.Errorf("resolveBinary fallback: %v", err)
	}
}

func TestAggregateErrorFormatsAllProblems(t *testing.T) {
	err := &AggregateError{Problems: []Problem{
		{Area: "binary", Detail: "missing x", Hint: "install x"},
		{Area: "language", Detail: "missing deu"},
	}}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	for _, want := range []string{"missing x", "install x", "missing deu"} {
		if !contains(msg, want) {
			t.Errorf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
