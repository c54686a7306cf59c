package neuralocr

import "testing"

func TestIsAvailableFalseForBogusBinary(t *testing.T) {
	e := New("definitely-not-a-real-binary-xyz")
	if e.IsAvailable() {
		t.Error("expected IsAvailable() false for nonexistent binary")
	}
}

func TestNewDefaultsBinaryName(t *testing.T) {
	e := New("")
	if e.BinaryPath != "marker_single" {
		t.Errorf("expected default binary marker_single, got %q", e.BinaryPath)
	}
}
