// Package fastocr wraps the per-file fast OCR engine binary (an
// ocrmypdf-compatible CLI) used by Phase 1 File Workers. Grounded on the
// checkInstallation/exec.Command idiom in the teacher's
// internal/converter/libreoffice.go, generalized to a flag-cascade fallback
// and context-bounded execution.
package fastocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrPriorOCRFound is returned when the engine refuses to re-OCR a page
	// that already carries a text layer, mirroring ocrmypdf's behavior.
	ErrPriorOCRFound = errors.New("fastocr: prior OCR text layer found")
	// ErrMissingDependency is returned when the binary itself is absent.
	ErrMissingDependency = errors.New("fastocr: engine binary not found")
)

// Options configures one invocation of the fast engine.
type Options struct {
	Language    string
	Deskew      bool
	Clean       bool
	ForceOCR    bool
	OptimizeLvl int
}

// Engine drives the fast OCR binary via os/exec.
type Engine struct {
	BinaryPath string
}

func New(binaryPath string) *Engine {
	if binaryPath == "" {
		binaryPath = "ocrmypdf"
	}
	return &Engine{BinaryPath: binaryPath}
}

// IsAvailable reports whether the configured binary can be located.
func (e *Engine) IsAvailable() bool {
	if _, err := exec.LookPath(e.BinaryPath); err == nil {
		return true
	}
	return false
}

// ConvertPDF runs the fast engine over inputPath, writing the OCR'd PDF to
// outputPath. It tries a cascade of flag sets, from the most capable to the
// most conservative, since older engine builds may not support every flag
// this pipeline prefers.
func (e *Engine) ConvertPDF(ctx context.Context, inputPath, outputPath string, opts Options) error {
	cascades := e.flagCascade(opts)
	var lastErr error
	for _, flags := range cascades {
		args := append(append([]string{}, flags...), inputPath, outputPath)
		cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if isPriorOCRError(stderr.String()) {
				return ErrPriorOCRFound
			}
			lastErr = fmt.Errorf("fastocr run (%v): %w: %s", flags, err, stderr.String())
			continue
		}
		return nil
	}
	if errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, context.Canceled) {
		return lastErr
	}
	if _, lookErr := exec.LookPath(e.BinaryPath); lookErr != nil {
		return ErrMissingDependency
	}
	return lastErr
}

func (e *Engine) flagCascade(opts Options) [][]string {
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	full := []string{"-l", lang}
	if opts.Deskew {
		full = append(full, "--deskew")
	}
	if opts.Clean {
		full = append(full, "--clean")
	}
	if opts.ForceOCR {
		full = append(full, "--force-ocr")
	}
	if opts.OptimizeLvl > 0 {
		full = append(full, "--optimize", fmt.Sprint(opts.OptimizeLvl))
	}

	conservative := []string{"-l", lang}
	if opts.ForceOCR {
		conservative = append(conservative, "--force-ocr")
	}

	minimal := []string{"-l", lang, "--skip-text"}

	return [][]string{full, conservative, minimal}
}

func isPriorOCRError(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "already has text") || strings.Contains(lower, "priorocrfounderror")
}
