// Package neuralocr wraps the shared cross-file neural-model batch engine
// (a marker_single/surya-compatible CLI) used by Phase 2. Unlike fastocr,
// one Engine instance is shared by every sub-batch in a run: models are
// loaded once via modelcache.Loader and reused until the cache evicts them.
// Grounded on the same exec.Command idiom as fastocr, generalized to a
// directory-of-PDFs batch invocation and Markdown output.
package neuralocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/local/hybridocr/internal/modelcache"
)

// Options configures one batch conversion.
type Options struct {
	Device    string // "cpu", "cuda", "mps"
	BatchSize int
	Languages []string
}

// Engine drives the neural engine binary and implements modelcache.Loader
// so the Scheduler can share one model residency across sub-batches.
type Engine struct {
	BinaryPath string
}

func New(binaryPath string) *Engine {
	if binaryPath == "" {
		binaryPath = "marker_single"
	}
	return &Engine{BinaryPath: binaryPath}
}

func (e *Engine) IsAvailable() bool {
	_, err := exec.LookPath(e.BinaryPath)
	return err == nil
}

// LoadModels implements modelcache.Loader by running the engine's
// model-warmup subcommand once, so later ConvertBatch calls in the same
// process pay no further load cost until the cache TTL expires.
func (e *Engine) LoadModels(ctx context.Context, device string) (modelcache.ModelHandle, error) {
	cmd := exec.CommandContext(ctx, e.BinaryPath, "--warmup", "--device", device)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return modelcache.ModelHandle{}, fmt.Errorf("neuralocr warmup: %w: %s", err, stderr.String())
	}
	return modelcache.ModelHandle{Device: device, Loaded: timeNow()}, nil
}

// ConvertBatch runs the neural engine over every PDF in inputDir, writing
// Markdown output for each to outputDir. Assumes LoadModels has already
// been called (by the caller's modelcache.Cache) so this invocation skips
// cold-start weight loading.
func (e *Engine) ConvertBatch(ctx context.Context, inputDir, outputDir string, opts Options) error {
	args := []string{inputDir, "--output_dir", outputDir}
	if opts.Device != "" {
		args = append(args, "--device", opts.Device)
	}
	if opts.BatchSize > 0 {
		args = append(args, "--batch_multiplier", fmt.Sprint(opts.BatchSize))
	}
	for _, lang := range opts.Languages {
		args = append(args, "--langs", lang)
	}

	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("neuralocr convert batch %s: %w: %s", inputDir, err, stderr.String())
	}
	return nil
}

// timeNow is indirected so tests could substitute a fixed clock if needed;
// today it is simply time.Now.
func timeNow() time.Time { return time.Now() }
