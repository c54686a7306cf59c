// Package sidecar writes the per-file `{stem}.json` result and the gated
// `{stem}.diagnostics.json` file, either to local disk (atomic
// temp-file-then-rename) or to S3. Grounded on the local-vs-S3 destination
// split in the teacher's internal/orchestrator/localsave.go and s3save.go,
// generalized from a single aggregated-text file to the two typed sidecar
// artifacts this pipeline produces.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/local/hybridocr/internal/result"
)

// Writer persists a FileResult's result and diagnostics sidecars.
type Writer struct {
	Local *LocalDestination
	S3    *S3Destination
}

// LocalDestination writes sidecars to a directory on local disk.
type LocalDestination struct {
	Dir string
}

// S3Destination writes sidecars as objects under a bucket/prefix.
type S3Destination struct {
	Bucket string
	Prefix string
}

func NewLocal(dir string) *Writer {
	return &Writer{Local: &LocalDestination{Dir: dir}}
}

func NewS3(bucket, prefix string) *Writer {
	return &Writer{S3: &S3Destination{Bucket: bucket, Prefix: prefix}}
}

// WriteResult writes `{stem}.json` for one file's result.
func (w *Writer) WriteResult(ctx context.Context, stem string, fr *result.FileResult) (string, error) {
	return w.writeJSON(ctx, stem+".json", fr)
}

// WriteDiagnostics writes `{stem}.diagnostics.json`, only called when
// diagnostics mode is enabled.
func (w *Writer) WriteDiagnostics(ctx context.Context, stem string, fr *result.FileResult) (string, error) {
	return w.writeJSON(ctx, stem+".diagnostics.json", fr)
}

func (w *Writer) writeJSON(ctx context.Context, filename string, v any) (string, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sidecar: marshal %s: %w", filename, err)
	}
	if w.Local != nil {
		return writeLocalAtomic(w.Local.Dir, filename, payload)
	}
	if w.S3 != nil {
		return writeS3(ctx, w.S3.Bucket, w.S3.Prefix, filename, payload)
	}
	return "", fmt.Errorf("sidecar: no destination configured")
}

// writeLocalAtomic writes via a temp file in the same directory followed by
// an atomic rename, so a crash mid-write never leaves a half-written
// sidecar at its final name.
func writeLocalAtomic(dir, filename string, payload []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("sidecar: mkdir %s: %w", dir, err)
	}
	final := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, ".sidecar-*.tmp")
	if err != nil {
		return "", fmt.Errorf("sidecar: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sidecar: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("sidecar: close temp: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("sidecar: rename into place: %w", err)
	}
	return final, nil
}

func writeS3(ctx context.Context, bucket, prefix, filename string, payload []byte) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("sidecar: S3 bucket not configured")
	}
	key := filename
	if prefix != "" {
		key = strings.TrimSuffix(prefix, "/") + "/" + filename
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("sidecar: load aws config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	if _, err := cli.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket, Key: &key, Body: bytes.NewReader(payload),
	}); err != nil {
		return "", fmt.Errorf("sidecar: put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
