package metrics

import (
	"testing"
	"time"
)

// These tests exercise the recording functions directly against the
// package-level collectors without calling Init, since Init registers
// with the global Prometheus registry and must only run once per process.

func TestObservePhaseDoesNotPanic(t *testing.T) {
	ObservePhase("tesseract", 150*time.Millisecond)
}

func TestIncPageProcessedDoesNotPanic(t *testing.T) {
	IncPageProcessed("flagged", "tesseract")
}

func TestIncFileProcessedDoesNotPanic(t *testing.T) {
	IncFileProcessed("success")
}

func TestObserveModelLoadDoesNotPanic(t *testing.T) {
	ObserveModelLoad(5 * time.Second)
}

func TestObserveBatchSizeDoesNotPanic(t *testing.T) {
	ObserveBatchSize(16)
}

func TestIncStruggleCategoryDoesNotPanic(t *testing.T) {
	IncStruggleCategory("bad_scan")
}

func TestSetRunCoordQueueDepthDoesNotPanic(t *testing.T) {
	SetRunCoordQueueDepth("pending", 3)
}
