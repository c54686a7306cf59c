// Package eventbus defines the three typed events emitted by a run and the
// callback contract they're delivered through.
package eventbus

import "github.com/rs/zerolog/log"

type Phase string

const (
	PhaseTesseract Phase = "tesseract"
	PhaseQuality   Phase = "quality"
	PhaseSurya     Phase = "surya"
)

type PhaseStatus string

const (
	PhaseStarted   PhaseStatus = "started"
	PhaseCompleted PhaseStatus = "completed"
)

type ModelStatus string

const (
	ModelLoading ModelStatus = "loading"
	ModelReady   ModelStatus = "ready"
)

// PhaseEvent marks the start/end of a pipeline phase.
type PhaseEvent struct {
	Phase      Phase
	Status     PhaseStatus
	FilesCount int
	Detail     string
}

// ProgressEvent reports incremental progress within a phase.
type ProgressEvent struct {
	Phase       Phase
	File        string
	Page        int
	TotalPages  int
	WorkerID    string
	ETASeconds  float64
	Message     string
}

// ModelEvent reports neural model load lifecycle.
type ModelEvent struct {
	ModelName   string
	Status      ModelStatus
	TimeSeconds float64
}

// Callback is the polymorphic surface a run reports to. It is the only
// dynamic-dispatch interface in the core.
type Callback interface {
	OnPhase(PhaseEvent)
	OnProgress(ProgressEvent)
	OnModel(ModelEvent)
}

// NoOp discards every event; useful when the caller doesn't need them.
type NoOp struct{}

func (NoOp) OnPhase(PhaseEvent)       {}
func (NoOp) OnProgress(ProgressEvent) {}
func (NoOp) OnModel(ModelEvent)       {}

// Logging forwards every event to the global zerolog logger.
type Logging struct{}

func (Logging) OnPhase(e PhaseEvent) {
	log.Info().Str("phase", string(e.Phase)).Str("status", string(e.Status)).
		Int("files_count", e.FilesCount).Str("detail", e.Detail).Msg("phase event")
}

func (Logging) OnProgress(e ProgressEvent) {
	log.Info().Str("phase", string(e.Phase)).Str("file", e.File).
		Int("page", e.Page).Int("total_pages", e.TotalPages).
		Str("worker_id", e.WorkerID).Float64("eta_seconds", e.ETASeconds).
		Str("message", e.Message).Msg("progress event")
}

func (Logging) OnModel(e ModelEvent) {
	log.Info().Str("model", e.ModelName).Str("status", string(e.Status)).
		Float64("time_seconds", e.TimeSeconds).Msg("model event")
}
