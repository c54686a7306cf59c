// Package result defines the typed tree produced by a pipeline run:
// BatchResult -> FileResult -> PageResult, plus the supporting value types
// each page carries.
package result

import "sort"

// PageStatus is the lifecycle state of a single page.
type PageStatus string

const (
	StatusGood    PageStatus = "good"
	StatusFlagged PageStatus = "flagged"
	StatusFailed  PageStatus = "failed"
)

// Engine identifies which engine last produced a page's text.
type Engine string

const (
	EngineExisting Engine = "existing"
	EngineTesseract Engine = "tesseract"
	EngineSurya    Engine = "surya"
	EngineMixed    Engine = "mixed"
	EngineNone     Engine = "none"
)

// SignalResult is the output of one quality signal.
type SignalResult struct {
	Name    string         `json:"name"`
	Score   float64        `json:"score"`
	Passed  bool           `json:"passed"`
	Details map[string]any `json:"details,omitempty"`
}

// EngineDiff is a word-level comparison between fast-engine and neural-engine text.
type EngineDiff struct {
	Additions     []string `json:"additions,omitempty"`
	Deletions     []string `json:"deletions,omitempty"`
	Substitutions []Substitution `json:"substitutions,omitempty"`
	Summary       DiffSummary `json:"summary"`
}

type Substitution struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type DiffSummary struct {
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	Substitutions int `json:"substitutions"`
}

// ImageQuality holds gated image-quality metrics for a page.
type ImageQuality struct {
	DPI        int     `json:"dpi"`
	Contrast   float64 `json:"contrast"`
	BlurScore  float64 `json:"blur_score"`
	SkewAngle  float64 `json:"skew_angle"`
}

// SignalDisagreement is one pairwise comparison between two available signals.
type SignalDisagreement struct {
	A         string  `json:"a"`
	B         string  `json:"b"`
	Magnitude float64 `json:"magnitude"`
}

// PageDiagnostics carries always-on and gated diagnostic data for one page.
type PageDiagnostics struct {
	SignalScores          map[string]float64    `json:"signal_scores"`
	SignalDetails          map[string]map[string]any `json:"signal_details,omitempty"`
	CompositeWeights       map[string]float64    `json:"composite_weights"`
	SignalDisagreements    []SignalDisagreement  `json:"signal_disagreements"`
	HasSignalDisagreement  bool                  `json:"has_signal_disagreement"`
	PostprocessCounts      map[string]int        `json:"postprocess_counts"`
	StruggleCategories     map[string]bool       `json:"struggle_categories"`

	// Gated (diagnostics mode only).
	ImageQuality  *ImageQuality `json:"image_quality,omitempty"`
	TesseractText string        `json:"tesseract_text,omitempty"`
	EngineDiff    *EngineDiff   `json:"engine_diff,omitempty"`
}

// StruggleSet returns the diagnostics' struggle categories as a sorted slice,
// for deterministic JSON output despite the set being logically unordered.
func (d *PageDiagnostics) StruggleSet() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.StruggleCategories))
	for k, v := range d.StruggleCategories {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// PageResult is one page of one input file.
type PageResult struct {
	PageNumber   int              `json:"page_number"`
	Status       PageStatus       `json:"status"`
	QualityScore float64          `json:"quality_score"`
	Engine       Engine           `json:"engine"`
	Flagged      bool             `json:"flagged"`
	Text         string           `json:"text,omitempty"`
	Diagnostics  *PageDiagnostics `json:"diagnostics,omitempty"`
}

// FileResult is one input file's outcome.
type FileResult struct {
	Filename     string             `json:"filename"`
	Success      bool               `json:"success"`
	Engine       Engine             `json:"engine"`
	QualityScore float64            `json:"quality_score"`
	PageCount    int                `json:"page_count"`
	Pages        []PageResult       `json:"pages"`
	Error        string             `json:"error,omitempty"`
	OutputPath   string             `json:"output_path,omitempty"`
	TimeSeconds  float64            `json:"time_seconds"`
	PhaseTimings map[string]float64 `json:"phase_timings,omitempty"`
}

// SortPages orders pages by page_number ascending, in place.
func (f *FileResult) SortPages() {
	sort.Slice(f.Pages, func(i, j int) bool { return f.Pages[i].PageNumber < f.Pages[j].PageNumber })
}

// RecomputeEngine sets f.Engine to the deterministic aggregate of page engines:
// if all non-none pages agree on one engine, use it; if pages disagree, "mixed";
// if every page is "none", "none".
func (f *FileResult) RecomputeEngine() {
	f.Engine = ComputeEngine(f.Pages)
}

// ComputeEngine is the pure aggregate function over a page slice, exposed
// standalone because it must be associative over concatenation (§8).
func ComputeEngine(pages []PageResult) Engine {
	seen := Engine("")
	sawAny := false
	for _, p := range pages {
		if p.Engine == EngineNone {
			continue
		}
		sawAny = true
		if seen == "" {
			seen = p.Engine
		} else if seen != p.Engine {
			return EngineMixed
		}
	}
	if !sawAny {
		return EngineNone
	}
	return seen
}

// BatchResult is the top-level result of one pipeline run.
type BatchResult struct {
	Files        []FileResult       `json:"files"`
	TotalFiles   int                `json:"total_files"`
	Successful   int                `json:"successful"`
	Failed       int                `json:"failed"`
	TotalTime    float64            `json:"total_time"`
	PhaseTimings map[string]float64 `json:"phase_timings,omitempty"`
}

// Finalize sorts files by filename and recomputes the summary counters from
// the file list, so the invariants in §8 hold regardless of insertion order.
func (b *BatchResult) Finalize() {
	sort.Slice(b.Files, func(i, j int) bool { return b.Files[i].Filename < b.Files[j].Filename })
	b.TotalFiles = len(b.Files)
	b.Successful, b.Failed = 0, 0
	for _, f := range b.Files {
		if f.Success {
			b.Successful++
		} else {
			b.Failed++
		}
	}
}

// FlaggedPage is a Phase-2 planner intermediate referencing one source page.
type FlaggedPage struct {
	SourceFile      string `json:"source_file"`
	SourcePageIndex int    `json:"source_page_index"`
	BatchIndex      int    `json:"batch_index"`
}
