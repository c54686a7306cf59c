// Package fileworker implements the Phase 1 per-file state machine: score
// the existing text layer, and only if it falls short of threshold, invoke
// the fast engine on the whole file and re-score. Grounded on the
// per-file structured-logging and error-wrapping conventions the teacher
// uses throughout internal/orchestrator, reworked into the pure
// extract/score/re-OCR/re-score contract §4.3 describes. A File Worker
// never propagates a panic to its caller: it recovers and synthesizes a
// failure FileResult, mirroring the teacher's goroutine-boundary recover
// pattern in internal/dispatcher/worker.go.
package fileworker

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/hybridocr/internal/compositor"
	"github.com/local/hybridocr/internal/diagnostics"
	"github.com/local/hybridocr/internal/fastocr"
	"github.com/local/hybridocr/internal/pdf"
	"github.com/local/hybridocr/internal/postprocess"
	"github.com/local/hybridocr/internal/result"
	"github.com/local/hybridocr/internal/signals"
	"github.com/local/hybridocr/internal/worddata"
)

// Config bundles per-run settings a worker needs, independent of any one
// file; the Scheduler constructs one and shares it across every dispatch.
type Config struct {
	QualityThreshold float64
	ForceTesseract   bool
	LangsTesseract   []string
	FastEngine       *fastocr.Engine
	WordExtractor    *worddata.Extractor
	RenderDPI        int
	Dictionary       *signals.DictionarySignal
	Compositor       *compositor.Compositor
	PostprocessCfg   struct{} // reserved for future transform toggles
	OutputDir        string
	TesseractTimeout time.Duration
	SkipBigMegapix   int
	Diagnostics      bool
}

// Job is one dispatched unit of Phase 1 work.
type Job struct {
	InputPath string
	Stem      string
}

// Worker runs Job instances against a shared Config.
type Worker struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Worker {
	return &Worker{cfg: cfg, logger: logger}
}

// Run executes the full Phase 1 contract for one file. It never panics
// outward: a recovered panic is converted into a failure FileResult.
func (w *Worker) Run(ctx context.Context, job Job) (fr result.FileResult) {
	defer func() {
		if r := recover(); r != nil {
			stack := truncatedStack(debug.Stack())
			fr = result.FileResult{
				Filename: job.Stem,
				Success:  false,
				Engine:   result.EngineNone,
				Error:    fmt.Sprintf("panic: %v\n%s", r, stack),
			}
		}
	}()
	return w.run(ctx, job)
}

func (w *Worker) run(ctx context.Context, job Job) result.FileResult {
	start := time.Now()
	log := w.logger.With().Str("file", job.Stem).Logger()

	doc, err := pdf.Open(job.InputPath)
	if err != nil {
		return w.failure(job.Stem, "open", err, start)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	pages := make([]result.PageResult, pageCount)
	for i := 0; i < pageCount; i++ {
		text, err := doc.ExtractTextByPage(i + 1)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("failed to extract existing text layer")
			text = ""
		}
		pages[i] = w.ScorePage(i, text, nil)
	}

	allGood := !w.cfg.ForceTesseract && allPagesGood(pages)
	if allGood {
		outputPath := filepath.Join(w.cfg.OutputDir, job.Stem+".pdf")
		if err := copyFile(job.InputPath, outputPath); err != nil {
			return w.failure(job.Stem, "copy_existing", err, start)
		}

		if w.cfg.Diagnostics {
			for i := range pages {
				w.attachGatedDiagnostics(doc, i, "", &pages[i], log)
			}
		}
		if err := WriteText(w.cfg.OutputDir, job.Stem, pages); err != nil {
			log.Warn().Err(err).Msg("failed to write extracted text file")
		}

		return result.FileResult{
			Filename:     job.Stem,
			Success:      true,
			Engine:       result.EngineExisting,
			QualityScore: meanQuality(pages),
			PageCount:    pageCount,
			Pages:        pages,
			OutputPath:   outputPath,
			TimeSeconds:  time.Since(start).Seconds(),
		}
	}

	ocrCtx := ctx
	cancel := func() {}
	if w.cfg.TesseractTimeout > 0 {
		ocrCtx, cancel = context.WithTimeout(ctx, w.cfg.TesseractTimeout)
	}
	defer cancel()

	outputPath := filepath.Join(w.cfg.OutputDir, job.Stem+".pdf")
	ocrErr := w.cfg.FastEngine.ConvertPDF(ocrCtx, job.InputPath, outputPath, fastocr.Options{
		Language: strings.Join(w.cfg.LangsTesseract, "+"),
		ForceOCR: true,
	})

	if ocrErr != nil && ocrErr != fastocr.ErrPriorOCRFound {
		return w.failure(job.Stem, "fast_ocr", ocrErr, start)
	}

	finalPath := job.InputPath
	engine := result.EngineExisting
	if ocrErr == nil {
		finalPath = outputPath
		engine = result.EngineTesseract
	}

	reDoc, err := pdf.Open(finalPath)
	if err != nil {
		return w.failure(job.Stem, "reopen_after_ocr", err, start)
	}
	defer reDoc.Close()

	for i := 0; i < pageCount; i++ {
		text, err := reDoc.ExtractTextByPage(i + 1)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("failed to extract re-ocr'd text")
			text = ""
		}
		var confWords []signals.WordConfidence
		if engine == result.EngineTesseract && w.cfg.WordExtractor != nil {
			confWords = w.wordConfidenceForPage(ctx, reDoc, i, log)
		}
		pages[i] = w.ScorePage(i, text, confWords)
		if engine == result.EngineTesseract {
			pages[i].Engine = result.EngineTesseract
		}
		if w.cfg.Diagnostics {
			tesseractText := ""
			if engine == result.EngineTesseract {
				tesseractText = text
			}
			w.attachGatedDiagnostics(reDoc, i, tesseractText, &pages[i], log)
		}
	}

	if err := WriteText(w.cfg.OutputDir, job.Stem, pages); err != nil {
		log.Warn().Err(err).Msg("failed to write extracted text file")
	}

	fr := result.FileResult{
		Filename:     job.Stem,
		Success:      true,
		QualityScore: meanQuality(pages),
		PageCount:    pageCount,
		Pages:        pages,
		OutputPath:   finalPath,
		TimeSeconds:  time.Since(start).Seconds(),
	}
	fr.RecomputeEngine()
	return fr
}

// ScorePage runs the full signal/compositor/diagnostics chain over one
// page's text, producing a PageResult. Exported so the Scheduler can score
// Phase 2 neural-engine text through the same path as Phase 1.
func (w *Worker) ScorePage(pageIndex int, text string, confWords []signals.WordConfidence) result.PageResult {
	var counts postprocess.Counts
	cleaned := postprocess.Run(text, &counts)

	sigs := map[string]result.SignalResult{}
	garbled := signals.GarbledSignal{}
	sigs["garbled"] = garbled.Score(cleaned)

	if w.cfg.Dictionary != nil {
		sigs["dictionary"] = w.cfg.Dictionary.Score(cleaned)
	}

	if len(confWords) > 0 {
		conf := signals.ConfidenceSignal{}
		sigs["confidence"] = conf.Score(confWords)
	}

	comp := w.cfg.Compositor.Combine(sigs, nil, nil)

	status := result.StatusGood
	flagged := false
	if comp.Score < w.cfg.Compositor.Threshold || comp.BelowFloor {
		status = result.StatusFlagged
		flagged = true
	}

	diag := diagnostics.NewBuilder().Build(sigs, comp, counts.AsMap())

	return result.PageResult{
		PageNumber:   pageIndex,
		Status:       status,
		QualityScore: comp.Score,
		Engine:       result.EngineExisting,
		Flagged:      flagged,
		Text:         cleaned,
		Diagnostics:  diag,
	}
}

// wordConfidenceForPage rasterizes a tesseract-OCR'd page to a temp PNG and
// runs the configured word extractor against it, returning nil on any
// failure so a render/extraction hiccup degrades the confidence signal
// rather than failing the whole file.
func (w *Worker) wordConfidenceForPage(ctx context.Context, doc *pdf.Document, pageIndex int, log zerolog.Logger) []signals.WordConfidence {
	dpi := w.cfg.RenderDPI
	if dpi <= 0 {
		dpi = 300
	}
	img, err := doc.RenderPageToPixmap(pageIndex+1, dpi)
	if err != nil {
		log.Warn().Err(err).Int("page", pageIndex).Msg("failed to render page for confidence extraction")
		return nil
	}

	tmp, err := os.CreateTemp("", "hybridocr-page-*.png")
	if err != nil {
		log.Warn().Err(err).Msg("failed to create temp file for confidence extraction")
		return nil
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		log.Warn().Err(err).Int("page", pageIndex).Msg("failed to encode page image")
		return nil
	}
	if err := tmp.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close temp image file")
		return nil
	}

	words, err := w.cfg.WordExtractor.ExtractWordConfidence(ctx, tmp.Name(), strings.Join(w.cfg.LangsTesseract, "+"))
	if err != nil {
		log.Warn().Err(err).Int("page", pageIndex).Msg("failed to extract word confidence")
		return nil
	}
	return words
}

// attachGatedDiagnostics renders a page and estimates its image quality,
// then attaches it alongside tesseractText (empty outside the fast-engine
// path) to page's diagnostics. Gated on cfg.Diagnostics by every caller; a
// render failure degrades to a nil ImageQuality rather than failing the page.
func (w *Worker) attachGatedDiagnostics(doc *pdf.Document, pageIndex int, tesseractText string, page *result.PageResult, log zerolog.Logger) {
	dpi := w.cfg.RenderDPI
	if dpi <= 0 {
		dpi = 300
	}

	var iq *result.ImageQuality
	img, err := doc.RenderPageToPixmap(pageIndex+1, dpi)
	if err != nil {
		log.Warn().Err(err).Int("page", pageIndex).Msg("failed to render page for gated image quality estimate")
	} else {
		est := diagnostics.NewImageQualityEstimator().Estimate(img, dpi)
		iq = &est
	}

	diagnostics.SetGated(page.Diagnostics, iq, tesseractText, nil)
}

// copyFile copies src to dst verbatim, used for the existing-text-already-
// good path where no re-OCR is needed.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// WriteText writes the file's extracted text, one page per section
// separated by a form feed, to output_dir/{stem}.txt via a temp file and a
// rename, so the file is never seen half-written. Exported so the
// Scheduler can rewrite it after a Phase 2 re-score.
func WriteText(outputDir, stem string, pages []result.PageResult) error {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(p.Text)
	}
	path := filepath.Join(outputDir, stem+".txt")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (w *Worker) failure(stem, stage string, err error, start time.Time) result.FileResult {
	return result.FileResult{
		Filename:    stem,
		Success:     false,
		Engine:      result.EngineNone,
		Error:       fmt.Sprintf("%s: %T: %v\n%s", stage, err, err, truncatedStack(debug.Stack())),
		TimeSeconds: time.Since(start).Seconds(),
	}
}

func allPagesGood(pages []result.PageResult) bool {
	for _, p := range pages {
		if p.Status != result.StatusGood {
			return false
		}
	}
	return true
}

func meanQuality(pages []result.PageResult) float64 {
	if len(pages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pages {
		sum += p.QualityScore
	}
	return sum / float64(len(pages))
}

func truncatedStack(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	limit := 7 // header + ~3 frames (each frame is 2 lines)
	if len(lines) > limit {
		lines = lines[:limit]
	}
	return strings.Join(lines, "\n")
}
