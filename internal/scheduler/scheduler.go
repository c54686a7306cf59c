// Package scheduler is the top-level orchestrator: it drives Phase 1 (a
// bounded goroutine pool of File Workers, one per input PDF) and Phase 2
// (a single goroutine owning the Model Cache and the shared neural engine
// over every flagged page collected across files), in the step ordering
// the teacher's internal/orchestrator.Orchestrator uses for its own
// Dependencies-struct-plus-New wiring, generalized from one HTTP handler
// per lifecycle stage into one in-process Run call.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/hybridocr/internal/batchplanner"
	"github.com/local/hybridocr/internal/compositor"
	"github.com/local/hybridocr/internal/config"
	"github.com/local/hybridocr/internal/diagnostics"
	"github.com/local/hybridocr/internal/envgate"
	"github.com/local/hybridocr/internal/eventbus"
	"github.com/local/hybridocr/internal/fastocr"
	"github.com/local/hybridocr/internal/fileworker"
	"github.com/local/hybridocr/internal/filetype"
	"github.com/local/hybridocr/internal/limiter"
	"github.com/local/hybridocr/internal/metrics"
	"github.com/local/hybridocr/internal/modelcache"
	"github.com/local/hybridocr/internal/neuralocr"
	"github.com/local/hybridocr/internal/pdf"
	"github.com/local/hybridocr/internal/result"
	"github.com/local/hybridocr/internal/runcoord"
	"github.com/local/hybridocr/internal/sidecar"
	"github.com/local/hybridocr/internal/signals"
	"github.com/local/hybridocr/internal/worddata"
	"github.com/local/hybridocr/internal/workerlog"
)

// Dependencies bundles every external collaborator the Scheduler drives.
// Callback defaults to eventbus.NoOp and RunCoord is nil-receiver-safe, so
// callers only need to fill in what they actually have.
type Dependencies struct {
	Gate          *envgate.Gate
	FastEngine    *fastocr.Engine
	NeuralEngine  *neuralocr.Engine
	ModelCache    *modelcache.Cache
	Planner       *batchplanner.Planner
	Dictionary    *signals.DictionarySignal
	WordExtractor *worddata.Extractor
	Sidecar       *sidecar.Writer
	RunCoord      *runcoord.Coordinator
	Breaker       *limiter.Adaptive
	Callback      eventbus.Callback
	Logger        zerolog.Logger
}

// Scheduler runs one end-to-end pipeline pass over a configured input set.
type Scheduler struct {
	cfg  config.Config
	deps Dependencies
}

func New(cfg config.Config, deps Dependencies) *Scheduler {
	if deps.Callback == nil {
		deps.Callback = eventbus.NoOp{}
	}
	if deps.Planner == nil {
		deps.Planner = batchplanner.New(nil)
	}
	return &Scheduler{cfg: cfg, deps: deps}
}

// Run executes the full 15-step pipeline and returns the finalized
// BatchResult. It never returns a partial result on a File Worker error --
// per-file failures are recorded as failed FileResults, not propagated --
// only a setup failure (environment validation, input discovery, output
// directory creation or log listener start) short-circuits the run.
func (s *Scheduler) Run(ctx context.Context) (*result.BatchResult, error) {
	runStart := time.Now()

	// Step 1: validate environment.
	if s.deps.Gate != nil {
		if err := s.deps.Gate.Validate(); err != nil {
			return nil, err
		}
	}

	inputs, err := s.discoverInputFiles()
	if err != nil {
		return nil, fmt.Errorf("scheduler: discover inputs: %w", err)
	}

	// Step 2: create the run's directory layout and start cross-goroutine logging.
	finalDir := filepath.Join(s.cfg.OutputDir, "final")
	workDir := filepath.Join(s.cfg.OutputDir, "work")
	logsDir := filepath.Join(s.cfg.OutputDir, "logs")
	for _, d := range []string{finalDir, workDir, logsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("scheduler: create %s: %w", d, err)
		}
	}

	listener, err := workerlog.NewListener(workerlog.Options{LogDir: logsDir, Console: true})
	if err != nil {
		return nil, fmt.Errorf("scheduler: start log listener: %w", err)
	}
	defer listener.Stop() // Step 15: always stop the listener on every exit path.

	batch := &result.BatchResult{}

	// Step 3.
	s.deps.Callback.OnPhase(eventbus.PhaseEvent{
		Phase: eventbus.PhaseTesseract, Status: eventbus.PhaseStarted, FilesCount: len(inputs),
	})
	phase1Start := time.Now()

	// Steps 4-5: bounded goroutine pool, per-file timeout, sibling work never cancelled.
	files, stemToInput := s.runPhase1(ctx, inputs, listener)
	batch.Files = files

	// Step 6.
	metrics.ObservePhase("tesseract", time.Since(phase1Start))
	s.deps.Callback.OnPhase(eventbus.PhaseEvent{Phase: eventbus.PhaseTesseract, Status: eventbus.PhaseCompleted})

	// Step 7: collect flagged pages; skip Phase 2 entirely if none.
	flagged := s.deps.Planner.Collect(batch.Files)
	var phase2Duration time.Duration
	if len(flagged) > 0 {
		phase2Start := time.Now()
		s.runPhase2(ctx, batch.Files, stemToInput, flagged, workDir, finalDir, listener)
		phase2Duration = time.Since(phase2Start)
		metrics.ObservePhase("surya", phase2Duration)
	}

	// Step 11: recompute engines and write diagnostics sidecars.
	fileIndex := make(map[string]int, len(batch.Files))
	for i := range batch.Files {
		batch.Files[i].RecomputeEngine()
		fileIndex[batch.Files[i].Filename] = i
	}
	if s.cfg.Diagnostics && s.deps.Sidecar != nil {
		for i := range batch.Files {
			if _, err := s.deps.Sidecar.WriteDiagnostics(ctx, batch.Files[i].Filename, &batch.Files[i]); err != nil {
				s.deps.Logger.Warn().Err(err).Str("file", batch.Files[i].Filename).Msg("failed to write diagnostics sidecar")
			}
		}
	}

	// Step 12: write result metadata sidecar for every successful file.
	if s.deps.Sidecar != nil {
		for i := range batch.Files {
			if !batch.Files[i].Success {
				continue
			}
			if _, err := s.deps.Sidecar.WriteResult(ctx, batch.Files[i].Filename, &batch.Files[i]); err != nil {
				s.deps.Logger.Warn().Err(err).Str("file", batch.Files[i].Filename).Msg("failed to write result sidecar")
			}
		}
	}

	// Step 13: the File Worker always writes {stem}.txt alongside its PDF;
	// if extract_text is off, delete the leftover text files from final/.
	if !s.cfg.ExtractText {
		for i := range batch.Files {
			txtPath := filepath.Join(finalDir, batch.Files[i].Filename+".txt")
			if err := os.Remove(txtPath); err != nil && !os.IsNotExist(err) {
				s.deps.Logger.Warn().Err(err).Str("file", batch.Files[i].Filename).Msg("failed to delete leftover text file")
			}
		}
	}

	// Step 14.
	if !s.cfg.KeepIntermediates {
		if err := os.RemoveAll(workDir); err != nil {
			s.deps.Logger.Warn().Err(err).Msg("failed to remove work directory")
		}
	}

	for _, f := range batch.Files {
		for _, p := range f.Pages {
			metrics.IncPageProcessed(string(p.Status), string(p.Engine))
			for _, cat := range p.Diagnostics.StruggleSet() {
				metrics.IncStruggleCategory(cat)
			}
		}
		if f.Success {
			metrics.IncFileProcessed("success")
		} else {
			metrics.IncFileProcessed("failure")
		}
	}

	batch.TotalTime = time.Since(runStart).Seconds()
	batch.PhaseTimings = map[string]float64{"tesseract": time.Since(phase1Start).Seconds()}
	batch.Finalize()
	return batch, nil
}

// discoverInputFiles resolves the configured input set: an explicit file
// list takes precedence over a directory scan, and every candidate is
// verified by magic bytes rather than trusted on extension alone.
func (s *Scheduler) discoverInputFiles() ([]string, error) {
	detector := filetype.New()

	var candidates []string
	if len(s.cfg.Files) > 0 {
		for _, f := range s.cfg.Files {
			if filepath.IsAbs(f) {
				candidates = append(candidates, f)
			} else {
				candidates = append(candidates, filepath.Join(s.cfg.InputDir, f))
			}
		}
	} else {
		entries, err := os.ReadDir(s.cfg.InputDir)
		if err != nil {
			return nil, fmt.Errorf("read input dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			candidates = append(candidates, filepath.Join(s.cfg.InputDir, e.Name()))
		}
	}

	var inputs []string
	for _, path := range candidates {
		info, err := detector.Detect(path)
		if err != nil {
			s.deps.Logger.Warn().Err(err).Str("file", path).Msg("skipping unreadable input file")
			continue
		}
		if !info.IsPDF {
			continue
		}
		inputs = append(inputs, path)
	}
	sort.Strings(inputs)
	return inputs, nil
}

// runPhase1 dispatches one File Worker job per input across a bounded
// goroutine pool. A job whose result does not arrive within cfg.Timeout is
// recorded as a failure and its goroutine is left running rather than
// cancelled, per §4.6/§5's "do not cancel sibling work."
func (s *Scheduler) runPhase1(ctx context.Context, inputs []string, listener *workerlog.Listener) ([]result.FileResult, map[string]string) {
	poolSize := batchplanner.WorkerPoolSize(s.cfg.MaxWorkers, len(inputs))

	workerCfg := fileworker.Config{
		QualityThreshold: s.cfg.QualityThreshold,
		ForceTesseract:   s.cfg.ForceTesseract,
		LangsTesseract:   s.cfg.LangsTesseract,
		FastEngine:       s.deps.FastEngine,
		WordExtractor:    s.deps.WordExtractor,
		Dictionary:       s.deps.Dictionary,
		Compositor:       compositorFor(s.cfg.QualityThreshold),
		OutputDir:        filepath.Join(s.cfg.OutputDir, "final"),
		TesseractTimeout: s.cfg.Timeout,
		Diagnostics:      s.cfg.Diagnostics,
	}

	var (
		mu         sync.Mutex
		files      []result.FileResult
		stemToPath = make(map[string]string, len(inputs))
		wg         sync.WaitGroup
		sem        = make(chan struct{}, poolSize)
		total      = len(inputs)
		completed  int
	)

	for _, inputPath := range inputs {
		stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		mu.Lock()
		stemToPath[stem] = inputPath
		mu.Unlock()

		if done, _ := s.deps.RunCoord.IsDone(ctx, inputPath); done {
			continue
		}

		job := fileworker.Job{InputPath: inputPath, Stem: stem}
		worker := fileworker.New(workerCfg, workerLogger(listener, stem))

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			resCh := make(chan result.FileResult, 1)
			go func() { resCh <- worker.Run(ctx, job) }()

			var fr result.FileResult
			select {
			case fr = <-resCh:
			case <-time.After(s.cfg.Timeout):
				fr = result.FileResult{
					Filename: job.Stem,
					Success:  false,
					Engine:   result.EngineNone,
					Error:    fmt.Sprintf("scheduler: file worker timed out after %s", s.cfg.Timeout),
				}
			}

			_ = s.deps.RunCoord.MarkDone(ctx, job.InputPath, 24*time.Hour)

			mu.Lock()
			files = append(files, fr)
			completed++
			k := completed
			mu.Unlock()

			s.deps.Callback.OnProgress(eventbus.ProgressEvent{
				Phase: eventbus.PhaseTesseract, File: job.Stem, Page: k, TotalPages: total,
			})
		}()
	}
	wg.Wait()
	return files, stemToPath
}

// runPhase2 runs the shared neural-model batch pass over every flagged page
// collected across files, mutating files in place. Sub-batches run
// sequentially on the calling goroutine: the Model Cache is the only
// long-lived mutable shared resource and this is its sole writer.
func (s *Scheduler) runPhase2(ctx context.Context, files []result.FileResult, stemToInput map[string]string, flagged []result.FlaggedPage, workDir, finalDir string, listener *workerlog.Listener) {
	// Once started, Phase 2 runs to completion: cancelling the run context
	// does not abort model loading or neural conversion.
	ctx = context.WithoutCancel(ctx)
	s.deps.Callback.OnPhase(eventbus.PhaseEvent{Phase: eventbus.PhaseSurya, Status: eventbus.PhaseStarted})

	if s.deps.NeuralEngine == nil || s.deps.ModelCache == nil {
		s.deps.Logger.Warn().Msg("no neural engine configured, skipping phase 2")
		s.deps.Callback.OnPhase(eventbus.PhaseEvent{Phase: eventbus.PhaseSurya, Status: eventbus.PhaseCompleted, Detail: "no neural engine configured"})
		return
	}

	device := "cpu"
	if s.deps.Breaker != nil && s.deps.Breaker.IsOpen(ctx, "surya", device) {
		s.deps.Logger.Warn().Msg("surya circuit breaker open, skipping phase 2 for this run")
		s.deps.Callback.OnPhase(eventbus.PhaseEvent{Phase: eventbus.PhaseSurya, Status: eventbus.PhaseCompleted, Detail: "circuit breaker open"})
		return
	}

	s.deps.Callback.OnModel(eventbus.ModelEvent{ModelName: "surya", Status: eventbus.ModelLoading})

	handle, loadDuration, err := s.deps.ModelCache.GetModels(ctx, device)
	if err != nil {
		if s.deps.Breaker != nil {
			s.deps.Breaker.Open(ctx, "surya", device)
		}
		s.deps.Logger.Error().Err(err).Msg("failed to load neural models, skipping phase 2")
		s.deps.Callback.OnPhase(eventbus.PhaseEvent{Phase: eventbus.PhaseSurya, Status: eventbus.PhaseCompleted, Detail: "model load failed"})
		return
	}
	if s.deps.Breaker != nil {
		s.deps.Breaker.Close(ctx, "surya", device)
	}
	if loadDuration > 0 {
		metrics.ObserveModelLoad(loadDuration)
	}
	s.deps.Callback.OnModel(eventbus.ModelEvent{ModelName: "surya", Status: eventbus.ModelReady, TimeSeconds: loadDuration.Seconds()})
	_ = handle

	fileIndex := make(map[string]int, len(files))
	for i := range files {
		fileIndex[files[i].Filename] = i
	}

	scorer := fileworker.New(fileworker.Config{
		QualityThreshold: s.cfg.QualityThreshold,
		Dictionary:       s.deps.Dictionary,
		Compositor:       compositorFor(s.cfg.QualityThreshold),
	}, workerLogger(listener, "phase2-scorer"))

	subBatches := s.deps.Planner.Split(flagged)
	for _, sub := range subBatches {
		metrics.ObserveBatchSize(len(sub.Pages))
		if err := s.convertSubBatch(ctx, sub, files, fileIndex, stemToInput, workDir, finalDir, scorer); err != nil {
			if s.deps.Breaker != nil {
				s.deps.Breaker.Open(ctx, "surya", device)
			}
			s.deps.Logger.Error().Err(err).Int("batch_index", sub.Index).Msg("sub-batch conversion failed")
		}
		s.deps.ModelCache.CleanupBetweenDocuments()
		s.deps.Callback.OnProgress(eventbus.ProgressEvent{
			Phase: eventbus.PhaseSurya, Page: sub.Index + 1, TotalPages: len(subBatches),
		})
	}

	s.deps.Callback.OnPhase(eventbus.PhaseEvent{Phase: eventbus.PhaseSurya, Status: eventbus.PhaseCompleted})
}

// convertSubBatch extracts every flagged page in sub into single-page PDFs,
// merges them into one combined document (one neural-engine invocation per
// sub-batch rather than per page), splits the resulting Markdown back into
// per-page text, and re-scores each page through the same signal chain
// Phase 1 uses.
func (s *Scheduler) convertSubBatch(ctx context.Context, sub batchplanner.SubBatch, files []result.FileResult, fileIndex map[string]int, stemToInput map[string]string, workDir, finalDir string, scorer *fileworker.Worker) error {
	batchDir := filepath.Join(workDir, fmt.Sprintf("batch_%03d", sub.Index))
	inputDir := filepath.Join(batchDir, "input")
	outputDir := filepath.Join(batchDir, "output")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return fmt.Errorf("create sub-batch input dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create sub-batch output dir: %w", err)
	}

	var pagePaths []string
	for i, fp := range sub.Pages {
		srcPath, ok := stemToInput[fp.SourceFile]
		if !ok {
			return fmt.Errorf("no source path recorded for %q", fp.SourceFile)
		}
		pageDir := filepath.Join(batchDir, fmt.Sprintf("page_%04d", i))
		if err := os.MkdirAll(pageDir, 0o755); err != nil {
			return fmt.Errorf("create page extraction dir: %w", err)
		}
		if err := pdf.ExtractPages(srcPath, pageDir, []int{fp.SourcePageIndex + 1}); err != nil {
			return fmt.Errorf("extract page %d of %s: %w", fp.SourcePageIndex, fp.SourceFile, err)
		}
		entries, err := os.ReadDir(pageDir)
		if err != nil || len(entries) == 0 {
			return fmt.Errorf("extracted page %d of %s produced no file", fp.SourcePageIndex, fp.SourceFile)
		}
		pagePaths = append(pagePaths, filepath.Join(pageDir, entries[0].Name()))
	}

	combinedPath := filepath.Join(inputDir, "combined.pdf")
	if err := pdf.CombinePagesFromMultiplePDFs(pagePaths, combinedPath); err != nil {
		return fmt.Errorf("combine sub-batch pages: %w", err)
	}

	if err := s.deps.NeuralEngine.ConvertBatch(ctx, inputDir, outputDir, neuralocr.Options{
		Device: "cpu", Languages: s.cfg.LangsSurya,
	}); err != nil {
		return fmt.Errorf("convert sub-batch: %w", err)
	}

	markdown, err := readFirstMarkdown(outputDir)
	if err != nil {
		return fmt.Errorf("read sub-batch markdown output: %w", err)
	}

	pageTexts, warning := batchplanner.SplitMarkdownPerPage(markdown, len(sub.Pages))
	if warning != "" {
		s.deps.Logger.Warn().Int("batch_index", sub.Index).Str("warning", warning).Msg("markdown per-page split degraded")
		s.deps.Callback.OnProgress(eventbus.ProgressEvent{Phase: eventbus.PhaseSurya, Message: warning})
	}

	touched := make(map[int]bool)
	for i, fp := range sub.Pages {
		idx, ok := fileIndex[fp.SourceFile]
		if !ok {
			continue
		}
		text := ""
		if i < len(pageTexts) {
			text = pageTexts[i]
		}
		prior := files[idx].Pages[fp.SourcePageIndex]

		page := scorer.ScorePage(fp.SourcePageIndex, text, nil)
		page.Engine = result.EngineSurya
		if page.Status == result.StatusFlagged {
			compositor.MarkSuryaInsufficient(page.Diagnostics.StruggleCategories)
		}

		if s.cfg.Diagnostics && prior.Diagnostics != nil {
			diff := diagnostics.Diff(prior.Diagnostics.TesseractText, text)
			diagnostics.SetGated(page.Diagnostics, prior.Diagnostics.ImageQuality, prior.Diagnostics.TesseractText, &diff)
		}

		files[idx].Pages[fp.SourcePageIndex] = page
		touched[idx] = true
	}

	for idx := range touched {
		if err := fileworker.WriteText(finalDir, files[idx].Filename, files[idx].Pages); err != nil {
			s.deps.Logger.Warn().Err(err).Str("file", files[idx].Filename).Msg("failed to rewrite text file after phase 2 re-score")
		}
	}
	return nil
}

// listenerSink adapts a workerlog.Listener into a zerolog.LevelWriter so a
// File Worker's zerolog.Logger can write through the shared listener
// goroutine instead of contending for stdout/file handles directly.
type listenerSink struct {
	listener *workerlog.Listener
	workerID string
}

func (s *listenerSink) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *listenerSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	_ = s.listener.Send(workerlog.Record{
		WorkerID: s.workerID,
		File:     s.workerID,
		Level:    level,
		Message:  strings.TrimRight(string(p), "\n"),
	})
	return len(p), nil
}

// workerLogger builds a zerolog.Logger for one File Worker goroutine, tagged
// with a synthetic per-goroutine id (here, the file stem) per §4.9.
func workerLogger(listener *workerlog.Listener, workerID string) zerolog.Logger {
	return zerolog.New(&listenerSink{listener: listener, workerID: workerID}).With().Timestamp().Logger()
}

// compositorFor builds the shared Compositor used by both Phase 1 workers
// and the Phase 2 scorer, so the same threshold gates both passes.
func compositorFor(threshold float64) *compositor.Compositor {
	return compositor.New(threshold)
}

// readFirstMarkdown walks outputDir for the single Markdown file the
// neural engine produced for a sub-batch's combined input PDF.
func readFirstMarkdown(outputDir string) (string, error) {
	var found string
	err := filepath.WalkDir(outputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") && found == "" {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no markdown output found under %s", outputDir)
	}
	data, err := os.ReadFile(found)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
