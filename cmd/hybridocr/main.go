// Command hybridocr runs one end-to-end pass of the hybrid OCR pipeline
// over a configured input set and prints the resulting BatchResult.
// Bootstrap-and-wire shape adapted from cmd/app/main.go: load config, init
// logging, init metrics, construct every Scheduler dependency, run, report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/hybridocr/internal/config"
	"github.com/local/hybridocr/internal/envgate"
	"github.com/local/hybridocr/internal/fastocr"
	"github.com/local/hybridocr/internal/limiter"
	"github.com/local/hybridocr/internal/metrics"
	"github.com/local/hybridocr/internal/modelcache"
	"github.com/local/hybridocr/internal/neuralocr"
	"github.com/local/hybridocr/internal/obslog"
	"github.com/local/hybridocr/internal/runcoord"
	"github.com/local/hybridocr/internal/scheduler"
	"github.com/local/hybridocr/internal/sidecar"
	"github.com/local/hybridocr/internal/worddata"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	jsonOutput := flag.Bool("json", false, "print the full BatchResult as JSON instead of a summary")
	flag.StringVar(&cfg.InputDir, "input", cfg.InputDir, "input directory to scan for PDFs")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "output directory for results, diagnostics, and logs")
	flag.Parse()

	if err := obslog.Init(obslog.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		return 1
	}
	defer obslog.Close()

	metrics.Init()

	deps, err := buildDependencies(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to wire pipeline dependencies")
		return 1
	}
	if deps.RunCoord != nil {
		defer deps.RunCoord.Close()
	}

	// Phase 2, once started, is allowed to run to completion even after a
	// signal -- so cancellation here only stops a run that hasn't begun its
	// neural-model pass yet, rather than tearing down mid-batch.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(cfg, deps)
	batch, err := sched.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("pipeline run failed")
		return 1
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batch); err != nil {
			log.Error().Err(err).Msg("failed to encode result")
			return 1
		}
	} else {
		fmt.Printf("processed %d files: %d succeeded, %d failed (%.1fs)\n",
			batch.TotalFiles, batch.Successful, batch.Failed, batch.TotalTime)
	}

	if batch.Failed > 0 {
		return 1
	}
	return 0
}

// buildDependencies wires every Scheduler collaborator from cfg, mirroring
// cmd/app/main.go's construct-everything-in-one-place bootstrap.
func buildDependencies(cfg config.Config) (scheduler.Dependencies, error) {
	gate := envgate.New(filepath.Join(cfg.OutputDir, "work"), cfg.LangsTesseract)

	dictionary, err := worddata.OpenBundledDictionary()
	if err != nil {
		return scheduler.Dependencies{}, fmt.Errorf("load bundled dictionary: %w", err)
	}

	neuralEngine := neuralocr.New(os.Getenv("HYBRIDOCR_SURYA_BIN"))
	modelCache := modelcache.New(neuralEngine, cfg.ModelTTL)

	var sidecarWriter *sidecar.Writer
	switch cfg.Storage.Backend {
	case config.StorageS3:
		sidecarWriter = sidecar.NewS3(cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
	default:
		sidecarWriter = sidecar.NewLocal(filepath.Join(cfg.OutputDir, "final"))
	}

	var runCoord *runcoord.Coordinator
	var breaker *limiter.Adaptive
	if cfg.RunCoord.RedisURL != "" {
		rc, err := runcoord.Connect(cfg.RunCoord.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("run coordination disabled: failed to connect to redis")
		} else {
			runCoord = rc
		}
		lim, err := limiter.New(limiter.Options{RedisURL: cfg.RunCoord.RedisURL})
		if err != nil {
			log.Warn().Err(err).Msg("neural engine circuit breaker disabled: failed to connect to redis")
		} else {
			breaker = lim
		}
	}

	return scheduler.Dependencies{
		Gate:          gate,
		FastEngine:    fastocr.New(os.Getenv("HYBRIDOCR_TESSERACT_BIN")),
		NeuralEngine:  neuralEngine,
		ModelCache:    modelCache,
		Dictionary:    dictionary,
		WordExtractor: worddata.New(os.Getenv("HYBRIDOCR_TESSERACT_BIN")),
		Sidecar:       sidecarWriter,
		RunCoord:      runCoord,
		Breaker:       breaker,
		Logger:        *obslog.Get(),
	}, nil
}
