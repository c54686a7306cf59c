// Package workerlog transports log records from Phase 1 File Worker
// goroutines to a single listener goroutine that owns the console and
// rotated-file sinks, so concurrent workers never interleave partial
// writes. This is the goroutine-based reinterpretation of the distilled
// spec's "Cross-Process Logging" -- see the adaptation note in
// SPEC_FULL.md §1. Grounded on the multi-writer construction and
// lumberjack rotation in the teacher's internal/logger/logger.go, and on
// its Axiom batching goroutine's channel-plus-ticker shutdown shape.
package workerlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Record is one log line a worker goroutine wants written.
type Record struct {
	WorkerID string
	File     string
	Level    zerolog.Level
	Message  string
	Fields   map[string]any
	Time     time.Time
}

// Listener owns the shared sinks and drains Records off a channel in its
// own goroutine, so no two workers ever write concurrently.
type Listener struct {
	records chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// Options configures the listener's output sinks.
type Options struct {
	LogDir     string // if set, rotated per-run log file lives here
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

// NewListener constructs a Listener and starts its drain goroutine. Callers
// must call Stop when the run completes, to flush and join cleanly.
func NewListener(opts Options) (*Listener, error) {
	var outputs []zerolog.LevelWriter
	if opts.Console {
		outputs = append(outputs, zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Logger())
	}
	if opts.LogDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.LogDir + "/pipeline.log",
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		outputs = append(outputs, zerolog.New(rotator).With().Logger())
	}

	l := &Listener{
		records: make(chan Record, 256),
		done:    make(chan struct{}),
	}

	multi := make([]zerolog.LevelWriter, len(outputs))
	copy(multi, outputs)
	l.logger = zerolog.New(zerolog.MultiLevelWriter(multi...)).With().Timestamp().Logger()

	l.wg.Add(1)
	go l.drain()
	return l, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (l *Listener) drain() {
	defer l.wg.Done()
	for {
		select {
		case rec, ok := <-l.records:
			if !ok {
				return
			}
			l.write(rec)
		case <-l.done:
			// Drain remaining buffered records before exiting.
			for {
				select {
				case rec, ok := <-l.records:
					if !ok {
						return
					}
					l.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (l *Listener) write(rec Record) {
	ev := l.logger.WithLevel(rec.Level).
		Str("worker_id", rec.WorkerID).
		Str("file", rec.File)
	for k, v := range rec.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(rec.Message)
}

// Send delivers one record for writing. It never blocks the caller longer
// than the channel buffer allows; a full buffer means the listener has
// fallen behind, which Send reports rather than silently dropping.
func (l *Listener) Send(rec Record) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	select {
	case l.records <- rec:
		return nil
	default:
		return fmt.Errorf("workerlog: buffer full, record from worker %s dropped", rec.WorkerID)
	}
}

// Stop signals the drain goroutine to flush remaining records and exit,
// then waits for it to finish.
func (l *Listener) Stop() {
	close(l.done)
	close(l.records)
	l.wg.Wait()
}

// PerWorkerSink is a convenience wrapper binding a WorkerID/File pair so
// call sites in fileworker don't repeat them on every Send.
type PerWorkerSink struct {
	listener *Listener
	workerID string
	file     string
}

func NewPerWorkerSink(l *Listener, workerID, file string) *PerWorkerSink {
	return &PerWorkerSink{listener: l, workerID: workerID, file: file}
}

func (s *PerWorkerSink) Log(level zerolog.Level, msg string, fields map[string]any) error {
	return s.listener.Send(Record{
		WorkerID: s.workerID,
		File:     s.file,
		Level:    level,
		Message:  msg,
		Fields:   fields,
	})
}
