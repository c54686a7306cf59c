// Package batchplanner collects the pages flagged by Phase 1 across every
// input file into a single cross-file work list for the Phase 2 neural pass,
// and splits that list into memory-safe sub-batches. Grounded on the
// worker-pool sizing arithmetic in the teacher's config.WorkerConfig and the
// delayed-item batching pattern in its Redis queue (internal/queue/redis.go),
// adapted from time-deferral to memory-pressure-driven sub-batching.
package batchplanner

import (
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/local/hybridocr/internal/result"
)

// bytesPerPage is the rule-of-thumb memory footprint of one page under the
// neural engine, matching the §4.4 formula's 0.7 GiB constant.
const bytesPerPage = 0.7 * 1024 * 1024 * 1024

// cpuFallbackCap is the sub-batch size used when no memory reading is
// available, and the upper bound on the memory-derived size otherwise.
const cpuFallbackCap = 32

// MemoryProbe reports currently available memory, in bytes. It is an
// external collaborator so tests can simulate constrained environments
// without touching the real device.
type MemoryProbe interface {
	AvailableBytes() (uint64, bool) // ok=false when no reading is available (CPU-only)
}

// RuntimeMemoryProbe reads MemAvailable from /proc/meminfo. Where that file
// is absent or unreadable it reports ok=false, deferring to the CPU
// fallback cap.
type RuntimeMemoryProbe struct{}

func (RuntimeMemoryProbe) AvailableBytes() (uint64, bool) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if fields := strings.Fields(line); len(fields) >= 2 && fields[0] == "MemAvailable:" {
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			return kb * 1024, err == nil
		}
	}
	return 0, false
}

// Planner builds and splits the cross-file Phase 2 work list.
type Planner struct {
	Probe MemoryProbe
}

func New(probe MemoryProbe) *Planner {
	if probe == nil {
		probe = RuntimeMemoryProbe{}
	}
	return &Planner{Probe: probe}
}

// Collect gathers every flagged page across files into one ordered list,
// preserving file order then page order. It leaves BatchIndex at 0; Split
// stamps each page with its position in this list.
func (p *Planner) Collect(files []result.FileResult) []result.FlaggedPage {
	var flagged []result.FlaggedPage
	for _, f := range files {
		for _, pg := range f.Pages {
			if pg.Flagged {
				flagged = append(flagged, result.FlaggedPage{
					SourceFile:      f.Filename,
					SourcePageIndex: pg.PageNumber,
				})
			}
		}
	}
	return flagged
}

// SafeBatchSize implements the §4.4 memory-pressure formula:
// safe_size = floor(0.5 * available / 0.7_GiB), falling back to a fixed cap
// when no memory reading is available.
func (p *Planner) SafeBatchSize() int {
	available, ok := p.Probe.AvailableBytes()
	if !ok || available == 0 {
		return cpuFallbackCap
	}
	safe := int(math.Floor(0.5 * float64(available) / bytesPerPage))
	if safe < 1 {
		return 1
	}
	if safe > cpuFallbackCap {
		return cpuFallbackCap
	}
	return safe
}

// SubBatch is one memory-safe slice of the cross-file work list.
type SubBatch struct {
	Index int
	Pages []result.FlaggedPage
}

// Split partitions flagged pages into sub-batches no larger than the current
// safe size, stamping each page's BatchIndex with its position in the whole
// flagged list (unique and sequential from 0) so later re-attachment of
// results to source files/pages stays unambiguous.
func (p *Planner) Split(flagged []result.FlaggedPage) []SubBatch {
	if len(flagged) == 0 {
		return nil
	}
	size := p.SafeBatchSize()
	var batches []SubBatch
	for start := 0; start < len(flagged); start += size {
		end := start + size
		if end > len(flagged) {
			end = len(flagged)
		}
		idx := len(batches)
		pages := make([]result.FlaggedPage, end-start)
		copy(pages, flagged[start:end])
		for i := range pages {
			pages[i].BatchIndex = start + i
		}
		batches = append(batches, SubBatch{Index: idx, Pages: pages})
	}
	return batches
}

// WorkerPoolSize mirrors the §4.6 goroutine-pool sizing rule: never exceed
// the configured cap, the number of files, or the host's CPU count.
func WorkerPoolSize(maxWorkers, fileCount int) int {
	n := maxWorkers
	if fileCount < n {
		n = fileCount
	}
	if cpu := runtime.NumCPU(); cpu < n {
		n = cpu
	}
	if n < 1 {
		n = 1
	}
	return n
}
