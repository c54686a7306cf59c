package batchplanner

import (
	"runtime"
	"testing"

	"github.com/local/hybridocr/internal/result"
)

type fixedProbe struct {
	available uint64
	ok        bool
}

func (f fixedProbe) AvailableBytes() (uint64, bool) { return f.available, f.ok }

func TestSafeBatchSizeFallsBackToCPUCapWhenNoReading(t *testing.T) {
	p := New(fixedProbe{ok: false})
	if got := p.SafeBatchSize(); got != cpuFallbackCap {
		t.Errorf("SafeBatchSize() = %d, want %d", got, cpuFallbackCap)
	}
}

func TestSafeBatchSizeUsesMemoryFormula(t *testing.T) {
	// available = 4 GiB -> safe = floor(0.5*4GiB/0.7GiB) = floor(2.857) = 2
	p := New(fixedProbe{available: 4 * 1024 * 1024 * 1024, ok: true})
	if got := p.SafeBatchSize(); got != 2 {
		t.Errorf("SafeBatchSize() = %d, want 2", got)
	}
}

func TestSafeBatchSizeNeverExceedsCPUCap(t *testing.T) {
	p := New(fixedProbe{available: 1000 * 1024 * 1024 * 1024, ok: true})
	if got := p.SafeBatchSize(); got != cpuFallbackCap {
		t.Errorf("SafeBatchSize() = %d, want %d (capped)", got, cpuFallbackCap)
	}
}

func TestSafeBatchSizeNeverBelowOne(t *testing.T) {
	p := New(fixedProbe{available: 1, ok: true})
	if got := p.SafeBatchSize(); got != 1 {
		t.Errorf("SafeBatchSize() = %d, want 1", got)
	}
}

func TestCollectGathersFlaggedPagesInOrder(t *testing.T) {
	p := New(fixedProbe{ok: false})
	files := []result.FileResult{
		{Filename: "a.pdf", Pages: []result.PageResult{
			{PageNumber: 1, Flagged: false},
			{PageNumber: 2, Flagged: true},
		}},
		{Filename: "b.pdf", Pages: []result.PageResult{
			{PageNumber: 1, Flagged: true},
		}},
	}
	flagged := p.Collect(files)
	if len(flagged) != 2 {
		t.Fatalf("expected 2 flagged pages, got %d", len(flagged))
	}
	if flagged[0].SourceFile != "a.pdf" || flagged[0].SourcePageIndex != 2 {
		t.Errorf("unexpected first entry: %+v", flagged[0])
	}
	if flagged[1].SourceFile != "b.pdf" || flagged[1].SourcePageIndex != 1 {
		t.Errorf("unexpected second entry: %+v", flagged[1])
	}
}

func TestSplitPartitionsAndStampsBatchIndex(t *testing.T) {
	p := New(fixedProbe{ok: false}) // cap 32
	flagged := make([]result.FlaggedPage, 40)
	for i := range flagged {
		flagged[i] = result.FlaggedPage{SourceFile: "x.pdf", SourcePageIndex: i + 1}
	}
	batches := p.Split(flagged)
	if len(batches) != 2 {
		t.Fatalf("expected 2 sub-batches, got %d", len(batches))
	}
	if len(batches[0].Pages) != 32 || len(batches[1].Pages) != 8 {
		t.Errorf("unexpected sub-batch sizes: %d, %d", len(batches[0].Pages), len(batches[1].Pages))
	}
	for i, pg := range batches[0].Pages {
		if pg.BatchIndex != i {
			t.Errorf("expected batch index %d, got %d", i, pg.BatchIndex)
		}
	}
	for i, pg := range batches[1].Pages {
		if pg.BatchIndex != 32+i {
			t.Errorf("expected batch index %d, got %d", 32+i, pg.BatchIndex)
		}
	}
}

func TestSplitEmptyReturnsNil(t *testing.T) {
	p := New(fixedProbe{ok: false})
	if got := p.Split(nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestWorkerPoolSizeRespectsAllThreeBounds(t *testing.T) {
	want := 3
	if cpu := runtime.NumCPU(); cpu < want {
		want = cpu
	}
	if got := WorkerPoolSize(100, 3); got != want {
		t.Errorf("WorkerPoolSize(100,3) = %d, want min(fileCount 3, NumCPU) = %d", got, want)
	}
	if got := WorkerPoolSize(0, 5); got != 1 {
		t.Errorf("WorkerPoolSize(0,5) = %d, want floor of 1", got)
	}
}

func TestSplitMarkdownPerPageOnHorizontalRule(t *testing.T) {
	md := "page one text\n\n---\n\npage two text\n\n---\n\npage three text"
	pages, warning := SplitMarkdownPerPage(md, 3)
	if warning != "" {
		t.Fatalf("unexpected warning: %s", warning)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d: %+v", len(pages), pages)
	}
	if pages[1] != "page two text" {
		t.Errorf("page 2 = %q", pages[1])
	}
}

func TestSplitMarkdownPerPageFallsBackToBlankRun(t *testing.T) {
	md := "page one\n\n\npage two"
	pages, warning := SplitMarkdownPerPage(md, 2)
	if warning != "" {
		t.Fatalf("unexpected warning: %s", warning)
	}
	if len(pages) != 2 || pages[0] != "page one" || pages[1] != "page two" {
		t.Errorf("unexpected split: %+v", pages)
	}
}

func TestSplitMarkdownPerPageFallsBackToFirstPageWithWarning(t *testing.T) {
	md := "one continuous blob of text with no separators at all"
	pages, warning := SplitMarkdownPerPage(md, 3)
	if warning == "" {
		t.Fatalf("expected a warning when no split point is found")
	}
	if len(pages) != 3 || pages[0] != md || pages[1] != "" || pages[2] != "" {
		t.Errorf("unexpected fallback assignment: %+v", pages)
	}
}

func TestSplitMarkdownPerPageSinglePageIsIdentity(t *testing.T) {
	pages, warning := SplitMarkdownPerPage("just some text", 1)
	if warning != "" || len(pages) != 1 || pages[0] != "just some text" {
		t.Errorf("unexpected single-page result: %+v, %q", pages, warning)
	}
}
