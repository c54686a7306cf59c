package fileworker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/local/hybridocr/internal/compositor"
	"github.com/local/hybridocr/internal/result"
)

func TestAllPagesGoodAllGood(t *testing.T) {
	pages := []result.PageResult{
		{Status: result.StatusGood},
		{Status: result.StatusGood},
	}
	if !allPagesGood(pages) {
		t.Error("expected all pages good")
	}
}

func TestAllPagesGoodOneFlagged(t *testing.T) {
	pages := []result.PageResult{
		{Status: result.StatusGood},
		{Status: result.StatusFlagged},
	}
	if allPagesGood(pages) {
		t.Error("expected not all pages good")
	}
}

func TestMeanQualityAverages(t *testing.T) {
	pages := []result.PageResult{{QualityScore: 0.8}, {QualityScore: 0.6}}
	got := meanQuality(pages)
	if got < 0.69 || got > 0.71 {
		t.Errorf("meanQuality = %v, want ~0.7", got)
	}
}

func TestMeanQualityEmptyIsZero(t *testing.T) {
	if got := meanQuality(nil); got != 0 {
		t.Errorf("meanQuality(nil) = %v, want 0", got)
	}
}

func TestTruncatedStackBounded(t *testing.T) {
	fake := make([]byte, 0)
	for i := 0; i < 50; i++ {
		fake = append(fake, []byte("goroutine 1 [running]:\nmain.foo()\n")...)
	}
	got := truncatedStack(fake)
	if len(got) >= len(fake) {
		t.Errorf("expected truncated stack shorter than input")
	}
}

func TestScorePageAboveThresholdIsGood(t *testing.T) {
	w := &Worker{cfg: Config{Compositor: compositor.New(0.5)}}
	pr := w.ScorePage(0, "This is ordinary clean English text with real words.", nil)
	if pr.Status != result.StatusGood {
		t.Errorf("expected good status for clean text, got %+v", pr)
	}
	if pr.PageNumber != 0 {
		t.Errorf("expected 0-indexed page number, got %d", pr.PageNumber)
	}
}

func TestScorePageGarbledIsFlagged(t *testing.T) {
	w := &Worker{cfg: Config{Compositor: compositor.New(0.85)}}
	pr := w.ScorePage(0, "xzq kqwpl vbnmrt wqxzpl fjhgkl", nil)
	if pr.Status != result.StatusFlagged {
		t.Errorf("expected flagged status for garbled text, got %+v", pr)
	}
}

func TestCopyFileCopiesContents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	dst := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4\n%%EOF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(got) != "%PDF-1.4\n%%EOF\n" {
		t.Errorf("copied contents = %q, want original bytes", got)
	}
}

func TestWriteTextJoinsPagesWithFormFeed(t *testing.T) {
	dir := t.TempDir()
	pages := []result.PageResult{{Text: "page one"}, {Text: "page two"}}
	if err := WriteText(dir, "doc", pages); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "doc.txt"))
	if err != nil {
		t.Fatalf("read text file: %v", err)
	}
	want := "page one\n\f\npage two"
	if string(got) != want {
		t.Errorf("contents = %q, want %q", got, want)
	}
}
