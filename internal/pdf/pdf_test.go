package pdf

import "testing"

func TestIsPageNumber(t *testing.T) {
	cases := map[string]bool{
		"42":      true,
		"  7  ":   true,
		"page 3":  false,
		"hello":   false,
	}
	for in, want := range cases {
		if got := isPageNumber(in); got != want {
			t.Errorf("isPageNumber(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsHeaderFooter(t *testing.T) {
	if !isHeaderFooter("Chapter 4") {
		t.Error("expected Chapter line to be detected as header")
	}
	if isHeaderFooter("This is ordinary body text.") {
		t.Error("did not expect ordinary text to be flagged as header/footer")
	}
}

func TestCleanTextDropsNoiseLines(t *testing.T) {
	raw := "Real content here.\n\n42\nChapter 3\nMore real content."
	got := cleanText(raw)
	if got == raw {
		t.Errorf("expected noise lines removed")
	}
	for _, unwanted := range []string{"42", "Chapter 3"} {
		if contains(got, unwanted) {
			t.Errorf("expected %q to be removed, got %q", unwanted, got)
		}
	}
}

func TestFixBrokenLinesJoinsContinuation(t *testing.T) {
	in := "The quick brown fox\njumps over the lazy dog."
	got := fixBrokenLines(in)
	want := "The quick brown fox jumps over the lazy dog."
	if got != want {
		t.Errorf("fixBrokenLines = %q, want %q", got, want)
	}
}

func TestFixBrokenLinesPreservesSentenceBoundary(t *testing.T) {
	in := "This sentence ends here.\nthis one starts fresh but lowercase anyway."
	got := fixBrokenLines(in)
	if got != in {
		t.Errorf("expected no join across terminal punctuation, got %q", got)
	}
}

func TestReorderColumnsPassesThroughSingleColumn(t *testing.T) {
	blocks := []textBlock{{Text: "a", X: 10, Y: 1}, {Text: "b", X: 12, Y: 2}}
	got := reorderColumnsLeftToRight(blocks)
	if len(got) != 2 {
		t.Fatalf("expected passthrough of 2 blocks, got %d", len(got))
	}
}

func TestReorderColumnsSplitsTwoColumnLayout(t *testing.T) {
	var blocks []textBlock
	for i := 0; i < 5; i++ {
		blocks = append(blocks, textBlock{Text: "L", X: 50, Y: float64(i * 10)})
		blocks = append(blocks, textBlock{Text: "R", X: 350, Y: float64(i * 10)})
	}
	got := reorderColumnsLeftToRight(blocks)
	if len(got) != 10 {
		t.Fatalf("expected 10 blocks, got %d", len(got))
	}
	if got[0].Text != "L" || got[len(got)-1].Text != "R" {
		t.Errorf("expected left column fully before right column, got order starting %s ending %s", got[0].Text, got[len(got)-1].Text)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
