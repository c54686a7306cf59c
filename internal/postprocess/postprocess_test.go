package postprocess

import "testing"

func TestDehyphenateJoinsSplitWord(t *testing.T) {
	c := &Counts{}
	out := Dehyphenate("The transcen-\ndental aesthetic", c)
	if out != "The transcendental aesthetic" {
		t.Errorf("got %q", out)
	}
	if c.Dehyphenations != 1 {
		t.Errorf("count = %d, want 1", c.Dehyphenations)
	}
}

func TestDehyphenateRespectsWhitelist(t *testing.T) {
	c := &Counts{}
	out := Dehyphenate("Between Heidegger-\nJaspers there was tension", c)
	if out != "Between Heidegger-\nJaspers there was tension" {
		t.Errorf("whitelisted compound was altered: %q", out)
	}
	if c.Dehyphenations != 0 {
		t.Errorf("count = %d, want 0", c.Dehyphenations)
	}
}

func TestJoinParagraphLinesPreservesBreaks(t *testing.T) {
	c := &Counts{}
	in := "This sentence continues\non the next line.\n\nThis is a new paragraph."
	out := JoinParagraphLines(in, c)
	if out != "This sentence continues on the next line.\n\nThis is a new paragraph." {
		t.Errorf("got %q", out)
	}
	if c.ParagraphJoins != 1 {
		t.Errorf("count = %d, want 1", c.ParagraphJoins)
	}
}

func TestNormalizeUnicodeCountsChange(t *testing.T) {
	c := &Counts{}
	// Combining diaeresis form of "a" -> should normalize to precomposed.
	in := "ä"
	out := NormalizeUnicode(in, c)
	if out == in {
		t.Errorf("expected normalization to change the string")
	}
	if c.UnicodeNormalizations != 1 {
		t.Errorf("count = %d, want 1", c.UnicodeNormalizations)
	}
}

func TestFixPunctuationCollapsesSpaces(t *testing.T) {
	c := &Counts{}
	out := FixPunctuation("too   many    spaces", c)
	if out != "too many spaces" {
		t.Errorf("got %q", out)
	}
	if c.PunctuationFixes == 0 {
		t.Errorf("expected at least one punctuation fix counted")
	}
}

func TestRunChainAppliesAllTransforms(t *testing.T) {
	c := &Counts{}
	out := Run("trans-\nlation  test", c)
	if out != "translation test" {
		t.Errorf("got %q", out)
	}
	m := c.AsMap()
	if m["dehyphenations"] != 1 {
		t.Errorf("expected dehyphenation counted in map: %+v", m)
	}
}
