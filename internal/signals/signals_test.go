package signals

import (
	"strings"
	"testing"
)

func TestGarbledSignalCleanText(t *testing.T) {
	g := NewGarbledSignal()
	r := g.Score("The quick brown fox jumps over the lazy dog near Heidegger's Dasein.")
	if r.Score < 0.8 {
		t.Errorf("clean text scored too low: %f", r.Score)
	}
}

func TestGarbledSignalEmptyText(t *testing.T) {
	g := NewGarbledSignal()
	r := g.Score("")
	if r.Score != 0 {
		t.Errorf("empty text score = %f, want 0", r.Score)
	}
}

func TestGarbledSignalDetectsConsonantCluster(t *testing.T) {
	g := NewGarbledSignal()
	r := g.Score("xkjqzvbnm normal words here")
	count, _ := r.Details["garbled_count"].(int)
	if count < 1 {
		t.Errorf("expected at least one garbled token, got %d", count)
	}
}

func TestGarbledSignalGermanSuffixSkipsClusterCheck(t *testing.T) {
	g := NewGarbledSignal()
	// "Geschwindigkeit" ends in -keit and has long consonant runs; must not be flagged solely for that.
	r := g.Score("Geschwindigkeit ist wichtig")
	count, _ := r.Details["garbled_count"].(int)
	if count != 0 {
		t.Errorf("German -keit word incorrectly flagged as garbled: details=%+v", r.Details)
	}
}

func TestDictionarySignalKnownWords(t *testing.T) {
	d, err := NewDictionarySignal(strings.NewReader("the\nquick\nbrown\nfox\n"))
	if err != nil {
		t.Fatal(err)
	}
	r := d.Score("the quick brown fox")
	if r.Score != 1.0 {
		t.Errorf("all-known text scored %f, want 1.0", r.Score)
	}
}

func TestDictionarySignalEmptyText(t *testing.T) {
	d, _ := NewDictionarySignal(strings.NewReader("word\n"))
	r := d.Score("")
	if r.Score != 0 {
		t.Errorf("empty text score = %f, want 0", r.Score)
	}
}

func TestConfidenceSignalNeutralOnEmpty(t *testing.T) {
	c := NewConfidenceSignal()
	r := c.Score(nil)
	if r.Score != 0.5 {
		t.Errorf("empty word list score = %f, want 0.5", r.Score)
	}
}

func TestConfidenceSignalFiltersZeroAndEmpty(t *testing.T) {
	c := NewConfidenceSignal()
	r := c.Score([]WordConfidence{
		{Text: "", Conf: 90},
		{Text: "ok", Conf: 0},
		{Text: "good", Conf: 95},
	})
	wc, _ := r.Details["word_count"].(int)
	if wc != 1 {
		t.Errorf("word_count = %d, want 1 (only 'good' should count)", wc)
	}
}

func TestConfidenceSignalLengthWeighted(t *testing.T) {
	c := NewConfidenceSignal()
	r := c.Score([]WordConfidence{
		{Text: "a", Conf: 0.01}, // length 1, weight max(1,1)=1 -- but conf must be >0
	})
	if r.Score <= 0 {
		t.Errorf("expected tiny positive score, got %f", r.Score)
	}
}
