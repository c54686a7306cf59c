package diagnostics

import (
	"image"
	"image/color"
	"testing"

	"github.com/local/hybridocr/internal/compositor"
	"github.com/local/hybridocr/internal/result"
)

func TestBuilderAssemblesAlwaysOnFields(t *testing.T) {
	b := NewBuilder()
	signals := map[string]result.SignalResult{
		"garbled": {Name: "garbled", Score: 0.9, Details: map[string]any{"garbled_count": 1}},
	}
	comp := compositor.New(0.85).Combine(signals, nil, nil)
	d := b.Build(signals, comp, map[string]int{"dehyphenations": 2})

	if d.SignalScores["garbled"] != 0.9 {
		t.Errorf("signal score not carried through")
	}
	if d.PostprocessCounts["dehyphenations"] != 2 {
		t.Errorf("postprocess counts not carried through")
	}
	if d.StruggleCategories == nil {
		t.Errorf("struggle categories should be present (possibly empty)")
	}
}

func TestDiffSubstitutionDetected(t *testing.T) {
	d := Diff("the qvick brown fox", "the quick brown fox")
	if d.Summary.Substitutions != 1 {
		t.Fatalf("expected 1 substitution, got %+v", d)
	}
	if d.Substitutions[0].Old != "qvick" || d.Substitutions[0].New != "quick" {
		t.Errorf("unexpected substitution: %+v", d.Substitutions[0])
	}
}

func TestDiffAdditionsAndDeletions(t *testing.T) {
	d := Diff("alpha beta", "alpha beta gamma")
	if d.Summary.Additions != 1 || d.Summary.Deletions != 0 {
		t.Fatalf("expected 1 addition 0 deletions, got %+v", d.Summary)
	}
}

func TestSetGatedAttachesFields(t *testing.T) {
	b := NewBuilder()
	comp := compositor.New(0.85).Combine(map[string]result.SignalResult{}, nil, nil)
	d := b.Build(map[string]result.SignalResult{}, comp, nil)

	iq := result.ImageQuality{Contrast: 0.4, BlurScore: 80}
	diff := Diff("old text", "new text")
	SetGated(d, &iq, "old text", &diff)

	if d.ImageQuality == nil || d.ImageQuality.Contrast != 0.4 {
		t.Errorf("ImageQuality not attached: %+v", d.ImageQuality)
	}
	if d.TesseractText != "old text" {
		t.Errorf("TesseractText = %q, want %q", d.TesseractText, "old text")
	}
	if d.EngineDiff == nil || d.EngineDiff.Summary.Substitutions != 1 {
		t.Errorf("EngineDiff not attached: %+v", d.EngineDiff)
	}
}

func TestImageQualityEstimatorOnFlatImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	e := NewImageQualityEstimator()
	iq := e.Estimate(img, 150)
	if iq.Contrast != 0 {
		t.Errorf("flat image should have zero contrast, got %f", iq.Contrast)
	}
	if iq.BlurScore != 0 {
		t.Errorf("flat image should have zero blur response variance, got %f", iq.BlurScore)
	}
}
