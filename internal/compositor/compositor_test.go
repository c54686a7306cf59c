package compositor

import (
	"testing"

	"github.com/local/hybridocr/internal/result"
)

func TestWeightsAllThreePresent(t *testing.T) {
	c := New(0.85)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Name: "garbled", Score: 0.9},
		"dictionary": {Name: "dictionary", Score: 0.9},
		"confidence": {Name: "confidence", Score: 0.9},
	}, nil, nil)
	if comp.Weights["garbled"] != 0.4 || comp.Weights["dictionary"] != 0.3 || comp.Weights["confidence"] != 0.3 {
		t.Errorf("unexpected weights: %+v", comp.Weights)
	}
}

func TestWeightsConfidenceAbsent(t *testing.T) {
	c := New(0.85)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Name: "garbled", Score: 0.9},
		"dictionary": {Name: "dictionary", Score: 0.9},
	}, nil, nil)
	if comp.Weights["garbled"] != 0.55 || comp.Weights["dictionary"] != 0.45 {
		t.Errorf("unexpected weights: %+v", comp.Weights)
	}
	if _, ok := comp.Weights["confidence"]; ok {
		t.Errorf("confidence weight should be absent")
	}
}

func TestConfidenceShortCircuitHigh(t *testing.T) {
	c := New(0.85)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Score: 0.5},
		"dictionary": {Score: 0.5},
		"confidence": {Score: 0.99},
	}, nil, nil)
	if comp.Score < 0.9 {
		t.Errorf("confidence>0.95 should raise composite to >=0.9, got %f", comp.Score)
	}
}

func TestConfidenceShortCircuitLow(t *testing.T) {
	c := New(0.85)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Score: 0.99},
		"dictionary": {Score: 0.99},
		"confidence": {Score: 0.1},
	}, nil, nil)
	if comp.Score > 0.3 {
		t.Errorf("confidence<0.2 should lower composite to <=0.3, got %f", comp.Score)
	}
}

func TestGrayZoneDetection(t *testing.T) {
	c := New(0.85)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Score: 0.83},
		"dictionary": {Score: 0.83},
	}, nil, nil)
	if !comp.InGrayZone {
		t.Errorf("expected gray zone for composite near threshold, got score %f", comp.Score)
	}
}

func TestSignalDisagreement(t *testing.T) {
	c := New(0.85)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Score: 0.9},
		"dictionary": {Score: 0.9},
		"confidence": {Score: 0.1},
	}, nil, nil)
	if !comp.HasDisagreement {
		t.Errorf("expected disagreement, got disagreements=%+v", comp.Disagreements)
	}
	if !comp.StruggleCategories["signal_disagreement"] {
		t.Errorf("expected signal_disagreement category")
	}
}

func TestBelowFloorFlagsRegardlessOfComposite(t *testing.T) {
	c := New(0.5)
	comp := c.Combine(map[string]result.SignalResult{
		"garbled":    {Score: 0.99},
		"dictionary": {Score: 0.99},
		"confidence": {Score: 0.1}, // below confidence floor 0.3
	}, nil, nil)
	if !comp.BelowFloor {
		t.Errorf("expected BelowFloor true due to confidence under floor")
	}
	if !comp.Flagged(0.5) {
		t.Errorf("page should be flagged due to floor violation even if composite is high")
	}
}

func TestMarkSuryaInsufficientAddsCategory(t *testing.T) {
	cats := map[string]bool{"gray_zone": true}
	MarkSuryaInsufficient(cats)
	if !cats["surya_insufficient"] {
		t.Errorf("expected surya_insufficient category to be set")
	}
	if !cats["gray_zone"] {
		t.Errorf("expected existing categories to survive")
	}
}

func TestBadScanDiagnosticsMode(t *testing.T) {
	c := New(0.85)
	blur := 10.0
	contrast := 0.05
	comp := c.Combine(map[string]result.SignalResult{
		"garbled": {Score: 0.9}, "dictionary": {Score: 0.9},
	}, &blur, &contrast)
	if !comp.StruggleCategories["bad_scan"] {
		t.Errorf("expected bad_scan category when blur/contrast below thresholds")
	}
}
