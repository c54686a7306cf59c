// Package compositor combines independent quality signals into one
// composite score with fallback reweighting, per-signal floors, gray-zone
// detection, disagreement tracking and struggle-category tagging.
package compositor

import (
	"math"
	"sort"

	"github.com/local/hybridocr/internal/result"
)

// Floors are the per-signal minimum scores below which a page is flagged
// regardless of composite.
type Floors struct {
	Confidence float64
	Garbled    float64
	Dictionary float64
}

func DefaultFloors() Floors {
	return Floors{Confidence: 0.3, Garbled: 0.5, Dictionary: 0.4}
}

// Composite is the result of combining available signals for one page.
type Composite struct {
	Score               float64
	Weights              map[string]float64
	Disagreements        []result.SignalDisagreement
	HasDisagreement      bool
	InGrayZone           bool
	BelowFloor           bool
	StruggleCategories   map[string]bool
}

// Compositor holds the configured threshold and floors.
type Compositor struct {
	Threshold float64
	Floors    Floors
}

func New(threshold float64) *Compositor {
	return &Compositor{Threshold: threshold, Floors: DefaultFloors()}
}

// Combine takes the available signal results (by name: "garbled",
// "dictionary", "confidence" — any subset) plus optional gated inputs for
// the bad_scan struggle rule, and produces a Composite.
func (c *Compositor) Combine(signals map[string]result.SignalResult, diagBlur, diagContrast *float64) Composite {
	weights := weightsFor(signals)

	var composite float64
	for name, w := range weights {
		if sig, ok := signals[name]; ok {
			composite += sig.Score * w
		}
	}

	if conf, ok := signals["confidence"]; ok {
		if conf.Score > 0.95 {
			composite = math.Max(composite, 0.9)
		}
		if conf.Score < 0.2 {
			composite = math.Min(composite, 0.3)
		}
	}

	belowFloor := false
	floors := map[string]float64{
		"confidence": c.Floors.Confidence,
		"garbled":    c.Floors.Garbled,
		"dictionary": c.Floors.Dictionary,
	}
	for name, sig := range signals {
		if sig.Score < floors[name] {
			belowFloor = true
		}
	}

	disagreements := pairwiseDisagreements(signals)
	hasDisagreement := false
	for _, d := range disagreements {
		if d.Magnitude > 0.3 {
			hasDisagreement = true
			break
		}
	}

	grayZone := math.Abs(composite-c.Threshold) < 0.05

	categories := struggleCategories(signals, composite, c.Threshold, hasDisagreement, grayZone, diagBlur, diagContrast)

	return Composite{
		Score:              composite,
		Weights:            weights,
		Disagreements:      disagreements,
		HasDisagreement:    hasDisagreement,
		InGrayZone:         grayZone,
		BelowFloor:         belowFloor,
		StruggleCategories: categories,
	}
}

// Flagged reports whether a page should be flagged given its composite.
func (c Composite) Flagged(threshold float64) bool {
	return c.Score < threshold || c.BelowFloor
}

func weightsFor(signals map[string]result.SignalResult) map[string]float64 {
	_, hasConf := signals["confidence"]
	if hasConf {
		return map[string]float64{"garbled": 0.4, "dictionary": 0.3, "confidence": 0.3}
	}
	return map[string]float64{"garbled": 0.55, "dictionary": 0.45}
}

func pairwiseDisagreements(signals map[string]result.SignalResult) []result.SignalDisagreement {
	names := make([]string, 0, len(signals))
	for n := range signals {
		names = append(names, n)
	}
	sort.Strings(names)

	var out []result.SignalDisagreement
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := signals[names[i]], signals[names[j]]
			out = append(out, result.SignalDisagreement{
				A: names[i], B: names[j], Magnitude: math.Abs(a.Score - b.Score),
			})
		}
	}
	return out
}

func struggleCategories(signals map[string]result.SignalResult, composite, threshold float64, hasDisagreement, grayZone bool, blur, contrast *float64) map[string]bool {
	cats := make(map[string]bool)

	garbled, hasGarbled := signals["garbled"]
	dictionary, hasDictionary := signals["dictionary"]
	confidence, hasConfidence := signals["confidence"]

	if blur != nil && contrast != nil {
		if *blur < 50 || *contrast < 0.1 {
			cats["bad_scan"] = true
		}
	} else if hasConfidence && hasGarbled && confidence.Score < 0.3 && garbled.Score < 0.4 {
		cats["bad_scan"] = true
	}

	if hasGarbled && hasDictionary {
		if garbled.Score < 0.7 && dictionary.Score > 0.5 {
			cats["character_confusion"] = true
		}
		if dictionary.Score < 0.6 && garbled.Score > 0.7 {
			cats["vocabulary_miss"] = true
		}
		if dictionary.Score < 0.4 && garbled.Score > 0.4 && garbled.Score < 0.7 {
			cats["language_confusion"] = true
		}
	}

	if hasConfidence && confidence.Score > 0.7 && composite < threshold {
		cats["layout_error"] = true
	}

	if hasDisagreement {
		cats["signal_disagreement"] = true
	}
	if grayZone {
		cats["gray_zone"] = true
	}

	return cats
}

// MarkSuryaInsufficient adds the surya_insufficient category, used only by
// Phase 2 when a re-scored page remains below threshold after Surya ran.
func MarkSuryaInsufficient(cats map[string]bool) {
	cats["surya_insufficient"] = true
}
