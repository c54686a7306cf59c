package signals

import "github.com/local/hybridocr/internal/result"

// WordConfidence is one per-word OCR data record, produced by rendering a
// page to a pixmap and running a word-level OCR data extractor.
type WordConfidence struct {
	Text string
	Conf float64 // 0..100
}

// ConfidenceSignal scores a page from its per-word OCR confidence records.
type ConfidenceSignal struct{}

func NewConfidenceSignal() *ConfidenceSignal { return &ConfidenceSignal{} }

func (c *ConfidenceSignal) Score(words []WordConfidence) result.SignalResult {
	var weightedSum, totalWeight, minConf float64
	var count int
	minConf = 100

	for _, w := range words {
		if w.Conf <= 0 || w.Text == "" {
			continue
		}
		weight := float64(len(w.Text))
		if weight < 1 {
			weight = 1
		}
		weightedSum += (w.Conf / 100) * weight
		totalWeight += weight
		count++
		if w.Conf < minConf {
			minConf = w.Conf
		}
	}

	if count == 0 {
		return result.SignalResult{
			Name:   "confidence",
			Score:  0.5,
			Passed: true,
			Details: map[string]any{
				"word_count": 0, "mean_conf": 0.0, "min_conf": 0.0,
			},
		}
	}

	score := weightedSum / totalWeight
	return result.SignalResult{
		Name:   "confidence",
		Score:  score,
		Passed: score >= 0.3,
		Details: map[string]any{
			"word_count": count,
			"mean_conf":  score * 100,
			"min_conf":   minConf,
		},
	}
}
