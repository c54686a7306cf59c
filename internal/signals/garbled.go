// Package signals implements the three independent quality scorers: garbled,
// dictionary and confidence. Each maps text (and, for confidence, a
// per-word OCR data list) to a result.SignalResult.
package signals

import (
	"regexp"
	"strings"

	"github.com/local/hybridocr/internal/result"
)

var (
	consonantClusterRe = regexp.MustCompile(`(?i)[bcdfghjklmnpqrstvwxz]{6,}`)
	letterDigitMixRe    = regexp.MustCompile(`[a-zA-Z][0-9]|[0-9][a-zA-Z]`)
	controlCharRe       = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	isbnLikeRe          = regexp.MustCompile(`^(?:ISBN[-\s]?)?[\d-]{9,17}$`)
	footnoteMarkerRe    = regexp.MustCompile(`^[\[(]?\d{1,3}[\])]?$`)

	germanSuffixes = []string{"keit", "heit", "ung", "schaft", "lich", "isch", "tum", "nis"}
)

// Whitelist of domain vocabulary that must never be classified as garbled,
// covering German, French, Greek and Latin academic terms commonly found in
// philosophy texts.
var garbledWhitelist = map[string]bool{
	"kant": true, "hegel": true, "husserl": true, "heidegger": true,
	"dasein": true, "geist": true, "wesen": true, "dialektik": true,
	"phänomenologie": true, "weltanschauung": true,
	"logos": true, "telos": true, "praxis": true, "episteme": true,
	"aufheben": true, "sein": true, "zeit": true,
}

// GarbledSignal scores text by the fraction of tokens classified as garbled.
type GarbledSignal struct{}

func NewGarbledSignal() *GarbledSignal { return &GarbledSignal{} }

func (g *GarbledSignal) Score(text string) result.SignalResult {
	tokens := strings.Fields(text)
	total := len(tokens)
	if total == 0 {
		return result.SignalResult{Name: "garbled", Score: 0, Passed: false, Details: map[string]any{
			"garbled_count": 0, "total_words": 0,
		}}
	}

	var garbledCount int
	sample := make([]string, 0, 10)
	for i, tok := range tokens {
		if isGarbledToken(tok) {
			garbledCount++
			if len(sample) < 10 {
				sample = append(sample, contextSnippet(tokens, i))
			}
		}
	}

	score := 1 - float64(garbledCount)/float64(total)
	return result.SignalResult{
		Name:   "garbled",
		Score:  score,
		Passed: score >= 0.5,
		Details: map[string]any{
			"garbled_count": garbledCount,
			"total_words":   total,
			"samples":       sample,
		},
	}
}

func contextSnippet(tokens []string, i int) string {
	start := i - 2
	if start < 0 {
		start = 0
	}
	end := i + 3
	if end > len(tokens) {
		end = len(tokens)
	}
	return strings.Join(tokens[start:end], " ")
}

func isGarbledToken(tok string) bool {
	lower := strings.ToLower(strings.Trim(tok, ".,;:!?\"'()[]"))
	if lower == "" {
		return false
	}
	if garbledWhitelist[lower] {
		return false
	}
	if isbnLikeRe.MatchString(tok) || footnoteMarkerRe.MatchString(tok) {
		return false
	}
	if controlCharRe.MatchString(tok) {
		return true
	}
	if letterDigitMixRe.MatchString(interior(tok)) {
		return true
	}
	if hasRepeatedRun(lower) {
		return true
	}
	if hasGermanSuffix(lower) {
		return false
	}
	if consonantClusterRe.MatchString(lower) {
		return true
	}
	return false
}

// interior strips the first and last rune, since digit/letter mixing at the
// edges (e.g. a trailing footnote digit) is not a garbling signal.
func interior(tok string) string {
	r := []rune(tok)
	if len(r) <= 2 {
		return ""
	}
	return string(r[1 : len(r)-1])
}

// hasRepeatedRun reports whether any character occurs three or more times in a row.
func hasRepeatedRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r != prev {
			prev, run = r, 0
		}
		if run++; run >= 3 {
			return true
		}
	}
	return false
}

func hasGermanSuffix(lower string) bool {
	for _, suf := range germanSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}
