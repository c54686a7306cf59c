package signals

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/local/hybridocr/internal/result"
)

// DictionarySignal classifies tokens as known, unknown-but-structured, or
// unknown-garbled against a bundled word list loaded once at construction.
type DictionarySignal struct {
	words map[string]struct{}
}

// NewDictionarySignal loads the word list from r (one word per line) into an
// immutable set.
func NewDictionarySignal(r io.Reader) (*DictionarySignal, error) {
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" {
			continue
		}
		words[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &DictionarySignal{words: words}, nil
}

func (d *DictionarySignal) Score(text string) result.SignalResult {
	tokens := strings.Fields(text)
	total := len(tokens)
	if total == 0 {
		return result.SignalResult{Name: "dictionary", Score: 0, Passed: false, Details: map[string]any{
			"known": 0, "structured": 0, "garbled": 0, "total_words": 0,
		}}
	}

	var known, structured, garbled int
	for _, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,;:!?\"'()[]"))
		if lower == "" {
			total--
			continue
		}
		if _, ok := d.words[lower]; ok {
			known++
			continue
		}
		if isStructured(lower) {
			structured++
		} else {
			garbled++
		}
	}
	if total <= 0 {
		return result.SignalResult{Name: "dictionary", Score: 0, Passed: false, Details: map[string]any{
			"known": 0, "structured": 0, "garbled": 0, "total_words": 0,
		}}
	}

	score := (float64(known)*1.0 + float64(structured)*0.5) / float64(total)
	return result.SignalResult{
		Name:   "dictionary",
		Score:  score,
		Passed: score >= 0.4,
		Details: map[string]any{
			"known":       known,
			"structured":  structured,
			"garbled":     garbled,
			"total_words": total,
		},
	}
}

// isStructured applies the three heuristics from the spec: a plausible vowel
// ratio, no rune repeated more than ~4 times, and a high unique-character
// ratio.
func isStructured(lower string) bool {
	runes := []rune(lower)
	if len(runes) == 0 {
		return false
	}

	var vowels int
	counts := make(map[rune]int)
	unique := make(map[rune]bool)
	for _, r := range runes {
		if isVowel(r) {
			vowels++
		}
		counts[r]++
		unique[r] = true
	}

	vowelRatio := float64(vowels) / float64(len(runes))
	if vowelRatio < 0.1 || vowelRatio > 0.8 {
		return false
	}
	for _, c := range counts {
		if c > 4 {
			return false
		}
	}
	uniqueRatio := float64(len(unique)) / float64(len(runes))
	return uniqueRatio > 0.4
}

func isVowel(r rune) bool {
	r = unicode.ToLower(r)
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y', 'ä', 'ö', 'ü':
		return true
	}
	return false
}
