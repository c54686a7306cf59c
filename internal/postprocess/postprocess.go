// Package postprocess applies a chain of text transforms to OCR output:
// dehyphenation, paragraph join, Unicode normalization and punctuation
// fixes. Each transform increments an optional counter map so the total
// change counts can be surfaced in page diagnostics. Grounded on the line-
// joining heuristic in the PDF text extractor's fixBrokenLines.
package postprocess

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Counts tracks how many changes each transform made.
type Counts struct {
	Dehyphenations        int
	ParagraphJoins        int
	UnicodeNormalizations int
	PunctuationFixes      int
}

func (c *Counts) AsMap() map[string]int {
	return map[string]int{
		"dehyphenations":         c.Dehyphenations,
		"paragraph_joins":        c.ParagraphJoins,
		"unicode_normalizations": c.UnicodeNormalizations,
		"punctuation_fixes":      c.PunctuationFixes,
	}
}

// DehyphenWhitelist holds compound terms that must survive intact even
// though they contain a hyphen at a line break, e.g. "Heidegger-Jaspers".
var DehyphenWhitelist = map[string]bool{
	"heidegger-jaspers": true,
}

var lineBreakHyphenRe = regexp.MustCompile(`(\p{L}+)-\n(\p{Ll}+)`)

// Run applies the full chain in order and returns the transformed text,
// incrementing counts if non-nil.
func Run(text string, counts *Counts) string {
	text = Dehyphenate(text, counts)
	text = JoinParagraphLines(text, counts)
	text = NormalizeUnicode(text, counts)
	text = FixPunctuation(text, counts)
	return text
}

// Dehyphenate joins words split across a line break by a hyphen, unless the
// resulting compound is in the whitelist.
func Dehyphenate(text string, counts *Counts) string {
	return lineBreakHyphenRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := lineBreakHyphenRe.FindStringSubmatch(m)
		whole := parts[1] + "-" + parts[2]
		if DehyphenWhitelist[strings.ToLower(whole)] {
			return m
		}
		if counts != nil {
			counts.Dehyphenations++
		}
		return parts[1] + parts[2]
	})
}

// JoinParagraphLines merges wrapped lines within a paragraph into a single
// line while preserving blank-line paragraph breaks, mirroring the
// continuation heuristic in fixBrokenLines: a line that doesn't end in
// terminal punctuation and whose next line starts lowercase is a wrap.
func JoinParagraphLines(text string, counts *Counts) string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		for i < len(lines)-1 {
			trimmed := strings.TrimSpace(line)
			next := strings.TrimSpace(lines[i+1])
			if trimmed == "" || next == "" || endsSentence(trimmed) || !startsLower(next) {
				break
			}
			line = trimmed + " " + next
			if counts != nil {
				counts.ParagraphJoins++
			}
			i++
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func endsSentence(s string) bool {
	last := s[len(s)-1]
	return last == '.' || last == '!' || last == '?' || last == ':' || last == ';'
}

func startsLower(s string) bool {
	r := []rune(s)
	if len(r) == 0 {
		return false
	}
	first := r[0]
	return first >= 'a' && first <= 'z'
}

// NormalizeUnicode applies NFC normalization and counts a change if the
// result differs from the input.
func NormalizeUnicode(text string, counts *Counts) string {
	normed := norm.NFC.String(text)
	if normed != text && counts != nil {
		counts.UnicodeNormalizations++
	}
	return normed
}

var (
	smartQuoteOpen  = regexp.MustCompile(`"(\S)`)
	smartQuoteClose = regexp.MustCompile(`(\S)"`)
	multiSpaceRe    = regexp.MustCompile(`[ \t]{2,}`)
)

// FixPunctuation substitutes straight quotes with curly quotes and collapses
// runs of spaces/tabs.
func FixPunctuation(text string, counts *Counts) string {
	fixed := smartQuoteOpen.ReplaceAllString(text, "“$1")
	fixed = smartQuoteClose.ReplaceAllString(fixed, "$1”")
	if fixed != text && counts != nil {
		counts.PunctuationFixes++
	}
	before := fixed
	fixed = multiSpaceRe.ReplaceAllString(fixed, " ")
	if fixed != before && counts != nil {
		counts.PunctuationFixes++
	}
	return fixed
}
