// Package diagnostics assembles PageDiagnostics from quality-signal results
// plus optional gated image-quality metrics and engine diffs.
package diagnostics

import (
	"strings"

	"github.com/local/hybridocr/internal/compositor"
	"github.com/local/hybridocr/internal/result"
)

// Builder assembles a result.PageDiagnostics for one page.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

// Build assembles the always-on diagnostics fields from the signal results
// and composite, plus postprocess counters. Gated fields are attached by the
// caller via SetGated once diagnostics mode is confirmed on.
func (b *Builder) Build(signals map[string]result.SignalResult, comp compositor.Composite, postprocessCounts map[string]int) *result.PageDiagnostics {
	scores := make(map[string]float64, len(signals))
	details := make(map[string]map[string]any, len(signals))
	for name, sig := range signals {
		scores[name] = sig.Score
		if sig.Details != nil {
			details[name] = sig.Details
		}
	}

	return &result.PageDiagnostics{
		SignalScores:          scores,
		SignalDetails:         details,
		CompositeWeights:      comp.Weights,
		SignalDisagreements:   comp.Disagreements,
		HasSignalDisagreement: comp.HasDisagreement,
		PostprocessCounts:     postprocessCounts,
		StruggleCategories:    comp.StruggleCategories,
	}
}

// SetGated attaches the diagnostics-mode-only fields in place.
func SetGated(d *result.PageDiagnostics, iq *result.ImageQuality, tesseractText string, diff *result.EngineDiff) {
	d.ImageQuality = iq
	d.TesseractText = tesseractText
	d.EngineDiff = diff
}

// Diff computes a word-level structural comparison between the fast-engine
// text and the neural-engine text for a page, using a simple longest-common-
// subsequence-based alignment over whitespace tokens.
func Diff(oldText, newText string) result.EngineDiff {
	oldWords := strings.Fields(oldText)
	newWords := strings.Fields(newText)

	ops := diffWords(oldWords, newWords)

	var d result.EngineDiff
	for _, op := range ops {
		switch op.kind {
		case opAdd:
			d.Additions = append(d.Additions, op.newWord)
		case opDelete:
			d.Deletions = append(d.Deletions, op.oldWord)
		case opSubstitute:
			d.Substitutions = append(d.Substitutions, result.Substitution{Old: op.oldWord, New: op.newWord})
		}
	}
	d.Summary = result.DiffSummary{
		Additions:     len(d.Additions),
		Deletions:     len(d.Deletions),
		Substitutions: len(d.Substitutions),
	}
	return d
}

type diffKind int

const (
	opAdd diffKind = iota
	opDelete
	opSubstitute
)

type diffOp struct {
	kind    diffKind
	oldWord string
	newWord string
}

// diffWords aligns two word sequences via classic LCS dynamic programming,
// then walks the table backward to recover an edit script (in forward
// order) and collapses each non-matching run into substitute/delete/add
// operations.
func diffWords(a, b []string) []diffOp {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else if lcs[i-1][j] >= lcs[i][j-1] {
				lcs[i][j] = lcs[i-1][j]
			} else {
				lcs[i][j] = lcs[i][j-1]
			}
		}
	}

	type tag int
	const (
		tagMatch tag = iota
		tagOldOnly
		tagNewOnly
	)
	type event struct {
		t   tag
		old string
		new string
	}

	var reversed []event
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			reversed = append(reversed, event{t: tagMatch, old: a[i-1], new: b[j-1]})
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			reversed = append(reversed, event{t: tagNewOnly, new: b[j-1]})
			j--
		default:
			reversed = append(reversed, event{t: tagOldOnly, old: a[i-1]})
			i--
		}
	}
	// Walked backward; reverse to get forward order.
	for l, r := 0, len(reversed)-1; l < r; l, r = l+1, r-1 {
		reversed[l], reversed[r] = reversed[r], reversed[l]
	}

	var ops []diffOp
	var pendingOld, pendingNew []string
	flush := func() {
		for len(pendingOld) > 0 && len(pendingNew) > 0 {
			ops = append(ops, diffOp{kind: opSubstitute, oldWord: pendingOld[0], newWord: pendingNew[0]})
			pendingOld = pendingOld[1:]
			pendingNew = pendingNew[1:]
		}
		for _, w := range pendingOld {
			ops = append(ops, diffOp{kind: opDelete, oldWord: w})
		}
		for _, w := range pendingNew {
			ops = append(ops, diffOp{kind: opAdd, newWord: w})
		}
		pendingOld, pendingNew = nil, nil
	}

	for _, ev := range reversed {
		switch ev.t {
		case tagMatch:
			flush()
		case tagOldOnly:
			pendingOld = append(pendingOld, ev.old)
		case tagNewOnly:
			pendingNew = append(pendingNew, ev.new)
		}
	}
	flush()
	return ops
}
