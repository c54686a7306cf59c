package result

import (
	"encoding/json"
	"testing"
)

func TestComputeEngineAggregate(t *testing.T) {
	cases := []struct {
		name   string
		pages  []PageResult
		expect Engine
	}{
		{"all existing", []PageResult{{Engine: EngineExisting}, {Engine: EngineExisting}}, EngineExisting},
		{"mixed", []PageResult{{Engine: EngineExisting}, {Engine: EngineTesseract}}, EngineMixed},
		{"all none", []PageResult{{Engine: EngineNone}, {Engine: EngineNone}}, EngineNone},
		{"none ignored", []PageResult{{Engine: EngineNone}, {Engine: EngineSurya}}, EngineSurya},
		{"empty", nil, EngineNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ComputeEngine(c.pages); got != c.expect {
				t.Errorf("ComputeEngine(%v) = %v, want %v", c.pages, got, c.expect)
			}
		})
	}
}

func TestComputeEngineAssociative(t *testing.T) {
	a := []PageResult{{Engine: EngineExisting}}
	b := []PageResult{{Engine: EngineNone}}
	c := []PageResult{{Engine: EngineExisting}}

	combined := append(append(append([]PageResult{}, a...), b...), c...)
	if got := ComputeEngine(combined); got != EngineExisting {
		t.Errorf("combined aggregate = %v, want %v", got, EngineExisting)
	}
	// Concatenating with the "none" unit must not change the result.
	if got := ComputeEngine(append(append([]PageResult{}, a...), b...)); got != ComputeEngine(a) {
		t.Errorf("none unit changed aggregate: got %v want %v", got, ComputeEngine(a))
	}
}

func TestFileResultJSONRoundTrip(t *testing.T) {
	fr := FileResult{
		Filename: "doc.pdf",
		Success:  true,
		Engine:   EngineMixed,
		QualityScore: 0.9,
		PageCount: 2,
		Pages: []PageResult{
			{PageNumber: 0, Status: StatusGood, QualityScore: 0.95, Engine: EngineExisting},
			{
				PageNumber: 1, Status: StatusFlagged, QualityScore: 0.5, Engine: EngineTesseract, Flagged: true,
				Diagnostics: &PageDiagnostics{
					SignalScores:       map[string]float64{"garbled": 0.4},
					CompositeWeights:   map[string]float64{"garbled": 0.55, "dictionary": 0.45},
					StruggleCategories: map[string]bool{"vocabulary_miss": true},
				},
			},
		},
		TimeSeconds:  1.23,
		PhaseTimings: map[string]float64{"tesseract": 1.0},
	}

	data, err := json.Marshal(fr)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back FileResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if back.Filename != fr.Filename || back.Engine != fr.Engine || len(back.Pages) != len(fr.Pages) {
		t.Fatalf("round trip mismatch: got %+v", back)
	}
	if back.Pages[1].Diagnostics == nil || !back.Pages[1].Diagnostics.StruggleCategories["vocabulary_miss"] {
		t.Fatalf("struggle categories lost in round trip: %+v", back.Pages[1].Diagnostics)
	}
}

func TestBatchResultFinalizeSortsAndCounts(t *testing.T) {
	b := BatchResult{Files: []FileResult{
		{Filename: "z.pdf", Success: true},
		{Filename: "a.pdf", Success: false},
	}}
	b.Finalize()

	if b.Files[0].Filename != "a.pdf" || b.Files[1].Filename != "z.pdf" {
		t.Fatalf("files not sorted by filename: %+v", b.Files)
	}
	if b.TotalFiles != 2 || b.Successful != 1 || b.Failed != 1 {
		t.Fatalf("counts wrong: %+v", b)
	}
}

func TestFileResultSortPagesNoGaps(t *testing.T) {
	fr := FileResult{Pages: []PageResult{{PageNumber: 2}, {PageNumber: 0}, {PageNumber: 1}}}
	fr.SortPages()
	for i, p := range fr.Pages {
		if p.PageNumber != i {
			t.Fatalf("page %d has number %d after sort", i, p.PageNumber)
		}
	}
}
