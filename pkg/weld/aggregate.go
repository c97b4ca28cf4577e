package weld

import (
	"sort"

	"github.com/chazu/weldscan/pkg/geometry"
	"github.com/chazu/weldscan/pkg/kernel"
)

// Result is the classification of one candidate.
type Result struct {
	Edge            kernel.EdgeID  `json:"-"`
	ID              string         `json:"id"`
	Hash            string         `json:"hash"`
	Type            Type           `json:"type"`
	Subtype         Subtype        `json:"subtype,omitempty"`
	Angle           float64        `json:"angle"`
	Length          float64        `json:"length"`
	Position        geometry.Point `json:"position"`
	Confidence      float64        `json:"confidence"`
	QualityScore    float64        `json:"quality_score"`
	Plate1Thickness *float64       `json:"plate1_thickness,omitempty"`
	Plate2Thickness *float64       `json:"plate2_thickness,omitempty"`
	Diagnostic      string         `json:"diagnostic,omitempty"`
}

// IsWeld reports whether the result belongs in the weld list.
func (r Result) IsWeld() bool { return r.Type != NotAWeld }

// Summary counts welds per type. encoding/json writes ByType with sorted
// keys.
type Summary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// TypeCount is one entry of Summary.Counts.
type TypeCount struct {
	Type  string
	Count int
}

// Counts returns ByType sorted by type name.
func (s Summary) Counts() []TypeCount {
	out := make([]TypeCount, 0, len(s.ByType))
	for k, v := range s.ByType {
		out = append(out, TypeCount{Type: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// ReasonDegenerateGeometry is the diagnostic reason of candidates whose
// face normals could not be evaluated.
const ReasonDegenerateGeometry = "degenerate_geometry"

// Diagnostic reports a candidate that could not be classified.
type Diagnostic struct {
	ID      string `json:"id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// AnalysisResult is the serializable outcome of one analysis.
type AnalysisResult struct {
	Summary     Summary      `json:"summary"`
	Welds       []Result     `json:"welds"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Aggregate orders results by edge and summarizes the welds among them.
// NOT_A_WELD results are dropped from the weld list; those carrying a
// diagnostic are listed as diagnostics. The input is not modified.
func Aggregate(results []Result) AnalysisResult {
	sorted := append([]Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Edge < sorted[j].Edge })

	out := AnalysisResult{
		Summary: Summary{ByType: make(map[string]int)},
		Welds:   []Result{},
	}
	for _, r := range sorted {
		if !r.IsWeld() {
			if r.Diagnostic != "" {
				out.Diagnostics = append(out.Diagnostics, Diagnostic{
					ID:      r.ID,
					Reason:  ReasonDegenerateGeometry,
					Message: r.Diagnostic,
				})
			}
			continue
		}
		out.Welds = append(out.Welds, r)
		out.Summary.ByType[r.Type.String()]++
		out.Summary.Total++
	}
	return out
}
