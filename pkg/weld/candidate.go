package weld

import (
	"github.com/chazu/weldscan/pkg/geometry"
	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/topology"
)

// Candidate is an edge that passed filtering, with everything the rules
// need to classify it.
type Candidate struct {
	Edge     kernel.EdgeID
	ID       string
	Hash     string
	Length   float64
	Position geometry.Point
	Faces    [2]geometry.FaceGeometry
	Dihedral geometry.Dihedral
	// Thickness of each plate near the edge; nil when it could not be
	// estimated.
	Thickness [2]*float64
	// Diagnostic is set when the candidate could not be measured. Such a
	// candidate is reported as NOT_A_WELD.
	Diagnostic string
}

// Angle returns the dihedral angle in degrees.
func (c Candidate) Angle() float64 { return c.Dihedral.Angle }

// Rejection names why an edge is not a candidate.
type Rejection string

const (
	Accepted         Rejection = ""
	RejectFaceCount  Rejection = "face_count"
	RejectSeam       Rejection = "seam"
	RejectDegenerate Rejection = "degenerate"
	RejectNoiseFloor Rejection = "below_noise_floor"
)

// Eligible applies the candidate conditions to one edge: exactly two
// faces, not a seam, not degenerate and at least noiseFloor long.
func Eligible(ent topology.Entry, eg geometry.EdgeGeometry, noiseFloor float64) Rejection {
	switch {
	case ent.Seam:
		return RejectSeam
	case ent.FaceCount() != 2:
		return RejectFaceCount
	case eg.IsDegenerated:
		return RejectDegenerate
	case eg.Length < noiseFloor:
		return RejectNoiseFloor
	}
	return Accepted
}

// Selection is one accepted edge and its measured geometry.
type Selection struct {
	Entry    topology.Entry
	Geometry geometry.EdgeGeometry
}

// FilterResult is the outcome of Filter.
type FilterResult struct {
	Selected []Selection
	Rejected map[Rejection]int
	// Degenerate lists every edge, candidate or not, that is degenerate or
	// cannot be measured, in ascending order.
	Degenerate []kernel.EdgeID
}

// MeasureFunc returns the geometry of an edge.
type MeasureFunc func(kernel.EdgeID) (geometry.EdgeGeometry, error)

// Filter walks the index in ascending edge order and keeps the eligible
// edges. It is a pure function of its inputs, so it can be rerun whenever
// the noise floor changes. Edges whose geometry cannot be measured count
// as degenerate.
func Filter(ix *topology.Index, measure MeasureFunc, noiseFloor float64) FilterResult {
	res := FilterResult{Rejected: make(map[Rejection]int)}
	if ix == nil {
		return res
	}
	for _, ent := range ix.Entries() {
		eg, err := measure(ent.Edge)
		if err != nil || eg.IsDegenerated {
			res.Degenerate = append(res.Degenerate, ent.Edge)
		}
		r := RejectDegenerate
		if err == nil || ent.Seam || ent.FaceCount() != 2 {
			r = Eligible(ent, eg, noiseFloor)
		}
		if r == Accepted {
			res.Selected = append(res.Selected, Selection{Entry: ent, Geometry: eg})
			continue
		}
		res.Rejected[r]++
	}
	return res
}
