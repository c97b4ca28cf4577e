package topology

import "fmt"

// Summary counts edges by topological role.
type Summary struct {
	TotalEdges         int `json:"total_edges"`
	BoundaryEdges      int `json:"boundary_edges"`
	InternalEdges      int `json:"internal_edges"`
	PotentialWeldEdges int `json:"potential_weld_edges"`
	NonManifoldEdges   int `json:"non_manifold_edges"`
	SeamEdges          int `json:"seam_edges"`
	FreeEdges          int `json:"free_edges"`
	TotalFaces         int `json:"total_faces"`
	TotalVertices      int `json:"total_vertices"`
}

// Summary tallies the index.
func (ix *Index) Summary() Summary {
	s := Summary{
		TotalEdges:    len(ix.entries),
		TotalFaces:    ix.faces,
		TotalVertices: ix.vertices,
	}
	for _, e := range ix.entries {
		switch {
		case e.FaceCount() == 0:
			s.FreeEdges++
		case e.IsBoundary():
			s.BoundaryEdges++
		case e.IsInternal():
			s.InternalEdges++
		}
		if e.IsPotentialWeld() {
			s.PotentialWeldEdges++
		}
		if e.NonManifold {
			s.NonManifoldEdges++
		}
		if e.Seam {
			s.SeamEdges++
		}
	}
	return s
}

// Severity indicates whether a finding describes a broken model or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // model cannot be analysed
	SeverityWarning                 // affected edges are skipped
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finding codes.
const (
	CodeBoundaryEdge    = "BOUNDARY_EDGE"
	CodeFreeEdge        = "FREE_EDGE"
	CodeNonManifoldEdge = "NON_MANIFOLD_EDGE"
	CodeSeamEdge        = "SEAM_EDGE"
	CodeDegenerateEdge  = "DEGENERATE_EDGE"
)

// Finding is a single topology observation about one edge.
type Finding struct {
	Edge     string   `json:"edge"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (f Finding) Error() string {
	if f.Edge == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Edge, f.Message)
}

// Findings reports edges that are excluded from weld detection for
// topological reasons, in ascending edge order.
func (ix *Index) Findings() []Finding {
	var out []Finding
	for _, e := range ix.entries {
		switch {
		case e.FaceCount() == 0:
			out = append(out, Finding{
				Edge:     e.Edge.String(),
				Code:     CodeFreeEdge,
				Message:  "edge is not used by any face",
				Severity: SeverityWarning,
			})
		case e.NonManifold:
			out = append(out, Finding{
				Edge:     e.Edge.String(),
				Code:     CodeNonManifoldEdge,
				Message:  fmt.Sprintf("edge is shared by %d faces", e.FaceCount()),
				Severity: SeverityWarning,
			})
		case e.IsBoundary():
			out = append(out, Finding{
				Edge:     e.Edge.String(),
				Code:     CodeBoundaryEdge,
				Message:  "edge bounds a single face (open shell)",
				Severity: SeverityWarning,
			})
		case e.Seam:
			out = append(out, Finding{
				Edge:     e.Edge.String(),
				Code:     CodeSeamEdge,
				Message:  "seam edge of a closed face",
				Severity: SeverityInfo,
			})
		}
	}
	return out
}
