package geometry

import (
	"fmt"

	"github.com/chazu/weldscan/pkg/kernel"
)

// EdgeDescriptor is the full inspection record of one edge.
type EdgeDescriptor struct {
	ID            string         `json:"id"`
	Hash          string         `json:"hash"`
	Geometry      EdgeGeometry   `json:"geometry"`
	Topology      TopologyInfo   `json:"topology"`
	Vertices      VertexSet      `json:"vertices"`
	AdjacentFaces []FaceGeometry `json:"adjacent_faces"`
	Properties    Properties     `json:"properties"`
	Parametric    []ParamSample  `json:"parametric"`
	Quality       Quality        `json:"quality"`
	Dihedral      *Dihedral      `json:"dihedral,omitempty"`
}

type TopologyInfo struct {
	AdjacentFaces []string `json:"adjacent_faces"`
	FaceCount     int      `json:"face_count"`
	IsBoundary    bool     `json:"is_boundary"`
	IsInternal    bool     `json:"is_internal"`
	IsSeam        bool     `json:"is_seam"`
	IsNonManifold bool     `json:"is_non_manifold"`
}

type VertexInfo struct {
	ID        string  `json:"id"`
	Point     Point   `json:"point"`
	Tolerance float64 `json:"tolerance"`
}

type VertexSet struct {
	Start    VertexInfo  `json:"start"`
	End      *VertexInfo `json:"end,omitempty"` // nil for closed edges
	Count    int         `json:"count"`
	IsClosed bool        `json:"is_closed"`
}

type Derivatives struct {
	D1      Point `json:"d1"`
	D2      Point `json:"d2"`
	Tangent Point `json:"tangent"`
}

type Properties struct {
	BBox      Box         `json:"bbox"`
	Tolerance float64     `json:"tolerance"`
	Centroid  Point       `json:"centroid"`
	AtMiddle  Derivatives `json:"derivatives_at_middle"`
}

type ParamSample struct {
	T     float64 `json:"t"`
	Point Point   `json:"point"`
}

type Quality struct {
	LengthCategory     string `json:"length_category"`
	IsSmallEdge        bool   `json:"is_small_edge"`
	CurvatureVariation *Stats `json:"curvature_variation,omitempty"`
}

// Descriptor tuning.
const (
	parametricSamples = 10
	curvatureSamples  = 20
	SmallEdgeLength   = 1e-6
)

// LengthCategory buckets an edge length.
func LengthCategory(l float64) string {
	switch {
	case l < 0.001:
		return "very_short"
	case l < 0.1:
		return "short"
	case l < 10:
		return "medium"
	default:
		return "long"
	}
}

// Describe assembles the full descriptor of an edge.
func (d *Describer) Describe(id kernel.EdgeID) (EdgeDescriptor, error) {
	ent, ok := d.index.Entry(id)
	if !ok {
		return EdgeDescriptor{}, fmt.Errorf("geometry: %w: %s", kernel.ErrUnknownEntity, id)
	}
	e, err := d.shape.Edge(id)
	if err != nil {
		return EdgeDescriptor{}, fmt.Errorf("geometry: %w", err)
	}
	eg := describeEdge(id, e)
	out := EdgeDescriptor{
		ID:       id.String(),
		Hash:     PersistentHash(eg),
		Geometry: eg,
		Topology: TopologyInfo{
			FaceCount:     ent.FaceCount(),
			IsBoundary:    ent.IsBoundary(),
			IsInternal:    ent.IsInternal(),
			IsSeam:        ent.Seam,
			IsNonManifold: ent.NonManifold,
		},
		AdjacentFaces: []FaceGeometry{},
	}
	for _, f := range ent.Faces {
		out.Topology.AdjacentFaces = append(out.Topology.AdjacentFaces, f.String())
		if g, ok := d.faces[f]; ok {
			out.AdjacentFaces = append(out.AdjacentFaces, g)
		}
	}

	if out.Vertices, err = d.vertexSet(ent.Start, ent.End); err != nil {
		return EdgeDescriptor{}, err
	}
	out.Properties = properties(e, eg)
	for _, t := range samples(e.First, e.Last, parametricSamples-1) {
		p, _, _ := e.Curve.Eval(t)
		out.Parametric = append(out.Parametric, ParamSample{T: t, Point: P(p)})
	}
	out.Quality = Quality{
		LengthCategory: LengthCategory(eg.Length),
		IsSmallEdge:    eg.Length < SmallEdgeLength,
	}
	if eg.Kind != kernel.CurveLine {
		var ks []float64
		for _, t := range samples(e.First, e.Last, curvatureSamples-1) {
			_, d1, d2 := e.Curve.Eval(t)
			if k, ok := curvature(d1, d2); ok {
				ks = append(ks, k)
			}
		}
		if len(ks) > 0 {
			st := Summarize(ks)
			out.Quality.CurvatureVariation = &st
		}
	}
	if ent.IsPotentialWeld() && !eg.IsDegenerated {
		if dh, err := d.dihedral(ent, eg); err == nil {
			out.Dihedral = &dh
		}
	}
	return out, nil
}

func (d *Describer) vertexSet(start, end kernel.VertexID) (VertexSet, error) {
	info := func(id kernel.VertexID) (VertexInfo, error) {
		v, err := d.shape.Vertex(id)
		if err != nil {
			return VertexInfo{}, fmt.Errorf("geometry: %w", err)
		}
		return VertexInfo{ID: id.String(), Point: P(v.Point), Tolerance: v.Tolerance}, nil
	}
	s, err := info(start)
	if err != nil {
		return VertexSet{}, err
	}
	vs := VertexSet{Start: s, Count: 1, IsClosed: start == end}
	if start != end {
		e, err := info(end)
		if err != nil {
			return VertexSet{}, err
		}
		vs.End = &e
		vs.Count = 2
	}
	return vs, nil
}

// properties computes bounds, the length-weighted centroid and the
// derivatives at the middle parameter.
func properties(e kernel.EdgeData, eg EdgeGeometry) Properties {
	pts := polyline(e)
	p := Properties{BBox: boxOf(pts), Tolerance: e.Tolerance}

	var total float64
	var moment Point
	for i := 0; i+1 < len(pts); i++ {
		l := pts[i+1].Sub(pts[i]).Length()
		m := pts[i].Add(pts[i+1]).MulScalar(0.5)
		total += l
		moment[0] += m.X * l
		moment[1] += m.Y * l
		moment[2] += m.Z * l
	}
	if total > 0 {
		p.Centroid = Point{moment[0] / total, moment[1] / total, moment[2] / total}
	} else {
		p.Centroid = eg.Middle
	}

	_, d1, d2 := e.Curve.Eval(eg.Mid())
	p.AtMiddle = Derivatives{D1: P(d1), D2: P(d2)}
	if t, ok := kernel.Unit(d1); ok {
		p.AtMiddle.Tangent = P(t)
	}
	return p
}
