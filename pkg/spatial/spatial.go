// Package spatial indexes edge polylines and planar faces in an R-tree so
// the analysis can pick the edge under a cursor and probe through plate
// material for thickness estimates.
package spatial

import (
	"math"
	"sort"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

// R-tree fan-out.
const (
	minChildren = 2
	maxChildren = 8
)

// minPad keeps flat boxes from collapsing to zero volume.
const minPad = 1e-6

func rect(lo, hi v3.Vec, pad float64) rtreego.Rect {
	if pad < minPad {
		pad = minPad
	}
	r, _ := rtreego.NewRectFromPoints(
		rtreego.Point{lo.X - pad, lo.Y - pad, lo.Z - pad},
		rtreego.Point{hi.X + pad, hi.Y + pad, hi.Z + pad},
	)
	return r
}

func minVec(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxVec(a, b v3.Vec) v3.Vec {
	return v3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// ---------------------------------------------------------------------------
// Edge picking
// ---------------------------------------------------------------------------

type segment struct {
	edge   kernel.EdgeID
	a, b   v3.Vec
	bounds rtreego.Rect
}

func (s *segment) Bounds() rtreego.Rect { return s.bounds }

// closest returns the point of the segment nearest p.
func (s *segment) closest(p v3.Vec) v3.Vec {
	ab := s.b.Sub(s.a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return s.a
	}
	t := p.Sub(s.a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return s.a.Add(ab.MulScalar(t))
}

// EdgeHit is the result of a pick query.
type EdgeHit struct {
	Edge     kernel.EdgeID
	Distance float64
	Point    v3.Vec // closest point on the edge polyline
}

// EdgeIndex finds the edge nearest a point.
type EdgeIndex struct {
	tree *rtreego.Rtree
	n    int
}

// NewEdgeIndex indexes each edge by the segments of its sampled polyline.
func NewEdgeIndex(paths map[kernel.EdgeID][]v3.Vec) *EdgeIndex {
	ids := make([]kernel.EdgeID, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var items []rtreego.Spatial
	for _, id := range ids {
		pts := paths[id]
		if len(pts) == 1 {
			pts = []v3.Vec{pts[0], pts[0]}
		}
		for i := 0; i+1 < len(pts); i++ {
			a, b := pts[i], pts[i+1]
			items = append(items, &segment{edge: id, a: a, b: b, bounds: rect(minVec(a, b), maxVec(a, b), 0)})
		}
	}
	return &EdgeIndex{tree: rtreego.NewTree(3, minChildren, maxChildren, items...), n: len(items)}
}

// Nearest returns the edge closest to p within radius. Equidistant edges
// resolve to the lower edge id.
func (ix *EdgeIndex) Nearest(p v3.Vec, radius float64) (EdgeHit, bool) {
	if ix == nil || ix.n == 0 || radius <= 0 {
		return EdgeHit{}, false
	}
	query := rect(p, p, radius)
	best := EdgeHit{Distance: math.Inf(1)}
	found := false
	for _, obj := range ix.tree.SearchIntersect(query) {
		s := obj.(*segment)
		q := s.closest(p)
		d := kernel.Distance(p, q)
		if d > radius {
			continue
		}
		if !found || d < best.Distance || (d == best.Distance && s.edge < best.Edge) {
			best = EdgeHit{Edge: s.edge, Distance: d, Point: q}
			found = true
		}
	}
	return best, found
}

// ---------------------------------------------------------------------------
// Thickness probing
// ---------------------------------------------------------------------------

// PlanarFace is a face entry for the probe index.
type PlanarFace struct {
	Face   kernel.FaceID
	Origin v3.Vec
	Normal v3.Vec // outward unit normal
	Bounds sdf.Box3
}

type faceItem struct {
	PlanarFace
	bounds rtreego.Rect
}

func (f *faceItem) Bounds() rtreego.Rect { return f.bounds }

// ProbeHit is the nearest opposite wall found by a probe.
type ProbeHit struct {
	Face     kernel.FaceID
	Distance float64
}

// parallelCos is the minimum alignment between the probe direction and the
// outward normal of the wall it exits through (about 5 degrees).
const parallelCos = 0.996

// FaceIndex answers ray probes against planar faces.
type FaceIndex struct {
	tree *rtreego.Rtree
	n    int
	pad  float64
}

// NewFaceIndex indexes planar faces by their bounds grown by pad.
func NewFaceIndex(faces []PlanarFace, pad float64) *FaceIndex {
	if pad < minPad {
		pad = minPad
	}
	items := make([]rtreego.Spatial, 0, len(faces))
	for _, f := range faces {
		items = append(items, &faceItem{PlanarFace: f, bounds: rect(f.Bounds.Min, f.Bounds.Max, pad)})
	}
	return &FaceIndex{tree: rtreego.NewTree(3, minChildren, maxChildren, items...), n: len(items), pad: pad}
}

// Probe casts a ray from origin along the unit direction dir and returns
// the nearest face, other than from, that the ray leaves the material
// through: a planar face whose outward normal is aligned with dir.
func (ix *FaceIndex) Probe(from kernel.FaceID, origin, dir v3.Vec, maxDist float64) (ProbeHit, bool) {
	if ix == nil || ix.n == 0 || maxDist <= 0 {
		return ProbeHit{}, false
	}
	end := origin.Add(dir.MulScalar(maxDist))
	query := rect(minVec(origin, end), maxVec(origin, end), ix.pad)

	best := ProbeHit{Distance: math.Inf(1)}
	found := false
	for _, obj := range ix.tree.SearchIntersect(query) {
		f := obj.(*faceItem)
		if f.Face == from {
			continue
		}
		cos := f.Normal.Dot(dir)
		if cos < parallelCos {
			continue
		}
		t := f.Origin.Sub(origin).Dot(f.Normal) / cos
		if t <= ix.pad || t > maxDist {
			continue
		}
		hit := origin.Add(dir.MulScalar(t))
		if !inside(hit, f.PlanarFace.Bounds, ix.pad) {
			continue
		}
		if !found || t < best.Distance || (t == best.Distance && f.Face < best.Face) {
			best = ProbeHit{Face: f.Face, Distance: t}
			found = true
		}
	}
	return best, found
}

func inside(p v3.Vec, b sdf.Box3, pad float64) bool {
	return p.X >= b.Min.X-pad && p.X <= b.Max.X+pad &&
		p.Y >= b.Min.Y-pad && p.Y <= b.Max.Y+pad &&
		p.Z >= b.Min.Z-pad && p.Z <= b.Max.Z+pad
}
