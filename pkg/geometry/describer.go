// Package geometry measures edges and faces of a B-Rep shape: arc length,
// curvature, face area and normals, the dihedral angle across an edge,
// plate thickness and a persistent edge hash.
package geometry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/spatial"
	"github.com/chazu/weldscan/pkg/topology"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrDegenerateGeometry marks an edge whose geometry cannot be evaluated.
// It is reported per edge and never aborts an analysis.
var ErrDegenerateGeometry = errors.New("geometry: degenerate geometry")

// Describer computes descriptors for one shape. Face records and the
// thickness probe index are built once by NewDescriber; afterwards every
// method is read-only and safe for concurrent use.
type Describer struct {
	shape    kernel.Shape
	index    *topology.Index
	faceData map[kernel.FaceID]kernel.FaceData
	faces    map[kernel.FaceID]FaceGeometry
	probe    *spatial.FaceIndex
	bounds   Bounds
}

// NewDescriber measures every face of s and indexes the planar ones.
func NewDescriber(s kernel.Shape, ix *topology.Index) (*Describer, error) {
	d := &Describer{
		shape:    s,
		index:    ix,
		faceData: make(map[kernel.FaceID]kernel.FaceData),
		faces:    make(map[kernel.FaceID]FaceGeometry),
	}
	var planar []spatial.PlanarFace
	var pad float64
	for _, fid := range s.Faces() {
		f, err := s.Face(fid)
		if err != nil {
			return nil, fmt.Errorf("geometry: %w", err)
		}
		g, err := describeFace(s, fid, f)
		if err != nil {
			return nil, err
		}
		d.faceData[fid] = f
		d.faces[fid] = g
		if f.Tolerance > pad {
			pad = f.Tolerance
		}
		if pl, ok := f.Surface.(kernel.Plane); ok {
			n, ok := f.OutwardNormal(pl.Origin)
			if !ok {
				continue
			}
			planar = append(planar, spatial.PlanarFace{
				Face:   fid,
				Origin: pl.Origin,
				Normal: n,
				Bounds: g.BBox.Box3(),
			})
		}
	}
	sort.Slice(planar, func(i, j int) bool { return planar[i].Face < planar[j].Face })
	d.probe = spatial.NewFaceIndex(planar, pad)

	b, err := shapeBounds(s)
	if err != nil {
		return nil, err
	}
	d.bounds = b
	return d, nil
}

// Index returns the adjacency index the describer was built with.
func (d *Describer) Index() *topology.Index { return d.index }

// Face returns the measurements of a face.
func (d *Describer) Face(id kernel.FaceID) (FaceGeometry, bool) {
	g, ok := d.faces[id]
	return g, ok
}

// Edge measures an edge.
func (d *Describer) Edge(id kernel.EdgeID) (EdgeGeometry, error) {
	e, err := d.shape.Edge(id)
	if err != nil {
		return EdgeGeometry{}, fmt.Errorf("geometry: %w", err)
	}
	return describeEdge(id, e), nil
}

// Dihedral returns the angle across an edge with exactly two faces.
func (d *Describer) Dihedral(ent topology.Entry, eg EdgeGeometry) (Dihedral, error) {
	return d.dihedral(ent, eg)
}

// Polyline samples an edge for display and picking.
func (d *Describer) Polyline(id kernel.EdgeID) ([]v3.Vec, error) {
	e, err := d.shape.Edge(id)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	return polyline(e), nil
}

// Bounds returns the model bounding box.
func (d *Describer) Bounds() Bounds { return d.bounds }

// PlateThickness estimates the thickness of the plate that face f belongs
// to near the middle of an edge, by probing from just inside the face
// along its inward normal to the nearest opposite planar wall. It returns
// nil when no wall is found (sheet bodies, curved plates).
func (d *Describer) PlateThickness(ent topology.Entry, f kernel.FaceID, eg EdgeGeometry) *float64 {
	fd, ok := d.faceData[f]
	if !ok {
		return nil
	}
	u, ok := ent.UseIn(f)
	if !ok {
		return nil
	}
	e, err := d.shape.Edge(ent.Edge)
	if err != nil {
		return nil
	}
	p, d1, _ := e.Curve.Eval(eg.Mid())
	tan, ok := kernel.Unit(d1)
	if !ok {
		return nil
	}
	if u.Reversed {
		tan = tan.Neg()
	}
	n, in, ok := faceNormal(fd, p, tan, 0)
	if !ok {
		return nil
	}
	step := thicknessInset * eg.Length
	if step > thicknessInsetMax {
		step = thicknessInsetMax
	}
	origin := fd.Surface.Project(p.Add(in.MulScalar(step)))
	hit, ok := d.probe.Probe(f, origin, n.Neg(), d.bounds.Diagonal()+1)
	if !ok {
		return nil
	}
	t := hit.Distance
	return &t
}

// The thickness probe starts this far into the face from the edge.
const (
	thicknessInset    = 0.1
	thicknessInsetMax = 1.0
)
