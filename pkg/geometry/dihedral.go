package geometry

import (
	"fmt"
	"math"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/topology"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Convexity describes the material side of an edge.
type Convexity int

const (
	Flat    Convexity = iota // faces are coplanar
	Convex                   // outside corner of the material
	Concave                  // inside corner of the material
)

func (c Convexity) String() string {
	switch c {
	case Flat:
		return "flat"
	case Convex:
		return "convex"
	case Concave:
		return "concave"
	default:
		return fmt.Sprintf("Convexity(%d)", int(c))
	}
}

func (c Convexity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// FlatTolerance is how close to 180 degrees an angle must be for the
// faces to count as coplanar.
const FlatTolerance = 1e-3

// dihedralSamples are the fractions of the parameter range sampled when
// the edge or one of its faces is curved.
var dihedralSamples = []float64{0.1, 0.3, 0.5, 0.7, 0.9}

// Dihedral is the angle between the two faces of an edge.
type Dihedral struct {
	// Angle is 180 minus the angle between the outward normals, in
	// [0, 180]: 90 for perpendicular faces, 180 for coplanar ones.
	Angle float64 `json:"angle"`
	// MaterialAngle is measured through the material, in (0, 360).
	MaterialAngle float64   `json:"material_angle"`
	Convexity     Convexity `json:"convexity"`
	Variation     Stats     `json:"curvature_variation"`
	Samples       int       `json:"samples"`
}

// normalOffset is how far into each face normals are evaluated, relative
// to the edge length and capped in model units.
const (
	normalOffsetFraction = 1e-3
	normalOffsetMax      = 1e-2
)

// dihedral samples both face normals along the edge. It fails with
// ErrDegenerateGeometry when no sample yields two normals.
func (d *Describer) dihedral(ent topology.Entry, eg EdgeGeometry) (Dihedral, error) {
	if len(ent.Faces) != 2 {
		return Dihedral{}, fmt.Errorf("%w: %s has %d faces", ErrDegenerateGeometry, ent.Edge, len(ent.Faces))
	}
	e, err := d.shape.Edge(ent.Edge)
	if err != nil {
		return Dihedral{}, fmt.Errorf("geometry: %w", err)
	}
	var faces [2]kernel.FaceData
	var reversed [2]bool
	for i, fid := range ent.Faces {
		faces[i] = d.faceData[fid]
		u, _ := ent.UseIn(fid)
		reversed[i] = u.Reversed
	}

	fractions := dihedralSamples
	if eg.Kind == kernel.CurveLine && faces[0].Surface.Kind() == kernel.SurfacePlane &&
		faces[1].Surface.Kind() == kernel.SurfacePlane {
		fractions = []float64{0.5}
	}
	offset := math.Min(normalOffsetMax, normalOffsetFraction*eg.Length)

	var angles, sides []float64
	for _, f := range fractions {
		t := e.First + f*(e.Last-e.First)
		p, d1, _ := e.Curve.Eval(t)
		tan, ok := kernel.Unit(d1)
		if !ok {
			continue
		}
		var n, in [2]v3.Vec
		good := true
		for i := range faces {
			tu := tan
			if reversed[i] {
				tu = tu.Neg()
			}
			n[i], in[i], ok = faceNormal(faces[i], p, tu, offset)
			if !ok {
				good = false
				break
			}
		}
		if !good {
			continue
		}
		angles = append(angles, 180-kernel.AngleBetween(n[0], n[1]))
		sides = append(sides, n[0].Dot(in[1]))
	}
	if len(angles) == 0 {
		return Dihedral{}, fmt.Errorf("%w: no face normals along %s", ErrDegenerateGeometry, ent.Edge)
	}

	st := Summarize(angles)
	out := Dihedral{Angle: st.Mean, Variation: st, Samples: len(angles)}
	side := Summarize(sides).Mean
	switch {
	case 180-out.Angle <= FlatTolerance:
		out.Convexity = Flat
		out.MaterialAngle = 180
	case side < 0:
		out.Convexity = Convex
		out.MaterialAngle = out.Angle
	default:
		out.Convexity = Concave
		out.MaterialAngle = 360 - out.Angle
	}
	return out, nil
}

// faceNormal evaluates the outward normal of f a small step inside the
// face from the edge point p. tu is the edge tangent in the face's wire
// direction; n x tu points into the face.
func faceNormal(f kernel.FaceData, p, tu v3.Vec, offset float64) (v3.Vec, v3.Vec, bool) {
	n0, ok := f.OutwardNormal(p)
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	in, ok := kernel.Unit(n0.Cross(tu))
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	q := f.Surface.Project(p.Add(in.MulScalar(offset)))
	n, ok := f.OutwardNormal(q)
	if !ok {
		return n0, in, true
	}
	return n, in, true
}
