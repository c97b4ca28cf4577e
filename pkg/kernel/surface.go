package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SurfaceKind tags the carrier of a face.
type SurfaceKind int

const (
	SurfacePlane SurfaceKind = iota
	SurfaceCylinder
	SurfaceSphere
	SurfaceOther
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfacePlane:
		return "plane"
	case SurfaceCylinder:
		return "cylinder"
	case SurfaceSphere:
		return "sphere"
	case SurfaceOther:
		return "other"
	default:
		return "unknown"
	}
}

// Surface is the carrier of a face. The set of implementations is closed:
// Plane, Cylinder, Sphere and OtherSurface.
type Surface interface {
	Kind() SurfaceKind
	// NormalAt returns the unit surface normal at the projection of p
	// onto the surface. It reports false where the normal is undefined.
	NormalAt(p v3.Vec) (v3.Vec, bool)
	// Project returns the closest surface point to p.
	Project(p v3.Vec) v3.Vec
	surface() // marker method restricting implementations to this package
}

// Plane passes through Origin with the given Normal. XDir fixes the
// in-plane parameterization.
type Plane struct {
	Origin v3.Vec
	Normal v3.Vec
	XDir   v3.Vec
}

func (Plane) surface() {}
func (Plane) Kind() SurfaceKind { return SurfacePlane }

func (pl Plane) NormalAt(v3.Vec) (v3.Vec, bool) {
	return Unit(pl.Normal)
}

func (pl Plane) Project(p v3.Vec) v3.Vec {
	n, ok := Unit(pl.Normal)
	if !ok {
		return p
	}
	return p.Sub(n.MulScalar(p.Sub(pl.Origin).Dot(n)))
}

// Basis returns the in-plane (x, y) axes.
func (pl Plane) Basis() (v3.Vec, v3.Vec) {
	return frame(pl.Normal, pl.XDir)
}

// Cylinder is the set of points at Radius from the axis line through
// Origin. The natural normal points away from the axis.
type Cylinder struct {
	Origin v3.Vec
	Axis   v3.Vec
	XDir   v3.Vec
	Radius float64
}

func (Cylinder) surface() {}
func (Cylinder) Kind() SurfaceKind { return SurfaceCylinder }

func (c Cylinder) radial(p v3.Vec) (v3.Vec, v3.Vec, bool) {
	a, ok := Unit(c.Axis)
	if !ok {
		return v3.Vec{}, v3.Vec{}, false
	}
	rel := p.Sub(c.Origin)
	foot := c.Origin.Add(a.MulScalar(rel.Dot(a)))
	r, ok := Unit(p.Sub(foot))
	return foot, r, ok
}

func (c Cylinder) NormalAt(p v3.Vec) (v3.Vec, bool) {
	_, r, ok := c.radial(p)
	return r, ok
}

func (c Cylinder) Project(p v3.Vec) v3.Vec {
	foot, r, ok := c.radial(p)
	if !ok {
		return p
	}
	return foot.Add(r.MulScalar(c.Radius))
}

// Sphere is centred at Center. The natural normal points outward.
type Sphere struct {
	Center v3.Vec
	Radius float64
}

func (Sphere) surface() {}
func (Sphere) Kind() SurfaceKind { return SurfaceSphere }

func (s Sphere) NormalAt(p v3.Vec) (v3.Vec, bool) {
	return Unit(p.Sub(s.Center))
}

func (s Sphere) Project(p v3.Vec) v3.Vec {
	n, ok := Unit(p.Sub(s.Center))
	if !ok {
		return p
	}
	return s.Center.Add(n.MulScalar(s.Radius))
}

// NormalFunc evaluates a unit normal near a point.
type NormalFunc func(p v3.Vec) (v3.Vec, bool)

// OtherSurface carries a surface the kernel has no closed form for.
// Project is the identity.
type OtherSurface struct {
	Normal NormalFunc
}

func (OtherSurface) surface() {}
func (OtherSurface) Kind() SurfaceKind { return SurfaceOther }

func (o OtherSurface) NormalAt(p v3.Vec) (v3.Vec, bool) {
	if o.Normal == nil {
		return v3.Vec{}, false
	}
	return o.Normal(p)
}

func (o OtherSurface) Project(p v3.Vec) v3.Vec { return p }
