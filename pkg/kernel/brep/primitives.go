package brep

import (
	"math"

	"github.com/chazu/weldscan/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Box adds the six outward-facing faces of an axis-aligned box.
func (b *Builder) Box(min, max v3.Vec) []kernel.FaceID {
	p := func(x, y, z int) v3.Vec {
		pick := func(i int, lo, hi float64) float64 {
			if i == 0 {
				return lo
			}
			return hi
		}
		return v3.Vec{X: pick(x, min.X, max.X), Y: pick(y, min.Y, max.Y), Z: pick(z, min.Z, max.Z)}
	}
	return []kernel.FaceID{
		b.Polygon(p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0)), // bottom
		b.Polygon(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)), // top
		b.Polygon(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)), // front
		b.Polygon(p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0)), // back
		b.Polygon(p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)), // left
		b.Polygon(p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1)), // right
	}
}

// Prism extrudes a counter-clockwise XY profile from z0 by height.
func (b *Builder) Prism(profile []v3.Vec, z0, height float64) []kernel.FaceID {
	n := len(profile)
	bottom := make([]v3.Vec, n)
	top := make([]v3.Vec, n)
	for i, p := range profile {
		bottom[n-1-i] = v3.Vec{X: p.X, Y: p.Y, Z: z0}
		top[i] = v3.Vec{X: p.X, Y: p.Y, Z: z0 + height}
	}
	faces := []kernel.FaceID{b.Polygon(bottom...), b.Polygon(top...)}
	for i := range profile {
		p, q := profile[i], profile[(i+1)%n]
		faces = append(faces, b.Polygon(
			v3.Vec{X: p.X, Y: p.Y, Z: z0},
			v3.Vec{X: q.X, Y: q.Y, Z: z0},
			v3.Vec{X: q.X, Y: q.Y, Z: z0 + height},
			v3.Vec{X: p.X, Y: p.Y, Z: z0 + height},
		))
	}
	return faces
}

// Cylinder adds a closed cylinder standing on base along +Z. The lateral
// face is closed by a seam line that its wire uses twice.
func (b *Builder) Cylinder(base v3.Vec, radius, height float64) []kernel.FaceID {
	axis := v3.Vec{Z: 1}
	xdir := v3.Vec{X: 1}
	topCenter := base.Add(axis.MulScalar(height))
	v0 := b.Vertex(base.Add(xdir.MulScalar(radius)))
	v1 := b.Vertex(topCenter.Add(xdir.MulScalar(radius)))

	bottom := b.Edge(kernel.Circle{Center: base, Axis: axis, XDir: xdir, Radius: radius}, 0, 2*math.Pi, v0, v0)
	top := b.Edge(kernel.Circle{Center: topCenter, Axis: axis, XDir: xdir, Radius: radius}, 0, 2*math.Pi, v1, v1)
	seam := b.Line(v0, v1)

	lateral := b.Face(kernel.Cylinder{Origin: base, Axis: axis, XDir: xdir, Radius: radius}, false, kernel.Wire{
		Outer: true,
		Uses: []kernel.EdgeUse{
			{Edge: bottom},
			{Edge: seam},
			{Edge: top, Reversed: true},
			{Edge: seam, Reversed: true},
		},
	})
	bottomFace := b.Face(kernel.Plane{Origin: base, Normal: axis.Neg(), XDir: xdir}, false,
		kernel.Wire{Outer: true, Uses: []kernel.EdgeUse{{Edge: bottom, Reversed: true}}})
	topFace := b.Face(kernel.Plane{Origin: topCenter, Normal: axis, XDir: xdir}, false,
		kernel.Wire{Outer: true, Uses: []kernel.EdgeUse{{Edge: top}}})
	return []kernel.FaceID{lateral, bottomFace, topFace}
}

// PlatePair adds two rectangular plates sharing an edge of the given
// length along +X from the origin. The first plate lies in z=0 towards +Y;
// the second leaves the shared edge at angle degrees from the first,
// measured across the edge (180 is coplanar).
func (b *Builder) PlatePair(length, width, angle float64) [2]kernel.FaceID {
	rad := angle * math.Pi / 180
	dir := v3.Vec{Y: math.Cos(rad), Z: math.Sin(rad)}
	o := v3.Vec{}
	e := v3.Vec{X: length}
	first := b.Polygon(o, e, e.Add(v3.Vec{Y: width}), o.Add(v3.Vec{Y: width}))
	second := b.Polygon(e, o, o.Add(dir.MulScalar(width)), e.Add(dir.MulScalar(width)))
	return [2]kernel.FaceID{first, second}
}
