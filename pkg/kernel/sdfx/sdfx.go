// Package sdfx implements kernel.BeadMesher with the
// github.com/deadsy/sdfx SDF-based CAD library. A bead is a chain of
// capsules swept along the polyline of a weld edge and rendered with
// marching cubes.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.BeadMesher = (*BeadMesher)(nil)

// DefaultCells controls marching cubes resolution along the longest axis.
const DefaultCells = 64

// ErrEmptyPath is returned for paths without any non-degenerate segment.
var ErrEmptyPath = errors.New("sdfx: bead path has no length")

// BeadMesher renders weld beads. The zero value uses DefaultCells.
type BeadMesher struct {
	Cells int
}

// New returns a BeadMesher with the given marching cubes resolution.
// Non-positive values select DefaultCells.
func New(cells int) *BeadMesher {
	if cells <= 0 {
		cells = DefaultCells
	}
	return &BeadMesher{Cells: cells}
}

// Solid builds the bead SDF: one capsule per polyline segment.
func Solid(path []v3.Vec, radius float64) (sdf.SDF3, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sdfx: bead radius must be positive, got %g", radius)
	}
	var parts []sdf.SDF3
	for i := 1; i < len(path); i++ {
		c, err := capsule(path[i-1], path[i], radius)
		if err != nil {
			return nil, err
		}
		if c != nil {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return nil, ErrEmptyPath
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return sdf.Union3D(parts...), nil
}

// capsule joins a and b with a rounded cylinder. A zero-length segment
// yields nil.
func capsule(a, b v3.Vec, radius float64) (sdf.SDF3, error) {
	d := b.Sub(a)
	length := d.Length()
	if length < 1e-9 {
		return nil, nil
	}
	body, err := sdf.Cylinder3D(length, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	capA, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	capB := sdf.Transform3D(capA, sdf.Translate3d(v3.Vec{Z: length / 2}))
	capA = sdf.Transform3D(capA, sdf.Translate3d(v3.Vec{Z: -length / 2}))
	s := sdf.Union3D(body, capA, capB)

	// Cylinder3D runs along Z through the origin; tilt Z onto d, then move
	// to the segment midpoint.
	u := d.MulScalar(1 / length)
	theta := math.Acos(math.Max(-1, math.Min(1, u.Z)))
	phi := math.Atan2(u.Y, u.X)
	mid := a.Add(d.MulScalar(0.5))
	m := sdf.Translate3d(mid).Mul(sdf.RotateZ(phi)).Mul(sdf.RotateY(theta))
	return sdf.Transform3D(s, m), nil
}

// Bead meshes the capsule chain along path.
func (b *BeadMesher) Bead(path []v3.Vec, radius float64) (*kernel.Mesh, error) {
	s, err := Solid(path, radius)
	if err != nil {
		return nil, err
	}
	cells := b.Cells
	if cells <= 0 {
		cells = DefaultCells
	}
	return toMesh(s, cells), nil
}

// toMesh converts a solid to a triangle mesh using marching cubes.
func toMesh(s sdf.SDF3, cells int) *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3
	mesh := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for _, tri := range triangles {
		n := tri.Normal()
		var idx [3]uint32
		for j := 0; j < 3; j++ {
			idx[j] = mesh.AddVertex(tri[j], n)
		}
		mesh.AddTriangle(idx[0], idx[1], idx[2])
	}
	return mesh
}
