package brep

import (
	"fmt"
	"math"

	"github.com/chazu/weldscan/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// vertexQuantum is the grid Vertex snaps to when merging coincident points.
const vertexQuantum = 1e-6

type vertexKey [3]int64

type lineKey struct {
	a, b kernel.VertexID
}

// Builder assembles a Shape. Vertex and Line merge coincident entities so
// polygon faces that share a boundary share the edge.
type Builder struct {
	tol      float64
	shape    Shape
	vertices map[vertexKey]kernel.VertexID
	lines    map[lineKey]kernel.EdgeID
}

// NewBuilder returns a Builder using DefaultTolerance.
func NewBuilder() *Builder {
	return NewBuilderWithTolerance(DefaultTolerance)
}

// NewBuilderWithTolerance returns a Builder whose entities carry tol.
func NewBuilderWithTolerance(tol float64) *Builder {
	return &Builder{
		tol:      tol,
		vertices: make(map[vertexKey]kernel.VertexID),
		lines:    make(map[lineKey]kernel.EdgeID),
	}
}

// Vertex returns the vertex at p, creating it unless one already sits on
// the same quantized position.
func (b *Builder) Vertex(p v3.Vec) kernel.VertexID {
	key := vertexKey{
		int64(math.Round(p.X / vertexQuantum)),
		int64(math.Round(p.Y / vertexQuantum)),
		int64(math.Round(p.Z / vertexQuantum)),
	}
	if id, ok := b.vertices[key]; ok {
		return id
	}
	id := kernel.VertexID(len(b.shape.vertices))
	b.shape.vertices = append(b.shape.vertices, kernel.VertexData{Point: p, Tolerance: b.tol})
	b.vertices[key] = id
	return id
}

// Point returns the position of a vertex added to this builder.
func (b *Builder) Point(id kernel.VertexID) v3.Vec {
	return b.shape.vertices[id].Point
}

// Edge adds an edge on an arbitrary curve. It is never merged.
func (b *Builder) Edge(c kernel.Curve, first, last float64, start, end kernel.VertexID) kernel.EdgeID {
	id := kernel.EdgeID(len(b.shape.edges))
	b.shape.edges = append(b.shape.edges, kernel.EdgeData{
		Curve:     c,
		First:     first,
		Last:      last,
		Start:     start,
		End:       end,
		Tolerance: b.tol,
	})
	return id
}

// Line returns the straight edge joining two vertices, reusing an
// existing one in either direction.
func (b *Builder) Line(start, end kernel.VertexID) kernel.EdgeID {
	if id, ok := b.lines[lineKey{start, end}]; ok {
		return id
	}
	if id, ok := b.lines[lineKey{end, start}]; ok {
		return id
	}
	pa, pb := b.Point(start), b.Point(end)
	dir, _ := kernel.Unit(pb.Sub(pa))
	id := b.Edge(kernel.Line{Origin: pa, Dir: dir}, 0, kernel.Distance(pa, pb), start, end)
	b.lines[lineKey{start, end}] = id
	return id
}

// Use returns the edge use that traverses the line from start to end.
func (b *Builder) Use(start, end kernel.VertexID) kernel.EdgeUse {
	id := b.Line(start, end)
	return kernel.EdgeUse{Edge: id, Reversed: b.shape.edges[id].Start != start}
}

// Face adds a face bounded by the given wires.
func (b *Builder) Face(s kernel.Surface, reversed bool, wires ...kernel.Wire) kernel.FaceID {
	id := kernel.FaceID(len(b.shape.faces))
	b.shape.faces = append(b.shape.faces, kernel.FaceData{
		Surface:   s,
		Reversed:  reversed,
		Wires:     wires,
		Tolerance: b.tol,
	})
	return id
}

// Loop turns a closed point sequence into a wire of line uses.
func (b *Builder) Loop(outer bool, pts ...v3.Vec) kernel.Wire {
	ids := make([]kernel.VertexID, len(pts))
	for i, p := range pts {
		ids[i] = b.Vertex(p)
	}
	w := kernel.Wire{Outer: outer}
	for i := range ids {
		w.Uses = append(w.Uses, b.Use(ids[i], ids[(i+1)%len(ids)]))
	}
	return w
}

// Polygon adds a planar face. The points run counter-clockwise seen from
// outside; the outward normal follows from their order.
func (b *Builder) Polygon(pts ...v3.Vec) kernel.FaceID {
	return b.PolygonWithHoles(pts)
}

// PolygonWithHoles adds a planar face with inner loops. Holes run
// clockwise seen from outside.
func (b *Builder) PolygonWithHoles(outer []v3.Vec, holes ...[]v3.Vec) kernel.FaceID {
	n := newellNormal(outer)
	unit, ok := kernel.Unit(n)
	if !ok {
		unit = v3.Vec{Z: 1}
	}
	var xdir v3.Vec
	if len(outer) > 1 {
		xdir = outer[1].Sub(outer[0])
	}
	var origin v3.Vec
	if len(outer) > 0 {
		origin = outer[0]
	}
	wires := []kernel.Wire{b.Loop(true, outer...)}
	for _, h := range holes {
		wires = append(wires, b.Loop(false, h...))
	}
	return b.Face(kernel.Plane{Origin: origin, Normal: unit, XDir: xdir}, false, wires...)
}

// Build validates the topology, integrates face properties and returns the
// finished shape. The builder must not be used afterwards.
func (b *Builder) Build() (*Shape, error) {
	s := &Shape{
		faces:    b.shape.faces,
		edges:    b.shape.edges,
		vertices: b.shape.vertices,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.props = make([]kernel.MassProps, len(s.faces))
	for i, f := range s.faces {
		p, err := s.massProps(f)
		if err != nil {
			return nil, fmt.Errorf("brep: integrate %s: %w", kernel.FaceID(i), err)
		}
		s.props[i] = p
	}
	return s, nil
}

// MustBuild is Build for fixtures; it panics on invalid topology.
func (b *Builder) MustBuild() *Shape {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// newellNormal returns the area-weighted normal of a closed polygon.
func newellNormal(pts []v3.Vec) v3.Vec {
	var n v3.Vec
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n
}
