// Package brep is an in-memory boundary-representation kernel. Shapes are
// assembled with a Builder, validated once, and are immutable afterwards,
// so every query is safe for concurrent use.
package brep

import (
	"errors"
	"fmt"

	"github.com/chazu/weldscan/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Shape = (*Shape)(nil)

// ErrInvalidTopology is returned by Build when references or wire loops
// are inconsistent.
var ErrInvalidTopology = errors.New("brep: invalid topology")

// DefaultTolerance is the geometric tolerance given to new entities.
const DefaultTolerance = 1e-7

// propsDeflection is the angular step used when curved faces are
// integrated by triangulation.
const propsDeflection = 0.02

// Shape is an immutable B-Rep built by a Builder.
type Shape struct {
	faces    []kernel.FaceData
	edges    []kernel.EdgeData
	vertices []kernel.VertexData
	props    []kernel.MassProps
}

// Empty returns a shape with no entities.
func Empty() *Shape {
	return &Shape{}
}

func (s *Shape) Faces() []kernel.FaceID {
	ids := make([]kernel.FaceID, len(s.faces))
	for i := range s.faces {
		ids[i] = kernel.FaceID(i)
	}
	return ids
}

func (s *Shape) Edges() []kernel.EdgeID {
	ids := make([]kernel.EdgeID, len(s.edges))
	for i := range s.edges {
		ids[i] = kernel.EdgeID(i)
	}
	return ids
}

func (s *Shape) Vertices() []kernel.VertexID {
	ids := make([]kernel.VertexID, len(s.vertices))
	for i := range s.vertices {
		ids[i] = kernel.VertexID(i)
	}
	return ids
}

func (s *Shape) Face(id kernel.FaceID) (kernel.FaceData, error) {
	if int(id) < 0 || int(id) >= len(s.faces) {
		return kernel.FaceData{}, fmt.Errorf("%w: %s", kernel.ErrUnknownEntity, id)
	}
	return s.faces[id], nil
}

func (s *Shape) Edge(id kernel.EdgeID) (kernel.EdgeData, error) {
	if int(id) < 0 || int(id) >= len(s.edges) {
		return kernel.EdgeData{}, fmt.Errorf("%w: %s", kernel.ErrUnknownEntity, id)
	}
	return s.edges[id], nil
}

func (s *Shape) Vertex(id kernel.VertexID) (kernel.VertexData, error) {
	if int(id) < 0 || int(id) >= len(s.vertices) {
		return kernel.VertexData{}, fmt.Errorf("%w: %s", kernel.ErrUnknownEntity, id)
	}
	return s.vertices[id], nil
}

func (s *Shape) FaceProps(id kernel.FaceID) (kernel.MassProps, error) {
	if int(id) < 0 || int(id) >= len(s.props) {
		return kernel.MassProps{}, fmt.Errorf("%w: %s", kernel.ErrUnknownEntity, id)
	}
	return s.props[id], nil
}

func (s *Shape) Triangulate(id kernel.FaceID, linearDeflection, angularDeflection float64) (*kernel.Mesh, error) {
	f, err := s.Face(id)
	if err != nil {
		return nil, err
	}
	m, err := s.triangulate(f, deflection{linear: linearDeflection, angular: angularDeflection})
	if err != nil {
		return nil, fmt.Errorf("brep: triangulate %s: %w", id, err)
	}
	m.Name = id.String()
	return m, nil
}

// validate checks every reference and that each wire is a closed loop.
func (s *Shape) validate() error {
	for i, e := range s.edges {
		if e.Curve == nil {
			return fmt.Errorf("%w: %s has no curve", ErrInvalidTopology, kernel.EdgeID(i))
		}
		if !s.hasVertex(e.Start) || !s.hasVertex(e.End) {
			return fmt.Errorf("%w: %s references a missing vertex", ErrInvalidTopology, kernel.EdgeID(i))
		}
	}
	for i, f := range s.faces {
		fid := kernel.FaceID(i)
		if f.Surface == nil {
			return fmt.Errorf("%w: %s has no surface", ErrInvalidTopology, fid)
		}
		if len(f.Wires) == 0 {
			return fmt.Errorf("%w: %s has no wires", ErrInvalidTopology, fid)
		}
		for w, wire := range f.Wires {
			if err := s.checkLoop(wire); err != nil {
				return fmt.Errorf("%w: %s wire %d: %v", ErrInvalidTopology, fid, w, err)
			}
		}
	}
	return nil
}

func (s *Shape) hasVertex(id kernel.VertexID) bool {
	return int(id) >= 0 && int(id) < len(s.vertices)
}

func (s *Shape) checkLoop(w kernel.Wire) error {
	if len(w.Uses) == 0 {
		return errors.New("empty wire")
	}
	for i, u := range w.Uses {
		if int(u.Edge) < 0 || int(u.Edge) >= len(s.edges) {
			return fmt.Errorf("missing edge %s", u.Edge)
		}
		next := w.Uses[(i+1)%len(w.Uses)]
		if int(next.Edge) < 0 || int(next.Edge) >= len(s.edges) {
			return fmt.Errorf("missing edge %s", next.Edge)
		}
		_, end := s.useVertices(u)
		start, _ := s.useVertices(next)
		if end != start {
			return fmt.Errorf("%s does not connect to %s", u.Edge, next.Edge)
		}
	}
	return nil
}

// useVertices returns the start and end vertex of an edge use in
// traversal order.
func (s *Shape) useVertices(u kernel.EdgeUse) (kernel.VertexID, kernel.VertexID) {
	e := s.edges[u.Edge]
	if u.Reversed {
		return e.End, e.Start
	}
	return e.Start, e.End
}
