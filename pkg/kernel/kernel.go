// Package kernel defines the boundary-representation (B-Rep) interface the
// weld analysis consumes. A Shape is a read-only graph of faces, edges and
// vertices with exact curve and surface carriers. Implementations (brep)
// own the data; analysis code only queries it.
package kernel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrUnknownEntity is returned when a face, edge or vertex id does not
// belong to the shape.
var ErrUnknownEntity = errors.New("kernel: unknown entity")

// FaceID identifies a face within one shape.
type FaceID int

// EdgeID identifies an edge within one shape.
type EdgeID int

// VertexID identifies a vertex within one shape.
type VertexID int

func (id FaceID) String() string   { return fmt.Sprintf("FACE_%d", int(id)+1) }
func (id EdgeID) String() string   { return fmt.Sprintf("EDGE_%d", int(id)+1) }
func (id VertexID) String() string { return fmt.Sprintf("VERTEX_%d", int(id)+1) }

// ParseEdgeID accepts a display id ("EDGE_3") or a bare 1-based number.
func ParseEdgeID(s string) (EdgeID, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "EDGE_"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("kernel: bad edge id %q", s)
	}
	return EdgeID(n - 1), nil
}

// EdgeUse is one occurrence of an edge in a face boundary. Reversed means
// the wire traverses the edge from Last to First.
type EdgeUse struct {
	Edge     EdgeID
	Reversed bool
}

// Wire is a closed loop of edge uses. Outer loops run counter-clockwise
// when viewed against the face's outward normal; inner loops run clockwise.
type Wire struct {
	Uses  []EdgeUse
	Outer bool
}

// FaceData is the topological and geometric record of a face.
type FaceData struct {
	Surface   Surface
	Reversed  bool // outward normal is the negated surface normal
	Wires     []Wire
	Tolerance float64
}

// OutwardNormal evaluates the face's outward normal near p.
func (f FaceData) OutwardNormal(p v3.Vec) (v3.Vec, bool) {
	n, ok := f.Surface.NormalAt(p)
	if !ok {
		return v3.Vec{}, false
	}
	if f.Reversed {
		n = n.Neg()
	}
	return n, true
}

// EdgeData is the record of an edge: its carrier curve restricted to
// [First, Last] and its bounding vertices. Closed edges have Start == End.
type EdgeData struct {
	Curve     Curve
	First     float64
	Last      float64
	Start     VertexID
	End       VertexID
	Tolerance float64
}

// VertexData is a point with its tolerance radius.
type VertexData struct {
	Point     v3.Vec
	Tolerance float64
}

// MassProps holds surface integration results for a face.
type MassProps struct {
	Area     float64
	Centroid v3.Vec
}

// Shape is a read-only B-Rep solid or shell. All methods must be safe for
// concurrent use once the shape is built.
type Shape interface {
	// Traversal. Enumeration order is implementation-defined.
	Faces() []FaceID
	Edges() []EdgeID
	Vertices() []VertexID

	// Entity records.
	Face(id FaceID) (FaceData, error)
	Edge(id EdgeID) (EdgeData, error)
	Vertex(id VertexID) (VertexData, error)

	// FaceProps integrates area and centroid over the trimmed face.
	FaceProps(id FaceID) (MassProps, error)

	// Triangulate meshes a face for display.
	Triangulate(id FaceID, linearDeflection, angularDeflection float64) (*Mesh, error)
}

// BeadMesher turns a polyline along a weld edge into a preview solid mesh.
type BeadMesher interface {
	Bead(path []v3.Vec, radius float64) (*Mesh, error)
}
