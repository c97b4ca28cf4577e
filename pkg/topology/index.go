// Package topology builds the edge adjacency index of a B-Rep shape: which
// faces use each edge, in which direction, and which vertices bound it.
// The index is built in one single-threaded pass and is read-only
// afterwards, so it may be shared by any number of goroutines.
package topology

import (
	"fmt"
	"sort"

	"github.com/chazu/weldscan/pkg/kernel"
)

// FaceUse is one occurrence of an edge in a face's boundary wires.
type FaceUse struct {
	Face     kernel.FaceID
	Reversed bool
}

// Entry is the adjacency record of one edge.
type Entry struct {
	Edge  kernel.EdgeID
	Faces []kernel.FaceID // distinct faces in first-use order
	Uses  []FaceUse       // every occurrence, including both sides of a seam
	Start kernel.VertexID
	End   kernel.VertexID

	Closed      bool // Start == End
	Seam        bool // used twice by the same face
	NonManifold bool // more than two distinct faces
}

// FaceCount returns the number of distinct adjacent faces.
func (e Entry) FaceCount() int { return len(e.Faces) }

// IsBoundary reports whether the edge bounds a single face (an open shell
// border). Seams are not boundaries.
func (e Entry) IsBoundary() bool { return len(e.Faces) == 1 && !e.Seam }

// IsInternal reports whether the edge joins two or more faces.
func (e Entry) IsInternal() bool { return len(e.Faces) >= 2 }

// IsPotentialWeld reports whether the edge has the topology of a weld
// joint: exactly two faces and not a seam.
func (e Entry) IsPotentialWeld() bool { return len(e.Faces) == 2 && !e.Seam }

// UseIn returns the first use of the edge by face f.
func (e Entry) UseIn(f kernel.FaceID) (FaceUse, bool) {
	for _, u := range e.Uses {
		if u.Face == f {
			return u, true
		}
	}
	return FaceUse{}, false
}

// Vertices returns the bounding vertices, one for a closed edge.
func (e Entry) Vertices() []kernel.VertexID {
	if e.Closed {
		return []kernel.VertexID{e.Start}
	}
	return []kernel.VertexID{e.Start, e.End}
}

// Index is the adjacency index of one shape.
type Index struct {
	entries     []Entry
	byEdge      map[kernel.EdgeID]int
	neighbours  map[kernel.FaceID][]kernel.FaceID
	vertexEdges map[kernel.VertexID][]kernel.EdgeID
	faces       int
	vertices    int
}

// Build traverses the shape once and returns its adjacency index. Entries
// are ordered by ascending edge id regardless of the shape's enumeration
// order. A shape with no edges yields an empty index.
func Build(s kernel.Shape) (*Index, error) {
	edgeIDs := append([]kernel.EdgeID(nil), s.Edges()...)
	sort.Slice(edgeIDs, func(i, j int) bool { return edgeIDs[i] < edgeIDs[j] })

	ix := &Index{
		entries:     make([]Entry, 0, len(edgeIDs)),
		byEdge:      make(map[kernel.EdgeID]int, len(edgeIDs)),
		neighbours:  make(map[kernel.FaceID][]kernel.FaceID),
		vertexEdges: make(map[kernel.VertexID][]kernel.EdgeID),
		vertices:    len(s.Vertices()),
	}
	for _, id := range edgeIDs {
		e, err := s.Edge(id)
		if err != nil {
			return nil, fmt.Errorf("topology: %w", err)
		}
		ix.byEdge[id] = len(ix.entries)
		ix.entries = append(ix.entries, Entry{
			Edge:   id,
			Start:  e.Start,
			End:    e.End,
			Closed: e.Start == e.End,
		})
		ix.vertexEdges[e.Start] = append(ix.vertexEdges[e.Start], id)
		if e.End != e.Start {
			ix.vertexEdges[e.End] = append(ix.vertexEdges[e.End], id)
		}
	}

	faceIDs := append([]kernel.FaceID(nil), s.Faces()...)
	sort.Slice(faceIDs, func(i, j int) bool { return faceIDs[i] < faceIDs[j] })
	ix.faces = len(faceIDs)

	for _, fid := range faceIDs {
		f, err := s.Face(fid)
		if err != nil {
			return nil, fmt.Errorf("topology: %w", err)
		}
		for _, w := range f.Wires {
			for _, u := range w.Uses {
				i, ok := ix.byEdge[u.Edge]
				if !ok {
					return nil, fmt.Errorf("topology: %s uses %w %s", fid, kernel.ErrUnknownEntity, u.Edge)
				}
				ent := &ix.entries[i]
				seen := false
				for _, prev := range ent.Uses {
					if prev.Face == fid {
						seen = true
						break
					}
				}
				if seen {
					ent.Seam = true
				} else {
					ent.Faces = append(ent.Faces, fid)
				}
				ent.Uses = append(ent.Uses, FaceUse{Face: fid, Reversed: u.Reversed})
			}
		}
	}

	for i := range ix.entries {
		ent := &ix.entries[i]
		ent.NonManifold = len(ent.Faces) > 2
		for a := range ent.Faces {
			for b := range ent.Faces {
				if a != b {
					ix.link(ent.Faces[a], ent.Faces[b])
				}
			}
		}
	}
	return ix, nil
}

func (ix *Index) link(a, b kernel.FaceID) {
	for _, f := range ix.neighbours[a] {
		if f == b {
			return
		}
	}
	ix.neighbours[a] = append(ix.neighbours[a], b)
}

// Len returns the number of indexed edges.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns all entries in ascending edge order. The slice is shared
// and must not be modified.
func (ix *Index) Entries() []Entry { return ix.entries }

// Entry returns the entry for one edge.
func (ix *Index) Entry(id kernel.EdgeID) (Entry, bool) {
	i, ok := ix.byEdge[id]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// Neighbours returns the faces that share at least one edge with f.
func (ix *Index) Neighbours(f kernel.FaceID) []kernel.FaceID {
	return ix.neighbours[f]
}

// VertexEdges returns the edges bounded by vertex v.
func (ix *Index) VertexEdges(v kernel.VertexID) []kernel.EdgeID {
	return ix.vertexEdges[v]
}

// FaceAdjacency returns the face neighbour map keyed by display id.
func (ix *Index) FaceAdjacency() map[string][]string {
	out := make(map[string][]string, len(ix.neighbours))
	for f, ns := range ix.neighbours {
		names := make([]string, len(ns))
		for i, n := range ns {
			names[i] = n.String()
		}
		out[f.String()] = names
	}
	return out
}

// VertexEdgeMap returns the vertex to edge map keyed by display id.
func (ix *Index) VertexEdgeMap() map[string][]string {
	out := make(map[string][]string, len(ix.vertexEdges))
	for v, es := range ix.vertexEdges {
		names := make([]string, len(es))
		for i, e := range es {
			names[i] = e.String()
		}
		out[v.String()] = names
	}
	return out
}
