package topology_test

import (
	"testing"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/kernel/brep"
	"github.com/chazu/weldscan/pkg/topology"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// reversedShape enumerates the wrapped shape's entities backwards.
type reversedShape struct {
	kernel.Shape
}

func (r reversedShape) Edges() []kernel.EdgeID {
	ids := r.Shape.Edges()
	out := make([]kernel.EdgeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func (r reversedShape) Faces() []kernel.FaceID {
	ids := r.Shape.Faces()
	out := make([]kernel.FaceID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func mustIndex(t *testing.T, s kernel.Shape) *topology.Index {
	t.Helper()
	ix, err := topology.Build(s)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return ix
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuildEmptyShape(t *testing.T) {
	ix := mustIndex(t, brep.Empty())
	if ix.Len() != 0 {
		t.Errorf("Len = %d, want 0", ix.Len())
	}
	if got := ix.Summary(); got != (topology.Summary{}) {
		t.Errorf("Summary = %+v, want zero", got)
	}
	if f := ix.Findings(); len(f) != 0 {
		t.Errorf("Findings = %v, want none", f)
	}
}

func TestBuildBox(t *testing.T) {
	b := brep.NewBuilder()
	b.Box(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})
	shape := b.MustBuild()
	ix := mustIndex(t, shape)

	want := topology.Summary{
		TotalEdges:         12,
		InternalEdges:      12,
		PotentialWeldEdges: 12,
		TotalFaces:         6,
		TotalVertices:      8,
	}
	if got := ix.Summary(); got != want {
		t.Errorf("Summary = %+v, want %+v", got, want)
	}
	for _, e := range ix.Entries() {
		if len(e.Uses) != 2 {
			t.Errorf("%s: %d uses, want 2", e.Edge, len(e.Uses))
		}
		if e.Uses[0].Reversed == e.Uses[1].Reversed {
			t.Errorf("%s: both faces traverse the edge the same way", e.Edge)
		}
		if len(e.Vertices()) != 2 {
			t.Errorf("%s: %d vertices, want 2", e.Edge, len(e.Vertices()))
		}
	}
	for _, f := range shape.Faces() {
		if n := len(ix.Neighbours(f)); n != 4 {
			t.Errorf("%s has %d neighbours, want 4", f, n)
		}
	}
	for v := kernel.VertexID(0); v < 8; v++ {
		if n := len(ix.VertexEdges(v)); n != 3 {
			t.Errorf("%s bounds %d edges, want 3", v, n)
		}
	}
}

func TestBuildSinglePlate(t *testing.T) {
	b := brep.NewBuilder()
	b.Polygon(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{X: 1, Y: 1}, v3.Vec{Y: 1})
	ix := mustIndex(t, b.MustBuild())

	s := ix.Summary()
	if s.BoundaryEdges != 4 || s.PotentialWeldEdges != 0 {
		t.Errorf("Summary = %+v, want 4 boundary edges and no weld edges", s)
	}
	findings := ix.Findings()
	if len(findings) != 4 {
		t.Fatalf("Findings = %d, want 4", len(findings))
	}
	for _, f := range findings {
		if f.Code != topology.CodeBoundaryEdge || f.Severity != topology.SeverityWarning {
			t.Errorf("finding = %+v, want boundary warning", f)
		}
	}
}

func TestBuildCylinderSeam(t *testing.T) {
	b := brep.NewBuilder()
	b.Cylinder(v3.Vec{}, 5, 10)
	ix := mustIndex(t, b.MustBuild())

	var seams []topology.Entry
	for _, e := range ix.Entries() {
		if e.Seam {
			seams = append(seams, e)
		}
	}
	if len(seams) != 1 {
		t.Fatalf("seam edges = %d, want 1", len(seams))
	}
	seam := seams[0]
	if seam.FaceCount() != 1 || len(seam.Uses) != 2 {
		t.Errorf("seam: faces=%d uses=%d, want 1/2", seam.FaceCount(), len(seam.Uses))
	}
	if seam.IsPotentialWeld() || seam.IsBoundary() {
		t.Error("seam must be neither a weld candidate nor a boundary")
	}

	s := ix.Summary()
	if s.SeamEdges != 1 || s.PotentialWeldEdges != 2 || s.BoundaryEdges != 0 {
		t.Errorf("Summary = %+v", s)
	}
	for _, e := range ix.Entries() {
		if !e.Seam && e.Closed && len(e.Vertices()) != 1 {
			t.Errorf("closed %s reports %d vertices", e.Edge, len(e.Vertices()))
		}
	}
}

func TestBuildNonManifoldFan(t *testing.T) {
	b := brep.NewBuilder()
	b.PlatePair(50, 20, 90)
	b.Polygon(v3.Vec{}, v3.Vec{Z: -20}, v3.Vec{X: 50, Z: -20}, v3.Vec{X: 50})
	ix := mustIndex(t, b.MustBuild())

	var shared topology.Entry
	for _, e := range ix.Entries() {
		if e.FaceCount() == 3 {
			shared = e
		}
	}
	if !shared.NonManifold {
		t.Fatal("expected one non-manifold edge shared by three faces")
	}
	if shared.IsPotentialWeld() {
		t.Error("non-manifold edge must not be a weld candidate")
	}
	var found bool
	for _, f := range ix.Findings() {
		if f.Code == topology.CodeNonManifoldEdge && f.Edge == shared.Edge.String() {
			found = true
		}
	}
	if !found {
		t.Error("missing non-manifold finding")
	}
}

func TestBuildFreeEdge(t *testing.T) {
	b := brep.NewBuilder()
	b.Line(b.Vertex(v3.Vec{}), b.Vertex(v3.Vec{X: 3}))
	ix := mustIndex(t, b.MustBuild())

	if s := ix.Summary(); s.FreeEdges != 1 || s.TotalEdges != 1 {
		t.Errorf("Summary = %+v, want one free edge", s)
	}
	f := ix.Findings()
	if len(f) != 1 || f[0].Code != topology.CodeFreeEdge {
		t.Errorf("Findings = %v, want one FREE_EDGE", f)
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	b := brep.NewBuilder()
	b.Box(v3.Vec{}, v3.Vec{X: 3, Y: 4, Z: 5})
	s := b.MustBuild()

	a := mustIndex(t, s)
	r := mustIndex(t, reversedShape{s})
	if a.Len() != r.Len() {
		t.Fatalf("Len differs: %d vs %d", a.Len(), r.Len())
	}
	for i := range a.Entries() {
		ea, er := a.Entries()[i], r.Entries()[i]
		if ea.Edge != er.Edge {
			t.Errorf("entry %d: %s vs %s", i, ea.Edge, er.Edge)
		}
		if len(ea.Faces) != len(er.Faces) {
			t.Errorf("%s: face count differs", ea.Edge)
			continue
		}
		for j := range ea.Faces {
			if ea.Faces[j] != er.Faces[j] {
				t.Errorf("%s: faces %v vs %v", ea.Edge, ea.Faces, er.Faces)
			}
		}
	}
}

func TestEntryLookup(t *testing.T) {
	b := brep.NewBuilder()
	faces := b.PlatePair(50, 20, 90)
	ix := mustIndex(t, b.MustBuild())

	var shared topology.Entry
	for _, e := range ix.Entries() {
		if e.IsPotentialWeld() {
			shared = e
		}
	}
	got, ok := ix.Entry(shared.Edge)
	if !ok || got.Edge != shared.Edge {
		t.Fatalf("Entry(%s) = %v, %v", shared.Edge, got, ok)
	}
	u0, ok0 := got.UseIn(faces[0])
	u1, ok1 := got.UseIn(faces[1])
	if !ok0 || !ok1 {
		t.Fatal("shared edge must be used by both plates")
	}
	if u0.Reversed == u1.Reversed {
		t.Error("plates should traverse the shared edge in opposite directions")
	}
	if _, ok := ix.Entry(999); ok {
		t.Error("Entry(999) should not exist")
	}

	adj := ix.FaceAdjacency()
	if len(adj[faces[0].String()]) != 1 || adj[faces[0].String()][0] != faces[1].String() {
		t.Errorf("FaceAdjacency = %v", adj)
	}
	vm := ix.VertexEdgeMap()
	if len(vm) != 6 {
		t.Errorf("VertexEdgeMap has %d vertices, want 6", len(vm))
	}
}

func TestFindingError(t *testing.T) {
	tests := []struct {
		f    topology.Finding
		want string
	}{
		{topology.Finding{Edge: "EDGE_2", Message: "open", Severity: topology.SeverityWarning}, "[warning] EDGE_2: open"},
		{topology.Finding{Message: "empty", Severity: topology.SeverityError}, "[error] empty"},
		{topology.Finding{Edge: "EDGE_1", Message: "seam", Severity: topology.SeverityInfo}, "[info] EDGE_1: seam"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.f.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
