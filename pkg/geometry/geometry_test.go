package geometry_test

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"testing"

	"github.com/chazu/weldscan/pkg/geometry"
	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/kernel/brep"
	"github.com/chazu/weldscan/pkg/topology"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func describer(t *testing.T, s kernel.Shape) *geometry.Describer {
	t.Helper()
	ix, err := topology.Build(s)
	if err != nil {
		t.Fatalf("topology.Build: %v", err)
	}
	d, err := geometry.NewDescriber(s, ix)
	if err != nil {
		t.Fatalf("NewDescriber: %v", err)
	}
	return d
}

// sharedEntry returns the entry joining faces a and b.
func sharedEntry(t *testing.T, ix *topology.Index, a, b kernel.FaceID) topology.Entry {
	t.Helper()
	for _, e := range ix.Entries() {
		if len(e.Faces) != 2 {
			continue
		}
		if (e.Faces[0] == a && e.Faces[1] == b) || (e.Faces[0] == b && e.Faces[1] == a) {
			return e
		}
	}
	t.Fatalf("no edge between %s and %s", a, b)
	return topology.Entry{}
}

// ---------------------------------------------------------------------------
// Edge geometry
// ---------------------------------------------------------------------------

func TestEdgeGeometryLine(t *testing.T) {
	b := brep.NewBuilder()
	b.Polygon(v3.Vec{}, v3.Vec{X: 3, Y: 4}, v3.Vec{Y: 4})
	d := describer(t, b.MustBuild())

	g, err := d.Edge(0)
	if err != nil {
		t.Fatal(err)
	}
	if g.CurveType != "line" || !approx(g.Length, 5, 1e-12) {
		t.Errorf("got %s length %v, want line length 5", g.CurveType, g.Length)
	}
	if g.Curvature != nil {
		t.Errorf("line curvature = %v, want nil", *g.Curvature)
	}
	if !approx(g.Middle[0], 1.5, 1e-12) || !approx(g.Middle[1], 2, 1e-12) {
		t.Errorf("middle = %v", g.Middle)
	}
	lp, ok := g.Payload.(geometry.LinePayload)
	if !ok {
		t.Fatalf("payload = %T, want LinePayload", g.Payload)
	}
	if !approx(lp.Direction[0], 0.6, 1e-12) || !approx(lp.Direction[1], 0.8, 1e-12) {
		t.Errorf("direction = %v", lp.Direction)
	}
	if g.IsClosed || g.IsDegenerated {
		t.Error("line should be open and non-degenerate")
	}
}

func TestEdgeGeometryCircle(t *testing.T) {
	b := brep.NewBuilder()
	b.Cylinder(v3.Vec{}, 4, 10)
	s := b.MustBuild()
	d := describer(t, s)

	var found bool
	for _, id := range s.Edges() {
		g, err := d.Edge(id)
		if err != nil {
			t.Fatal(err)
		}
		if g.Kind != kernel.CurveCircle {
			continue
		}
		found = true
		if !approx(g.Length, 8*math.Pi, 1e-9) {
			t.Errorf("%s length = %v, want 8pi", id, g.Length)
		}
		if g.Curvature == nil || !approx(*g.Curvature, 0.25, 1e-12) {
			t.Errorf("%s curvature = %v, want 0.25", id, g.Curvature)
		}
		if !g.IsClosed {
			t.Errorf("%s should be closed", id)
		}
		cp, ok := g.Payload.(geometry.CirclePayload)
		if !ok || !cp.IsFullCircle || !approx(cp.ArcAngle, 360, 1e-9) || cp.Radius != 4 {
			t.Errorf("%s payload = %+v", id, g.Payload)
		}
	}
	if !found {
		t.Fatal("cylinder has no circle edges")
	}
}

func TestEdgeGeometryBSplineLength(t *testing.T) {
	// A degree-1 spline through collinear poles is a straight segment.
	b := brep.NewBuilder()
	v0 := b.Vertex(v3.Vec{})
	v1 := b.Vertex(v3.Vec{X: 10})
	sp := kernel.BSpline{
		Degree: 1,
		Poles:  []v3.Vec{{}, {X: 4}, {X: 10}},
		Knots:  []float64{0, 0, 0.5, 1, 1},
	}
	b.Edge(sp, 0, 1, v0, v1)
	d := describer(t, b.MustBuild())

	g, err := d.Edge(0)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(g.Length, 10, 1e-9) {
		t.Errorf("length = %v, want 10", g.Length)
	}
	bp, ok := g.Payload.(geometry.BSplinePayload)
	if !ok || bp.Degree != 1 || bp.PoleCount != 3 || bp.KnotCount != 5 || bp.IsRational {
		t.Errorf("payload = %+v", g.Payload)
	}
}

func TestEdgeGeometryRationalBSpline(t *testing.T) {
	// Quarter of a unit circle as a rational quadratic.
	b := brep.NewBuilder()
	v0 := b.Vertex(v3.Vec{X: 1})
	v1 := b.Vertex(v3.Vec{Y: 1})
	sp := kernel.BSpline{
		Degree:  2,
		Poles:   []v3.Vec{{X: 1}, {X: 1, Y: 1}, {Y: 1}},
		Knots:   []float64{0, 0, 0, 1, 1, 1},
		Weights: []float64{1, math.Sqrt2 / 2, 1},
	}
	b.Edge(sp, 0, 1, v0, v1)
	d := describer(t, b.MustBuild())

	g, err := d.Edge(0)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(g.Length, math.Pi/2, 1e-4) {
		t.Errorf("length = %v, want pi/2", g.Length)
	}
	bp, ok := g.Payload.(geometry.BSplinePayload)
	if !ok || !bp.IsRational {
		t.Errorf("payload = %+v, want rational", g.Payload)
	}
	if g.Curvature == nil || !approx(*g.Curvature, 1, 1e-6) {
		t.Errorf("curvature = %v, want 1", g.Curvature)
	}
}

func TestEdgeGeometryDegenerate(t *testing.T) {
	b := brep.NewBuilderWithTolerance(1e-3)
	b.Line(b.Vertex(v3.Vec{}), b.Vertex(v3.Vec{X: 5e-4}))
	d := describer(t, b.MustBuild())

	g, err := d.Edge(0)
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsDegenerated {
		t.Errorf("edge of length %v with tolerance 1e-3 should be degenerate", g.Length)
	}
}

func TestEdgeUnknown(t *testing.T) {
	d := describer(t, brep.Empty())
	if _, err := d.Edge(4); !errors.Is(err, kernel.ErrUnknownEntity) {
		t.Errorf("Edge(4) error = %v, want ErrUnknownEntity", err)
	}
	if _, err := d.Describe(4); !errors.Is(err, kernel.ErrUnknownEntity) {
		t.Errorf("Describe(4) error = %v, want ErrUnknownEntity", err)
	}
}

// ---------------------------------------------------------------------------
// Dihedral angle
// ---------------------------------------------------------------------------

func TestDihedralPlatePair(t *testing.T) {
	tests := []struct {
		angle     float64
		convexity geometry.Convexity
		material  float64
	}{
		{30, geometry.Concave, 330},
		{60, geometry.Concave, 300},
		{90, geometry.Concave, 270},
		{120, geometry.Concave, 240},
		{150, geometry.Concave, 210},
		{180, geometry.Flat, 180},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.0f", tt.angle), func(t *testing.T) {
			b := brep.NewBuilder()
			faces := b.PlatePair(50, 20, tt.angle)
			d := describer(t, b.MustBuild())
			ent := sharedEntry(t, d.Index(), faces[0], faces[1])
			g, err := d.Edge(ent.Edge)
			if err != nil {
				t.Fatal(err)
			}
			dh, err := d.Dihedral(ent, g)
			if err != nil {
				t.Fatalf("Dihedral: %v", err)
			}
			if !approx(dh.Angle, tt.angle, 1e-9) {
				t.Errorf("angle = %v, want %v", dh.Angle, tt.angle)
			}
			if dh.Convexity != tt.convexity {
				t.Errorf("convexity = %s, want %s", dh.Convexity, tt.convexity)
			}
			if !approx(dh.MaterialAngle, tt.material, 1e-9) {
				t.Errorf("material angle = %v, want %v", dh.MaterialAngle, tt.material)
			}
			if dh.Samples != 1 || dh.Variation.Std != 0 {
				t.Errorf("straight planar edge: samples=%d std=%v, want 1/0", dh.Samples, dh.Variation.Std)
			}
		})
	}
}

func TestDihedralBoxIsConvex(t *testing.T) {
	b := brep.NewBuilder()
	b.Box(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})
	d := describer(t, b.MustBuild())

	for _, ent := range d.Index().Entries() {
		g, _ := d.Edge(ent.Edge)
		dh, err := d.Dihedral(ent, g)
		if err != nil {
			t.Fatalf("%s: %v", ent.Edge, err)
		}
		if !approx(dh.Angle, 90, 1e-9) || dh.Convexity != geometry.Convex || !approx(dh.MaterialAngle, 90, 1e-9) {
			t.Errorf("%s: angle=%v convexity=%s material=%v", ent.Edge, dh.Angle, dh.Convexity, dh.MaterialAngle)
		}
	}
}

func TestDihedralCylinderRim(t *testing.T) {
	b := brep.NewBuilder()
	faces := b.Cylinder(v3.Vec{}, 5, 20)
	d := describer(t, b.MustBuild())

	ent := sharedEntry(t, d.Index(), faces[0], faces[1])
	g, _ := d.Edge(ent.Edge)
	dh, err := d.Dihedral(ent, g)
	if err != nil {
		t.Fatal(err)
	}
	if dh.Samples != 5 {
		t.Errorf("samples = %d, want 5", dh.Samples)
	}
	if !approx(dh.Angle, 90, 1e-6) || dh.Convexity != geometry.Convex {
		t.Errorf("angle=%v convexity=%s, want 90 convex", dh.Angle, dh.Convexity)
	}
	if dh.Variation.Std > 1e-6 {
		t.Errorf("std = %v, want ~0", dh.Variation.Std)
	}
}

func TestDihedralDegenerateNormals(t *testing.T) {
	b := brep.NewBuilder()
	o, e := v3.Vec{}, v3.Vec{X: 10}
	plate := b.Polygon(o, e, v3.Vec{X: 10, Y: 5}, v3.Vec{Y: 5})
	broken := b.Face(kernel.OtherSurface{Normal: func(v3.Vec) (v3.Vec, bool) { return v3.Vec{}, false }}, false,
		b.Loop(true, e, o, v3.Vec{Z: 5}, v3.Vec{X: 10, Z: 5}))
	d := describer(t, b.MustBuild())

	ent := sharedEntry(t, d.Index(), plate, broken)
	g, _ := d.Edge(ent.Edge)
	if _, err := d.Dihedral(ent, g); !errors.Is(err, geometry.ErrDegenerateGeometry) {
		t.Errorf("error = %v, want ErrDegenerateGeometry", err)
	}
}

func TestDihedralRequiresTwoFaces(t *testing.T) {
	b := brep.NewBuilder()
	b.Polygon(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	d := describer(t, b.MustBuild())
	ent := d.Index().Entries()[0]
	g, _ := d.Edge(ent.Edge)
	if _, err := d.Dihedral(ent, g); !errors.Is(err, geometry.ErrDegenerateGeometry) {
		t.Errorf("error = %v, want ErrDegenerateGeometry", err)
	}
}

// ---------------------------------------------------------------------------
// Thickness
// ---------------------------------------------------------------------------

func TestPlateThicknessSolidPlate(t *testing.T) {
	b := brep.NewBuilder()
	faces := b.Box(v3.Vec{}, v3.Vec{X: 100, Y: 50, Z: 6})
	d := describer(t, b.MustBuild())

	top, front := faces[1], faces[2]
	ent := sharedEntry(t, d.Index(), top, front)
	g, _ := d.Edge(ent.Edge)

	th := d.PlateThickness(ent, top, g)
	if th == nil || !approx(*th, 6, 1e-9) {
		t.Errorf("top thickness = %v, want 6", th)
	}
	th = d.PlateThickness(ent, front, g)
	if th == nil || !approx(*th, 50, 1e-9) {
		t.Errorf("front thickness = %v, want 50", th)
	}
}

func TestPlateThicknessSheet(t *testing.T) {
	b := brep.NewBuilder()
	faces := b.PlatePair(50, 20, 90)
	d := describer(t, b.MustBuild())
	ent := sharedEntry(t, d.Index(), faces[0], faces[1])
	g, _ := d.Edge(ent.Edge)
	if th := d.PlateThickness(ent, faces[0], g); th != nil {
		t.Errorf("sheet thickness = %v, want nil", *th)
	}
}

// ---------------------------------------------------------------------------
// Persistent hash
// ---------------------------------------------------------------------------

func TestPersistentHash(t *testing.T) {
	line := func(a, c v3.Vec) geometry.EdgeGeometry {
		b := brep.NewBuilder()
		b.Line(b.Vertex(a), b.Vertex(c))
		d := describer(t, b.MustBuild())
		g, err := d.Edge(0)
		if err != nil {
			t.Fatal(err)
		}
		return g
	}
	a, c := v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 11, Y: 2, Z: 3}

	h := geometry.PersistentHash(line(a, c))
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(h) {
		t.Errorf("hash %q is not 16 hex digits", h)
	}
	if got := geometry.PersistentHash(line(c, a)); got != h {
		t.Errorf("reversed edge hash %s != %s", got, h)
	}
	if got := geometry.PersistentHash(line(a, c.Add(v3.Vec{X: 1e-6}))); got != h {
		t.Errorf("sub-quantum move changed hash: %s != %s", got, h)
	}
	if got := geometry.PersistentHash(line(a, c.Add(v3.Vec{X: 1}))); got == h {
		t.Error("longer edge should hash differently")
	}
}

// ---------------------------------------------------------------------------
// Descriptor
// ---------------------------------------------------------------------------

func TestDescribeBoxEdge(t *testing.T) {
	b := brep.NewBuilder()
	faces := b.Box(v3.Vec{}, v3.Vec{X: 100, Y: 50, Z: 6})
	d := describer(t, b.MustBuild())
	ent := sharedEntry(t, d.Index(), faces[1], faces[2])

	desc, err := d.Describe(ent.Edge)
	if err != nil {
		t.Fatal(err)
	}
	if desc.ID != ent.Edge.String() || desc.Hash == "" {
		t.Errorf("id=%q hash=%q", desc.ID, desc.Hash)
	}
	if desc.Topology.FaceCount != 2 || !desc.Topology.IsInternal || desc.Topology.IsSeam {
		t.Errorf("topology = %+v", desc.Topology)
	}
	if desc.Vertices.Count != 2 || desc.Vertices.End == nil {
		t.Errorf("vertices = %+v", desc.Vertices)
	}
	if len(desc.AdjacentFaces) != 2 {
		t.Fatalf("adjacent faces = %d, want 2", len(desc.AdjacentFaces))
	}
	for _, f := range desc.AdjacentFaces {
		if f.SurfaceType != "plane" || f.Plane == nil || f.NormalAtCenter == nil {
			t.Errorf("face %s = %+v", f.ID, f)
		}
		if f.EdgeCount != 4 || f.VertexCount != 4 {
			t.Errorf("face %s: edges=%d vertices=%d, want 4/4", f.ID, f.EdgeCount, f.VertexCount)
		}
	}
	if len(desc.Parametric) != 10 {
		t.Errorf("parametric samples = %d, want 10", len(desc.Parametric))
	}
	if desc.Quality.LengthCategory != "long" || desc.Quality.IsSmallEdge || desc.Quality.CurvatureVariation != nil {
		t.Errorf("quality = %+v", desc.Quality)
	}
	if !approx(desc.Properties.Centroid[0], 50, 1e-9) {
		t.Errorf("centroid = %v", desc.Properties.Centroid)
	}
	if desc.Dihedral == nil || !approx(desc.Dihedral.Angle, 90, 1e-9) {
		t.Errorf("dihedral = %+v", desc.Dihedral)
	}
}

func TestDescribeCylinderEdges(t *testing.T) {
	b := brep.NewBuilder()
	b.Cylinder(v3.Vec{}, 5, 20)
	s := b.MustBuild()
	d := describer(t, s)

	for _, ent := range d.Index().Entries() {
		desc, err := d.Describe(ent.Edge)
		if err != nil {
			t.Fatal(err)
		}
		switch {
		case ent.Seam:
			if !desc.Topology.IsSeam || desc.Dihedral != nil {
				t.Errorf("seam descriptor = %+v", desc.Topology)
			}
		default:
			if desc.Vertices.Count != 1 || !desc.Vertices.IsClosed {
				t.Errorf("%s vertices = %+v", desc.ID, desc.Vertices)
			}
			cv := desc.Quality.CurvatureVariation
			if cv == nil || !approx(cv.Mean, 0.2, 1e-9) || cv.Std > 1e-9 {
				t.Errorf("%s curvature variation = %+v", desc.ID, cv)
			}
		}
	}
}

func TestLengthCategory(t *testing.T) {
	tests := []struct {
		l    float64
		want string
	}{
		{0.0005, "very_short"},
		{0.001, "short"},
		{0.05, "short"},
		{0.1, "medium"},
		{9.99, "medium"},
		{10, "long"},
	}
	for _, tt := range tests {
		if got := geometry.LengthCategory(tt.l); got != tt.want {
			t.Errorf("LengthCategory(%v) = %q, want %q", tt.l, got, tt.want)
		}
	}
}

func TestBounds(t *testing.T) {
	b := brep.NewBuilder()
	b.Box(v3.Vec{X: -1}, v3.Vec{X: 3, Y: 2, Z: 6})
	d := describer(t, b.MustBuild())
	bb := d.Bounds()
	if bb.Min != (geometry.Point{-1, 0, 0}) || bb.Max != (geometry.Point{3, 2, 6}) {
		t.Errorf("bounds = %+v", bb)
	}
	if bb.Center != (geometry.Point{1, 1, 3}) || bb.Size != (geometry.Point{4, 2, 6}) {
		t.Errorf("center/size = %v / %v", bb.Center, bb.Size)
	}
}

func TestSummarize(t *testing.T) {
	s := geometry.Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Min != 2 || s.Max != 9 || s.Mean != 5 {
		t.Errorf("stats = %+v", s)
	}
	if !approx(s.Std, math.Sqrt(32.0/7), 1e-12) {
		t.Errorf("std = %v", s.Std)
	}
	if got := geometry.Summarize(nil); got != (geometry.Stats{}) {
		t.Errorf("empty = %+v", got)
	}
	if got := geometry.Summarize([]float64{3}); got.Std != 0 || got.Mean != 3 {
		t.Errorf("single = %+v", got)
	}
}
