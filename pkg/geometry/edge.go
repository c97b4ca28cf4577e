package geometry

import (
	"math"

	"github.com/chazu/weldscan/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DegenerateEpsilon is the absolute length below which an edge is
// degenerate even when its own tolerance is smaller.
const DegenerateEpsilon = 1e-9

// Payload carries curve-specific data. Implementations: LinePayload,
// CirclePayload, EllipsePayload and BSplinePayload.
type Payload interface {
	payload()
}

type LinePayload struct {
	Origin    Point `json:"origin"`
	Direction Point `json:"direction"`
}

type CirclePayload struct {
	Center       Point   `json:"center"`
	Axis         Point   `json:"axis"`
	Radius       float64 `json:"radius"`
	IsFullCircle bool    `json:"is_full_circle"`
	ArcAngle     float64 `json:"arc_angle"` // degrees
}

type EllipsePayload struct {
	Center      Point   `json:"center"`
	Axis        Point   `json:"axis"`
	MajorAxis   Point   `json:"major_axis"`
	MajorRadius float64 `json:"major_radius"`
	MinorRadius float64 `json:"minor_radius"`
}

type BSplinePayload struct {
	Degree     int  `json:"degree"`
	PoleCount  int  `json:"pole_count"`
	KnotCount  int  `json:"knot_count"`
	IsRational bool `json:"is_rational"`
}

func (LinePayload) payload()    {}
func (CirclePayload) payload()  {}
func (EllipsePayload) payload() {}
func (BSplinePayload) payload() {}

// EdgeGeometry holds the measurements of one edge.
type EdgeGeometry struct {
	Edge          kernel.EdgeID    `json:"-"`
	Kind          kernel.CurveKind `json:"-"`
	CurveType     string           `json:"curve_type"`
	Length        float64          `json:"length"`
	First         float64          `json:"first_parameter"`
	Last          float64          `json:"last_parameter"`
	IsClosed      bool             `json:"is_closed"`
	IsDegenerated bool             `json:"is_degenerated"`
	Start         Point            `json:"start_point"`
	Middle        Point            `json:"middle_point"`
	End           Point            `json:"end_point"`
	Curvature     *float64         `json:"curvature"` // nil for lines
	Payload       Payload          `json:"payload,omitempty"`
	Tolerance     float64          `json:"tolerance"`
}

// Mid returns the middle parameter.
func (g EdgeGeometry) Mid() float64 { return (g.First + g.Last) / 2 }

// describeEdge measures an edge record.
func describeEdge(id kernel.EdgeID, e kernel.EdgeData) EdgeGeometry {
	c := e.Curve
	g := EdgeGeometry{
		Edge:      id,
		Kind:      c.Kind(),
		CurveType: c.Kind().String(),
		First:     e.First,
		Last:      e.Last,
		Tolerance: e.Tolerance,
	}
	g.Length = arcLength(c, e.First, e.Last)
	ps, _, _ := c.Eval(e.First)
	pm, d1, d2 := c.Eval(g.Mid())
	pe, _, _ := c.Eval(e.Last)
	g.Start, g.Middle, g.End = P(ps), P(pm), P(pe)
	g.IsClosed = e.Start == e.End && g.Length > e.Tolerance
	g.IsDegenerated = g.Length <= math.Max(e.Tolerance, DegenerateEpsilon)

	if c.Kind() != kernel.CurveLine {
		if k, ok := curvature(d1, d2); ok {
			g.Curvature = &k
		}
	}
	g.Payload = payloadOf(c, e.First, e.Last)
	return g
}

// payloadOf matches every curve implementation.
func payloadOf(c kernel.Curve, first, last float64) Payload {
	switch c := c.(type) {
	case kernel.Line:
		dir, ok := kernel.Unit(c.Dir)
		if !ok {
			dir = c.Dir
		}
		return LinePayload{Origin: P(c.Origin), Direction: P(dir)}
	case kernel.Circle:
		axis, _ := kernel.Unit(c.Axis)
		span := math.Abs(last - first)
		return CirclePayload{
			Center:       P(c.Center),
			Axis:         P(axis),
			Radius:       c.Radius,
			IsFullCircle: math.Abs(span-2*math.Pi) < 1e-9,
			ArcAngle:     span * 180 / math.Pi,
		}
	case kernel.Ellipse:
		axis, _ := kernel.Unit(c.Axis)
		x, _, _ := c.Eval(0)
		major, _ := kernel.Unit(x.Sub(c.Center))
		return EllipsePayload{
			Center:      P(c.Center),
			Axis:        P(axis),
			MajorAxis:   P(major),
			MajorRadius: c.MajorRadius,
			MinorRadius: c.MinorRadius,
		}
	case kernel.BSpline:
		return BSplinePayload{
			Degree:     c.Degree,
			PoleCount:  len(c.Poles),
			KnotCount:  len(c.Knots),
			IsRational: c.Rational(),
		}
	case kernel.OtherCurve:
		return nil
	}
	return nil
}

// curvature is |d1 x d2| / |d1|^3.
func curvature(d1, d2 v3.Vec) (float64, bool) {
	l := d1.Length()
	if l < 1e-12 {
		return 0, false
	}
	return d1.Cross(d2).Length() / (l * l * l), true
}

// Five-point Gauss-Legendre rule on [-1, 1].
var (
	glNodes   = [5]float64{0, -0.5384693101056831, 0.5384693101056831, -0.9061798459386640, 0.9061798459386640}
	glWeights = [5]float64{0.5688888888888889, 0.4786286704993665, 0.4786286704993665, 0.2369268850561891, 0.2369268850561891}
)

// lengthSpans is the number of quadrature spans for curved edges.
const lengthSpans = 16

// arcLength integrates |C'(t)| over [first, last].
func arcLength(c kernel.Curve, first, last float64) float64 {
	if l, ok := c.(kernel.Line); ok {
		return l.Dir.Length() * math.Abs(last-first)
	}
	var total float64
	h := (last - first) / lengthSpans
	for s := 0; s < lengthSpans; s++ {
		a := first + float64(s)*h
		half := h / 2
		mid := a + half
		for i, x := range glNodes {
			_, d1, _ := c.Eval(mid + half*x)
			total += glWeights[i] * d1.Length() * math.Abs(half)
		}
	}
	return total
}

// samples returns n+1 evenly spaced parameters across [first, last].
func samples(first, last float64, n int) []float64 {
	ts := make([]float64, n+1)
	for i := range ts {
		ts[i] = first + (last-first)*float64(i)/float64(n)
	}
	return ts
}

// polylineSegments is how many chords approximate a curved edge.
const polylineSegments = 32

// polyline samples an edge for display, picking and bounds.
func polyline(e kernel.EdgeData) []v3.Vec {
	n := polylineSegments
	if e.Curve.Kind() == kernel.CurveLine {
		n = 1
	}
	pts := make([]v3.Vec, 0, n+1)
	for _, t := range samples(e.First, e.Last, n) {
		p, _, _ := e.Curve.Eval(t)
		pts = append(pts, p)
	}
	return pts
}
