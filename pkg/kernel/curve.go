package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CurveKind tags the carrier of an edge.
type CurveKind int

const (
	CurveLine CurveKind = iota
	CurveCircle
	CurveEllipse
	CurveBSpline
	CurveOther
)

func (k CurveKind) String() string {
	switch k {
	case CurveLine:
		return "line"
	case CurveCircle:
		return "circle"
	case CurveEllipse:
		return "ellipse"
	case CurveBSpline:
		return "bspline"
	case CurveOther:
		return "other"
	default:
		return "unknown"
	}
}

// Curve is a parametric 3-D curve. The set of implementations is closed:
// Line, Circle, Ellipse, BSpline and OtherCurve.
type Curve interface {
	Kind() CurveKind
	// Eval returns the point and first two derivatives at parameter t.
	Eval(t float64) (p, d1, d2 v3.Vec)
	curve() // marker method restricting implementations to this package
}

// Line is Origin + t*Dir. Dir is expected to be a unit vector so that the
// parameter measures distance.
type Line struct {
	Origin v3.Vec
	Dir    v3.Vec
}

func (Line) curve() {}
func (Line) Kind() CurveKind { return CurveLine }

func (l Line) Eval(t float64) (v3.Vec, v3.Vec, v3.Vec) {
	return l.Origin.Add(l.Dir.MulScalar(t)), l.Dir, v3.Vec{}
}

// Circle is parameterized by angle in radians, starting at XDir and turning
// counter-clockwise about Axis.
type Circle struct {
	Center v3.Vec
	Axis   v3.Vec
	XDir   v3.Vec
	Radius float64
}

func (Circle) curve() {}
func (Circle) Kind() CurveKind { return CurveCircle }

func (c Circle) Eval(t float64) (v3.Vec, v3.Vec, v3.Vec) {
	x, y := frame(c.Axis, c.XDir)
	s, co := math.Sincos(t)
	r := c.Radius
	p := c.Center.Add(x.MulScalar(r * co)).Add(y.MulScalar(r * s))
	d1 := x.MulScalar(-r * s).Add(y.MulScalar(r * co))
	d2 := x.MulScalar(-r * co).Add(y.MulScalar(-r * s))
	return p, d1, d2
}

// Ellipse is parameterized like Circle with MajorRadius along XDir.
type Ellipse struct {
	Center      v3.Vec
	Axis        v3.Vec
	XDir        v3.Vec
	MajorRadius float64
	MinorRadius float64
}

func (Ellipse) curve() {}
func (Ellipse) Kind() CurveKind { return CurveEllipse }

func (e Ellipse) Eval(t float64) (v3.Vec, v3.Vec, v3.Vec) {
	x, y := frame(e.Axis, e.XDir)
	s, co := math.Sincos(t)
	a, b := e.MajorRadius, e.MinorRadius
	p := e.Center.Add(x.MulScalar(a * co)).Add(y.MulScalar(b * s))
	d1 := x.MulScalar(-a * s).Add(y.MulScalar(b * co))
	d2 := x.MulScalar(-a * co).Add(y.MulScalar(-b * s))
	return p, d1, d2
}

// BSpline is a B-spline with a full knot vector
// (len(Knots) == len(Poles)+Degree+1). Its natural domain is
// [Knots[Degree], Knots[len(Poles)]]. Weights, when set, has one positive
// entry per pole and makes the curve rational (NURBS).
type BSpline struct {
	Degree  int
	Poles   []v3.Vec
	Knots   []float64
	Weights []float64
}

func (BSpline) curve() {}
func (BSpline) Kind() CurveKind { return CurveBSpline }

// Domain returns the parameter interval the spline is defined on.
func (b BSpline) Domain() (float64, float64) {
	if !b.valid() {
		return 0, 0
	}
	return b.Knots[b.Degree], b.Knots[len(b.Poles)]
}

// Rational reports whether the weights differ. Equal weights cancel out
// and describe the same curve as no weights.
func (b BSpline) Rational() bool {
	for _, w := range b.Weights {
		if w != b.Weights[0] {
			return true
		}
	}
	return false
}

func (b BSpline) valid() bool {
	if b.Degree < 0 || len(b.Poles) <= b.Degree || len(b.Knots) != len(b.Poles)+b.Degree+1 {
		return false
	}
	if len(b.Weights) == 0 {
		return true
	}
	if len(b.Weights) != len(b.Poles) {
		return false
	}
	for _, w := range b.Weights {
		if w <= 0 {
			return false
		}
	}
	return true
}

func (b BSpline) Eval(t float64) (v3.Vec, v3.Vec, v3.Vec) {
	if !b.valid() {
		return v3.Vec{}, v3.Vec{}, v3.Vec{}
	}
	if !b.Rational() {
		return b.eval(t)
	}
	// Evaluate in homogeneous space, then project: C = A/w.
	num, den := b.homogeneous()
	a, a1, a2 := num.eval(t)
	wv, wv1, wv2 := den.eval(t)
	w, w1, w2 := wv.X, wv1.X, wv2.X
	p := a.DivScalar(w)
	d1 := a1.Sub(p.MulScalar(w1)).DivScalar(w)
	d2 := a2.Sub(d1.MulScalar(2 * w1)).Sub(p.MulScalar(w2)).DivScalar(w)
	return p, d1, d2
}

// eval ignores weights.
func (b BSpline) eval(t float64) (v3.Vec, v3.Vec, v3.Vec) {
	p := b.point(t)
	db := b.derivative()
	d1 := db.point(t)
	d2 := db.derivative().point(t)
	return p, d1, d2
}

// homogeneous splits a rational spline into the weighted-pole numerator
// and a weight spline carried in X.
func (b BSpline) homogeneous() (BSpline, BSpline) {
	num := make([]v3.Vec, len(b.Poles))
	den := make([]v3.Vec, len(b.Poles))
	for i, p := range b.Poles {
		num[i] = p.MulScalar(b.Weights[i])
		den[i] = v3.Vec{X: b.Weights[i]}
	}
	return BSpline{Degree: b.Degree, Poles: num, Knots: b.Knots},
		BSpline{Degree: b.Degree, Poles: den, Knots: b.Knots}
}

// point evaluates the spline with de Boor's algorithm.
func (b BSpline) point(t float64) v3.Vec {
	if !b.valid() {
		return v3.Vec{}
	}
	p := b.Degree
	k := b.span(t)
	d := make([]v3.Vec, p+1)
	for j := 0; j <= p; j++ {
		d[j] = b.Poles[j+k-p]
	}
	for r := 1; r <= p; r++ {
		for j := p; j >= r; j-- {
			lo := b.Knots[j+k-p]
			hi := b.Knots[j+1+k-r]
			alpha := 0.0
			if hi != lo {
				alpha = (t - lo) / (hi - lo)
			}
			d[j] = d[j-1].MulScalar(1 - alpha).Add(d[j].MulScalar(alpha))
		}
	}
	return d[p]
}

// span finds k with Knots[k] <= t < Knots[k+1], clamped to the domain.
func (b BSpline) span(t float64) int {
	n := len(b.Poles)
	if t >= b.Knots[n] {
		k := n - 1
		for k > b.Degree && b.Knots[k] == b.Knots[k+1] {
			k--
		}
		return k
	}
	if t <= b.Knots[b.Degree] {
		k := b.Degree
		for k < n-1 && b.Knots[k] == b.Knots[k+1] {
			k++
		}
		return k
	}
	for k := b.Degree; k < n; k++ {
		if b.Knots[k] <= t && t < b.Knots[k+1] {
			return k
		}
	}
	return n - 1
}

// derivative returns the hodograph, a spline of one lower degree.
func (b BSpline) derivative() BSpline {
	if b.Degree == 0 || !b.valid() {
		return BSpline{Degree: 0, Poles: []v3.Vec{{}}, Knots: []float64{0, 1}}
	}
	p := b.Degree
	n := len(b.Poles)
	q := make([]v3.Vec, n-1)
	for i := 0; i < n-1; i++ {
		den := b.Knots[i+p+1] - b.Knots[i+1]
		if den == 0 {
			continue
		}
		q[i] = b.Poles[i+1].Sub(b.Poles[i]).MulScalar(float64(p) / den)
	}
	return BSpline{Degree: p - 1, Poles: q, Knots: b.Knots[1 : len(b.Knots)-1]}
}

// CurveFunc evaluates a point and its first two derivatives.
type CurveFunc func(t float64) (p, d1, d2 v3.Vec)

// OtherCurve carries any curve the kernel has no closed form for.
type OtherCurve struct {
	Fn CurveFunc
}

func (OtherCurve) curve() {}
func (OtherCurve) Kind() CurveKind { return CurveOther }

func (o OtherCurve) Eval(t float64) (v3.Vec, v3.Vec, v3.Vec) {
	if o.Fn == nil {
		return v3.Vec{}, v3.Vec{}, v3.Vec{}
	}
	return o.Fn(t)
}

// frame builds an orthonormal in-plane basis (x, y) for a circle or
// ellipse from its axis and reference direction.
func frame(axis, xdir v3.Vec) (v3.Vec, v3.Vec) {
	z, ok := Unit(axis)
	if !ok {
		z = v3.Vec{Z: 1}
	}
	x := xdir.Sub(z.MulScalar(xdir.Dot(z)))
	x, ok = Unit(x)
	if !ok {
		x = AnyPerpendicular(z)
	}
	return x, z.Cross(x)
}
