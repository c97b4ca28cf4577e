package brep

import (
	"errors"
	"math"

	"github.com/chazu/weldscan/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// deflection bounds how far a tessellation may stray from the exact
// geometry: linear is the chord sag, angular the turn per segment (radians).
type deflection struct {
	linear  float64
	angular float64
}

func (d deflection) normalized() deflection {
	if d.linear <= 0 {
		d.linear = 0.5
	}
	if d.angular <= 0 {
		d.angular = 0.5
	}
	return d
}

// segments chooses how many chords approximate an edge.
func segments(e kernel.EdgeData, d deflection) int {
	span := math.Abs(e.Last - e.First)
	closed := e.Start == e.End
	n := 1
	switch c := e.Curve.(type) {
	case kernel.Line:
		n = 1
	case kernel.Circle:
		n = arcSegments(span, c.Radius, d)
	case kernel.Ellipse:
		n = arcSegments(span, math.Max(c.MajorRadius, c.MinorRadius), d)
	case kernel.BSpline:
		n = 8 * (c.Degree + 1)
	case kernel.OtherCurve:
		n = 32
	}
	if closed && n < 3 {
		n = 3
	}
	return n
}

func arcSegments(span, radius float64, d deflection) int {
	step := d.angular
	if radius > d.linear && d.linear > 0 {
		step = math.Min(step, 2*math.Acos(1-d.linear/radius))
	}
	if step <= 0 {
		step = 0.5
	}
	n := int(math.Ceil(span / step))
	if n < 1 {
		n = 1
	}
	return n
}

// polygonize samples a wire into a closed point loop (last point omitted).
func (s *Shape) polygonize(w kernel.Wire, d deflection) []v3.Vec {
	var pts []v3.Vec
	for _, u := range w.Uses {
		e := s.edges[u.Edge]
		n := segments(e, d)
		for i := 0; i < n; i++ {
			f := float64(i) / float64(n)
			if u.Reversed {
				f = 1 - f
			}
			p, _, _ := e.Curve.Eval(e.First + f*(e.Last-e.First))
			pts = append(pts, p)
		}
	}
	return pts
}

func (s *Shape) outerWire(f kernel.FaceData) kernel.Wire {
	for _, w := range f.Wires {
		if w.Outer {
			return w
		}
	}
	return f.Wires[0]
}

var errUnsupportedSurface = errors.New("unsupported surface")

func (s *Shape) triangulate(f kernel.FaceData, d deflection) (*kernel.Mesh, error) {
	d = d.normalized()
	switch sf := f.Surface.(type) {
	case kernel.Plane:
		return s.meshPlanar(f, sf, d)
	case kernel.Cylinder:
		return s.meshCylinder(f, sf, d), nil
	case kernel.Sphere:
		return s.meshSphere(f, sf, d), nil
	case kernel.OtherSurface:
		return s.meshFan(f, d), nil
	}
	return nil, errUnsupportedSurface
}

// meshPlanar ear-clips the outer loop in the plane's 2-D frame.
// TODO: bridge inner wires into the outer loop before ear clipping so
// holes render open.
func (s *Shape) meshPlanar(f kernel.FaceData, pl kernel.Plane, d deflection) (*kernel.Mesh, error) {
	pts := s.polygonize(s.outerWire(f), d)
	n, _ := f.OutwardNormal(v3.Vec{})
	x, y := pl.Basis()
	if f.Reversed {
		y = y.Neg()
	}
	flat := make([][2]float64, len(pts))
	for i, p := range pts {
		rel := p.Sub(pl.Origin)
		flat[i] = [2]float64{rel.Dot(x), rel.Dot(y)}
	}
	tris, err := earClip(flat)
	if err != nil {
		return nil, err
	}
	m := &kernel.Mesh{}
	for _, p := range pts {
		m.AddVertex(p, n)
	}
	for _, t := range tris {
		m.AddTriangle(uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}
	return m, nil
}

// cylinderUV maps loop points to unwrapped (angle, height) coordinates.
func cylinderUV(c kernel.Cylinder, pts []v3.Vec) [][2]float64 {
	axis, _ := kernel.Unit(c.Axis)
	x := c.XDir.Sub(axis.MulScalar(c.XDir.Dot(axis)))
	x, ok := kernel.Unit(x)
	if !ok {
		x = kernel.AnyPerpendicular(axis)
	}
	y := axis.Cross(x)
	uv := make([][2]float64, len(pts))
	prev := 0.0
	for i, p := range pts {
		rel := p.Sub(c.Origin)
		u := math.Atan2(rel.Dot(y), rel.Dot(x))
		if i > 0 {
			for u-prev > math.Pi {
				u -= 2 * math.Pi
			}
			for u-prev < -math.Pi {
				u += 2 * math.Pi
			}
		}
		uv[i] = [2]float64{u, rel.Dot(axis)}
		prev = u
	}
	return uv
}

// meshCylinder grids the (angle, height) box spanned by the face's wires.
func (s *Shape) meshCylinder(f kernel.FaceData, c kernel.Cylinder, d deflection) *kernel.Mesh {
	var uv [][2]float64
	for _, w := range f.Wires {
		uv = append(uv, cylinderUV(c, s.polygonize(w, d))...)
	}
	umin, umax, vmin, vmax := uvBounds(uv)
	axis, _ := kernel.Unit(c.Axis)
	x := c.XDir.Sub(axis.MulScalar(c.XDir.Dot(axis)))
	x, ok := kernel.Unit(x)
	if !ok {
		x = kernel.AnyPerpendicular(axis)
	}
	y := axis.Cross(x)
	nu := arcSegments(umax-umin, c.Radius, d)
	m := &kernel.Mesh{}
	for i := 0; i <= nu; i++ {
		u := umin + (umax-umin)*float64(i)/float64(nu)
		radial := x.MulScalar(math.Cos(u)).Add(y.MulScalar(math.Sin(u)))
		n := radial
		if f.Reversed {
			n = n.Neg()
		}
		base := c.Origin.Add(radial.MulScalar(c.Radius))
		m.AddVertex(base.Add(axis.MulScalar(vmin)), n)
		m.AddVertex(base.Add(axis.MulScalar(vmax)), n)
	}
	for i := 0; i < nu; i++ {
		a, b := uint32(2*i), uint32(2*i+1)
		c2, d2 := uint32(2*i+2), uint32(2*i+3)
		if f.Reversed {
			m.AddTriangle(a, b, c2)
			m.AddTriangle(c2, b, d2)
		} else {
			m.AddTriangle(a, c2, b)
			m.AddTriangle(b, c2, d2)
		}
	}
	return m
}

// meshSphere grids the full sphere in latitude and longitude.
func (s *Shape) meshSphere(f kernel.FaceData, sp kernel.Sphere, d deflection) *kernel.Mesh {
	nu := arcSegments(2*math.Pi, sp.Radius, d)
	nv := arcSegments(math.Pi, sp.Radius, d)
	m := &kernel.Mesh{}
	for j := 0; j <= nv; j++ {
		phi := -math.Pi/2 + math.Pi*float64(j)/float64(nv)
		for i := 0; i <= nu; i++ {
			theta := 2 * math.Pi * float64(i) / float64(nu)
			n := v3.Vec{X: math.Cos(phi) * math.Cos(theta), Y: math.Cos(phi) * math.Sin(theta), Z: math.Sin(phi)}
			out := n
			if f.Reversed {
				out = n.Neg()
			}
			m.AddVertex(sp.Center.Add(n.MulScalar(sp.Radius)), out)
		}
	}
	row := uint32(nu + 1)
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			a := uint32(j)*row + uint32(i)
			b, c, e := a+1, a+row, a+row+1
			m.AddTriangle(a, b, e)
			m.AddTriangle(a, e, c)
		}
	}
	return m
}

// meshFan fans the outer loop around its centroid using surface normals.
func (s *Shape) meshFan(f kernel.FaceData, d deflection) *kernel.Mesh {
	pts := s.polygonize(s.outerWire(f), d)
	m := &kernel.Mesh{}
	if len(pts) < 3 {
		return m
	}
	var c v3.Vec
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.DivScalar(float64(len(pts)))
	normal := func(p v3.Vec) v3.Vec {
		n, ok := f.OutwardNormal(p)
		if !ok {
			return v3.Vec{}
		}
		return n
	}
	center := m.AddVertex(c, normal(c))
	for _, p := range pts {
		m.AddVertex(p, normal(p))
	}
	for i := range pts {
		a := uint32(1 + i)
		b := uint32(1 + (i+1)%len(pts))
		m.AddTriangle(center, a, b)
	}
	return m
}

func uvBounds(uv [][2]float64) (umin, umax, vmin, vmax float64) {
	if len(uv) == 0 {
		return 0, 2 * math.Pi, 0, 0
	}
	umin, umax = uv[0][0], uv[0][0]
	vmin, vmax = uv[0][1], uv[0][1]
	for _, p := range uv[1:] {
		umin, umax = math.Min(umin, p[0]), math.Max(umax, p[0])
		vmin, vmax = math.Min(vmin, p[1]), math.Max(vmax, p[1])
	}
	return umin, umax, vmin, vmax
}

// massProps integrates area and centroid. Planar faces use exact signed
// fan sums over every wire so holes subtract; curved faces sum a fine
// triangulation.
func (s *Shape) massProps(f kernel.FaceData) (kernel.MassProps, error) {
	fine := deflection{linear: 0.01, angular: propsDeflection}
	if _, ok := f.Surface.(kernel.Plane); ok {
		n, _ := f.OutwardNormal(v3.Vec{})
		var area float64
		var moment v3.Vec
		for _, w := range f.Wires {
			pts := s.polygonize(w, fine)
			for i := 1; i+1 < len(pts); i++ {
				a := pts[i].Sub(pts[0]).Cross(pts[i+1].Sub(pts[0])).Dot(n) / 2
				c := pts[0].Add(pts[i]).Add(pts[i+1]).DivScalar(3)
				area += a
				moment = moment.Add(c.MulScalar(a))
			}
		}
		if math.Abs(area) < 1e-15 {
			return kernel.MassProps{}, nil
		}
		return kernel.MassProps{Area: math.Abs(area), Centroid: moment.DivScalar(area)}, nil
	}

	m, err := s.triangulate(f, fine)
	if err != nil {
		return kernel.MassProps{}, err
	}
	at := func(i uint32) v3.Vec {
		return v3.Vec{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
	}
	var area float64
	var moment v3.Vec
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := at(m.Indices[t]), at(m.Indices[t+1]), at(m.Indices[t+2])
		ta := b.Sub(a).Cross(c.Sub(a)).Length() / 2
		area += ta
		moment = moment.Add(a.Add(b).Add(c).DivScalar(3).MulScalar(ta))
	}
	if area < 1e-15 {
		return kernel.MassProps{}, nil
	}
	return kernel.MassProps{Area: area, Centroid: moment.DivScalar(area)}, nil
}

// earClip triangulates a simple polygon given in either winding.
func earClip(pts [][2]float64) ([][3]int, error) {
	n := len(pts)
	if n < 3 {
		return nil, nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if signedArea(pts) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	var tris [][3]int
	guard := 0
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			a := idx[(i+len(idx)-1)%len(idx)]
			b := idx[i]
			c := idx[(i+1)%len(idx)]
			if cross2(pts[a], pts[b], pts[c]) <= 0 {
				continue
			}
			ear := true
			for _, o := range idx {
				if o == a || o == b || o == c {
					continue
				}
				if inTriangle(pts[o], pts[a], pts[b], pts[c]) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			tris = append(tris, [3]int{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Degenerate or self-touching loop: drop the flattest vertex.
			guard++
			if guard > n {
				return tris, errors.New("polygon is not simple")
			}
			idx = append(idx[:0], idx[1:]...)
		}
	}
	if len(idx) == 3 {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	return tris, nil
}

func signedArea(pts [][2]float64) float64 {
	var a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p[0]*q[1] - q[0]*p[1]
	}
	return a / 2
}

func cross2(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func inTriangle(p, a, b, c [2]float64) bool {
	d1 := cross2(a, b, p)
	d2 := cross2(b, c, p)
	d3 := cross2(c, a, p)
	return d1 >= 0 && d2 >= 0 && d3 >= 0
}
