package geometry

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point is a position or direction serialized as [x, y, z].
type Point [3]float64

// P converts a vector to a Point.
func P(v v3.Vec) Point { return Point{v.X, v.Y, v.Z} }

// Vec converts back to a vector.
func (p Point) Vec() v3.Vec { return v3.Vec{X: p[0], Y: p[1], Z: p[2]} }

// Box is an axis-aligned bounding box.
type Box struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Diagonal returns the length of the box diagonal.
func (b Box) Diagonal() float64 {
	return b.Max.Vec().Sub(b.Min.Vec()).Length()
}

// Box3 converts to an sdfx box.
func (b Box) Box3() sdf.Box3 {
	return sdf.Box3{Min: b.Min.Vec(), Max: b.Max.Vec()}
}

// boxOf returns the bounds of a point set. An empty set gives a zero box.
func boxOf(pts []v3.Vec) Box {
	if len(pts) == 0 {
		return Box{}
	}
	bb := sdf.Box3{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		bb = bb.Include(p)
	}
	return Box{Min: P(bb.Min), Max: P(bb.Max)}
}

// Stats summarizes a sample: min, max, mean and sample standard deviation.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Summarize computes Stats. A single value has zero deviation; an empty
// sample gives zero Stats.
func Summarize(xs []float64) Stats {
	if len(xs) == 0 {
		return Stats{}
	}
	s := Stats{Min: xs[0], Max: xs[0]}
	var sum float64
	for _, x := range xs {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
		sum += x
	}
	s.Mean = sum / float64(len(xs))
	if len(xs) > 1 {
		var ss float64
		for _, x := range xs {
			ss += (x - s.Mean) * (x - s.Mean)
		}
		s.Std = math.Sqrt(ss / float64(len(xs)-1))
	}
	return s
}
