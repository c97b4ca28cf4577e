package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// zeroLength is the length below which a vector has no usable direction.
const zeroLength = 1e-12

// Unit normalizes v, reporting false for a (near) zero vector.
func Unit(v v3.Vec) (v3.Vec, bool) {
	l := v.Length()
	if l < zeroLength || math.IsNaN(l) {
		return v3.Vec{}, false
	}
	return v.DivScalar(l), true
}

// AnyPerpendicular returns a unit vector perpendicular to n.
func AnyPerpendicular(n v3.Vec) v3.Vec {
	ref := v3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = v3.Vec{Y: 1}
	}
	p, ok := Unit(n.Cross(ref))
	if !ok {
		return v3.Vec{Z: 1}
	}
	return p
}

// AngleBetween returns the angle between a and b in degrees, in [0, 180].
func AngleBetween(a, b v3.Vec) float64 {
	la, lb := a.Length(), b.Length()
	if la < zeroLength || lb < zeroLength {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// Distance returns |a - b|.
func Distance(a, b v3.Vec) float64 {
	return a.Sub(b).Length()
}
