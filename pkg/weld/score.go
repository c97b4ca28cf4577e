package weld

import "math"

// Quality weights. They sum to 1.
const (
	qualityAngleWeight     = 0.4
	qualityLengthWeight    = 0.25
	qualityVariationWeight = 0.2
	qualityThicknessWeight = 0.15
)

// Quality scores a classified candidate from 0 to 100. It never rises
// with angle deviation or curvature variation and never falls with
// length.
func Quality(c Candidate, tp TypeParams) float64 {
	q := qualityAngleWeight*AngleScore(c.Angle(), tp) +
		qualityLengthWeight*lengthScore(c.Length, tp.MinLength) +
		qualityVariationWeight/(1+c.Dihedral.Variation.Std) +
		qualityThicknessWeight*thicknessScore(c.Thickness, tp)
	return math.Max(0, math.Min(100, 100*q))
}

// lengthScore saturates at four times the minimum length.
func lengthScore(l, minLength float64) float64 {
	if minLength <= 0 {
		return 1
	}
	return clamp01(l / (4 * minLength))
}

// thicknessScore averages both plates: 1 in range, 0.5 when unknown or
// unconstrained, 0 out of range.
func thicknessScore(th [2]*float64, tp TypeParams) float64 {
	var sum float64
	for _, t := range th {
		switch {
		case t == nil || !tp.HasThicknessRange():
			sum += 0.5
		case *t >= tp.MinPlateThickness && *t <= tp.MaxPlateThickness:
			sum += 1
		}
	}
	return sum / 2
}
