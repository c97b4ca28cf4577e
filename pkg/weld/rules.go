package weld

import "math"

// Corner sub-classification.
const (
	// LCornerMin and LCornerMax bound the near-perpendicular band of an
	// L or T corner, in degrees.
	LCornerMin = 85.0
	LCornerMax = 95.0
	// TCornerAreaRatio is the face area ratio above which a
	// near-perpendicular corner is a T: one plate butts into the middle
	// of a larger one.
	TCornerAreaRatio = 3.0
)

// Rule is one step of the classification cascade. Match decides whether
// the rule applies; Score is only called on a match.
type Rule struct {
	Type  Type
	Match func(c Candidate, tp TypeParams) bool
	Score func(c Candidate, tp TypeParams) (float64, Subtype)
}

// Rules is the cascade in priority order. The first matching rule wins,
// so an angle inside two ranges takes the earlier type.
var Rules = []Rule{
	{Type: Fillet, Match: matchRange, Score: scoreAngle},
	{Type: Butt, Match: matchRange, Score: scoreAngle},
	{Type: Lap, Match: matchLap, Score: scoreAngle},
	{Type: Corner, Match: matchRange, Score: scoreCorner},
}

func inRange(a, lo, hi float64) bool {
	return a >= lo-AngleTolerance && a <= hi+AngleTolerance
}

func matchRange(c Candidate, tp TypeParams) bool {
	return c.Length >= tp.MinLength && inRange(c.Angle(), tp.MinAngle, tp.MaxAngle)
}

// matchLap treats max_angle as exclusive: plates nearly parallel.
func matchLap(c Candidate, tp TypeParams) bool {
	a := c.Angle()
	return c.Length >= tp.MinLength && a >= tp.MinAngle-AngleTolerance && a < tp.MaxAngle-AngleTolerance
}

func scoreAngle(c Candidate, tp TypeParams) (float64, Subtype) {
	return AngleScore(c.Angle(), tp), NoSubtype
}

// cornerLengthScale is the length at which a corner's length score
// saturates.
const cornerLengthScale = 50.0

func scoreCorner(c Candidate, tp TypeParams) (float64, Subtype) {
	conf := 0.7*AngleScore(c.Angle(), tp) + 0.3*math.Min(1, c.Length/cornerLengthScale)
	return clamp01(conf), CornerSubtype(c)
}

// CornerSubtype infers the plate arrangement of a corner from the angle
// and the relative face areas.
func CornerSubtype(c Candidate) Subtype {
	a := c.Angle()
	if !inRange(a, LCornerMin, LCornerMax) {
		return VCorner
	}
	a1, a2 := c.Faces[0].Area, c.Faces[1].Area
	small, big := math.Min(a1, a2), math.Max(a1, a2)
	if small > 0 && big/small >= TCornerAreaRatio {
		return TCorner
	}
	return LCorner
}

// AngleScore is 1 at the optimal angle and falls linearly to 0 at the
// range bound on the side the angle lies on.
func AngleScore(a float64, tp TypeParams) float64 {
	dev := math.Abs(a - tp.OptimalAngle)
	span := tp.MaxAngle - tp.OptimalAngle
	if a < tp.OptimalAngle {
		span = tp.OptimalAngle - tp.MinAngle
	}
	if span <= 0 {
		if dev <= AngleTolerance {
			return 1
		}
		return 0
	}
	return clamp01(1 - dev/span)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// Classify runs the cascade on one candidate. It never fails: a
// candidate with a diagnostic or matching no rule is NOT_A_WELD.
func Classify(c Candidate, p Parameters) Result {
	r := Result{
		Edge:            c.Edge,
		ID:              c.ID,
		Hash:            c.Hash,
		Type:            NotAWeld,
		Angle:           c.Angle(),
		Length:          c.Length,
		Position:        c.Position,
		Plate1Thickness: c.Thickness[0],
		Plate2Thickness: c.Thickness[1],
		Diagnostic:      c.Diagnostic,
	}
	if c.Diagnostic != "" {
		return r
	}
	for _, rule := range Rules {
		tp, _ := p.For(rule.Type)
		if !rule.Match(c, tp) {
			continue
		}
		r.Type = rule.Type
		r.Confidence, r.Subtype = rule.Score(c, tp)
		r.QualityScore = Quality(c, tp)
		return r
	}
	return r
}

// ClassifyAll classifies candidates in order.
func ClassifyAll(cs []Candidate, p Parameters) []Result {
	out := make([]Result, 0, len(cs))
	for _, c := range cs {
		out = append(out, Classify(c, p))
	}
	return out
}
