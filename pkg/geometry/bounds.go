package geometry

import (
	"fmt"

	"github.com/chazu/weldscan/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Bounds is the model bounding box as shown by the viewer.
type Bounds struct {
	Min    Point `json:"min"`
	Max    Point `json:"max"`
	Center Point `json:"center"`
	Size   Point `json:"size"`
}

// Diagonal returns the length of the box diagonal.
func (b Bounds) Diagonal() float64 {
	return b.Max.Vec().Sub(b.Min.Vec()).Length()
}

// shapeBounds covers every vertex and sampled edge point.
func shapeBounds(s kernel.Shape) (Bounds, error) {
	var pts []v3.Vec
	for _, vid := range s.Vertices() {
		v, err := s.Vertex(vid)
		if err != nil {
			return Bounds{}, fmt.Errorf("geometry: %w", err)
		}
		pts = append(pts, v.Point)
	}
	for _, eid := range s.Edges() {
		e, err := s.Edge(eid)
		if err != nil {
			return Bounds{}, fmt.Errorf("geometry: %w", err)
		}
		pts = append(pts, polyline(e)...)
	}
	if len(pts) == 0 {
		return Bounds{}, nil
	}
	box := boxOf(pts)
	lo, hi := box.Min.Vec(), box.Max.Vec()
	return Bounds{
		Min:    box.Min,
		Max:    box.Max,
		Center: P(lo.Add(hi).MulScalar(0.5)),
		Size:   P(hi.Sub(lo)),
	}, nil
}
