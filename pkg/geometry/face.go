package geometry

import (
	"fmt"

	"github.com/chazu/weldscan/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type PlaneInfo struct {
	Origin Point `json:"origin"`
	Normal Point `json:"normal"`
}

type CylinderInfo struct {
	Origin Point   `json:"origin"`
	Axis   Point   `json:"axis"`
	Radius float64 `json:"radius"`
}

// FaceGeometry holds the measurements of one face.
type FaceGeometry struct {
	Face           kernel.FaceID      `json:"-"`
	Kind           kernel.SurfaceKind `json:"-"`
	ID             string             `json:"id"`
	SurfaceType    string             `json:"surface_type"`
	Area           float64            `json:"area"`
	Centroid       Point              `json:"centroid"`
	NormalAtCenter *Point             `json:"normal_at_center"`
	EdgeCount      int                `json:"edge_count"`
	VertexCount    int                `json:"vertex_count"`
	Orientation    string             `json:"orientation"`
	BBox           Box                `json:"bbox"`
	BBoxDiagonal   float64            `json:"bbox_diagonal"`
	Plane          *PlaneInfo         `json:"plane,omitempty"`
	Cylinder       *CylinderInfo      `json:"cylinder,omitempty"`
}

func describeFace(s kernel.Shape, id kernel.FaceID, f kernel.FaceData) (FaceGeometry, error) {
	props, err := s.FaceProps(id)
	if err != nil {
		return FaceGeometry{}, fmt.Errorf("geometry: %w", err)
	}
	g := FaceGeometry{
		Face:        id,
		Kind:        f.Surface.Kind(),
		ID:          id.String(),
		SurfaceType: f.Surface.Kind().String(),
		Area:        props.Area,
		Centroid:    P(props.Centroid),
		Orientation: "forward",
	}
	if f.Reversed {
		g.Orientation = "reversed"
	}

	edges := make(map[kernel.EdgeID]bool)
	vertices := make(map[kernel.VertexID]bool)
	var pts []v3.Vec
	for _, w := range f.Wires {
		for _, u := range w.Uses {
			if edges[u.Edge] {
				continue
			}
			edges[u.Edge] = true
			e, err := s.Edge(u.Edge)
			if err != nil {
				return FaceGeometry{}, fmt.Errorf("geometry: %s: %w", id, err)
			}
			vertices[e.Start] = true
			vertices[e.End] = true
			pts = append(pts, polyline(e)...)
		}
	}
	g.EdgeCount = len(edges)
	g.VertexCount = len(vertices)
	g.BBox = boxOf(pts)
	g.BBoxDiagonal = g.BBox.Diagonal()

	if n, ok := f.OutwardNormal(f.Surface.Project(props.Centroid)); ok {
		p := P(n)
		g.NormalAtCenter = &p
	}

	switch sf := f.Surface.(type) {
	case kernel.Plane:
		n, _ := f.OutwardNormal(sf.Origin)
		g.Plane = &PlaneInfo{Origin: P(sf.Origin), Normal: P(n)}
	case kernel.Cylinder:
		axis, _ := kernel.Unit(sf.Axis)
		g.Cylinder = &CylinderInfo{Origin: P(sf.Origin), Axis: P(axis), Radius: sf.Radius}
	case kernel.Sphere, kernel.OtherSurface:
	}
	return g, nil
}
