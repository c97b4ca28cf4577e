package spatial_test

import (
	"math"
	"testing"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/spatial"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeIndexNearest(t *testing.T) {
	ix := spatial.NewEdgeIndex(map[kernel.EdgeID][]v3.Vec{
		0: {{}, {X: 10}},
		1: {{Y: 5}, {X: 10, Y: 5}},
		2: {{Z: 3}, {X: 5, Z: 3}, {X: 10, Z: 8}},
	})

	tests := []struct {
		name   string
		p      v3.Vec
		radius float64
		want   kernel.EdgeID
		dist   float64
		ok     bool
	}{
		{"on first edge", v3.Vec{X: 4}, 1, 0, 0, true},
		{"closer to second", v3.Vec{X: 4, Y: 4}, 2, 1, 1, true},
		{"second polyline segment", v3.Vec{X: 5, Z: 4}, 2, 2, math.Sqrt2 / 2, true},
		{"polyline vertex", v3.Vec{X: 5, Z: 2}, 2, 2, 1, true},
		{"outside radius", v3.Vec{X: 4, Y: 2.5, Z: 20}, 1, 0, 0, false},
		{"zero radius", v3.Vec{X: 4}, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := ix.Nearest(tt.p, tt.radius)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, hit.Edge)
			assert.InDelta(t, tt.dist, hit.Distance, 1e-9)
		})
	}
}

func TestEdgeIndexTieBreaksOnLowerID(t *testing.T) {
	ix := spatial.NewEdgeIndex(map[kernel.EdgeID][]v3.Vec{
		7: {{Y: 1}, {X: 10, Y: 1}},
		3: {{Y: -1}, {X: 10, Y: -1}},
	})
	hit, ok := ix.Nearest(v3.Vec{X: 5}, 2)
	require.True(t, ok)
	assert.Equal(t, kernel.EdgeID(3), hit.Edge)
}

func TestEdgeIndexEmpty(t *testing.T) {
	ix := spatial.NewEdgeIndex(nil)
	_, ok := ix.Nearest(v3.Vec{}, 100)
	assert.False(t, ok)

	var nilIndex *spatial.EdgeIndex
	_, ok = nilIndex.Nearest(v3.Vec{}, 100)
	assert.False(t, ok)
}

// plate returns the two large walls of a plate of the given thickness lying
// on z=0.
func plate(thickness float64) []spatial.PlanarFace {
	return []spatial.PlanarFace{
		{
			Face:   0,
			Origin: v3.Vec{},
			Normal: v3.Vec{Z: -1},
			Bounds: sdf.Box3{Min: v3.Vec{}, Max: v3.Vec{X: 100, Y: 50}},
		},
		{
			Face:   1,
			Origin: v3.Vec{Z: thickness},
			Normal: v3.Vec{Z: 1},
			Bounds: sdf.Box3{Min: v3.Vec{Z: thickness}, Max: v3.Vec{X: 100, Y: 50, Z: thickness}},
		},
	}
}

func TestFaceIndexProbe(t *testing.T) {
	ix := spatial.NewFaceIndex(plate(6), 1e-6)

	hit, ok := ix.Probe(0, v3.Vec{X: 20, Y: 20}, v3.Vec{Z: 1}, 1000)
	require.True(t, ok)
	assert.Equal(t, kernel.FaceID(1), hit.Face)
	assert.InDelta(t, 6, hit.Distance, 1e-9)

	hit, ok = ix.Probe(1, v3.Vec{X: 20, Y: 20, Z: 6}, v3.Vec{Z: -1}, 1000)
	require.True(t, ok)
	assert.Equal(t, kernel.FaceID(0), hit.Face)
	assert.InDelta(t, 6, hit.Distance, 1e-9)
}

func TestFaceIndexProbeMisses(t *testing.T) {
	ix := spatial.NewFaceIndex(plate(6), 1e-6)

	tests := []struct {
		name   string
		from   kernel.FaceID
		origin v3.Vec
		dir    v3.Vec
		max    float64
	}{
		{"outside the face bounds", 0, v3.Vec{X: 200, Y: 20}, v3.Vec{Z: 1}, 1000},
		{"pointing away", 0, v3.Vec{X: 20, Y: 20}, v3.Vec{Z: -1}, 1000},
		{"beyond max distance", 0, v3.Vec{X: 20, Y: 20}, v3.Vec{Z: 1}, 5},
		{"sideways", 0, v3.Vec{X: 20, Y: 20}, v3.Vec{X: 1}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ix.Probe(tt.from, tt.origin, tt.dir, tt.max)
			assert.False(t, ok)
		})
	}
}

func TestFaceIndexProbePicksNearestWall(t *testing.T) {
	faces := append(plate(6), spatial.PlanarFace{
		Face:   2,
		Origin: v3.Vec{Z: 20},
		Normal: v3.Vec{Z: 1},
		Bounds: sdf.Box3{Min: v3.Vec{Z: 20}, Max: v3.Vec{X: 100, Y: 50, Z: 20}},
	})
	ix := spatial.NewFaceIndex(faces, 1e-6)
	hit, ok := ix.Probe(0, v3.Vec{X: 1, Y: 1}, v3.Vec{Z: 1}, 1000)
	require.True(t, ok)
	assert.Equal(t, kernel.FaceID(1), hit.Face)
}
