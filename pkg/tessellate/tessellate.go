// Package tessellate produces display meshes for an analysed shape: one
// mesh per face from the B-Rep kernel and one bead mesh per classified
// weld from a kernel.BeadMesher.
package tessellate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/weld"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/sync/errgroup"
)

// Options controls mesh resolution.
type Options struct {
	LinearDeflection  float64
	AngularDeflection float64
	BeadRadius        float64
}

// PolylineSource samples an edge for bead sweeping. *analysis.Model
// implements it.
type PolylineSource interface {
	Polyline(id kernel.EdgeID) ([]v3.Vec, error)
}

// Scene is everything a viewer needs to draw one analysis.
type Scene struct {
	Faces []*kernel.Mesh `json:"faces"`
	Welds []*kernel.Mesh `json:"welds"`
}

// Faces triangulates every face of s in enumeration order. The
// tessellator is read-only and never mutates the shape.
func Faces(s kernel.Shape, linear, angular float64) ([]*kernel.Mesh, error) {
	if s == nil {
		return nil, nil
	}
	faces := s.Faces()
	meshes := make([]*kernel.Mesh, 0, len(faces))
	for _, id := range faces {
		m, err := s.Triangulate(id, linear, angular)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %s: %w", id, err)
		}
		if m.Name == "" {
			m.Name = id.String()
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

// Beads sweeps a bead along each weld in results. Non-weld results are
// skipped. Output order follows results.
func Beads(ctx context.Context, results []weld.Result, src PolylineSource, bm kernel.BeadMesher, radius float64) ([]*kernel.Mesh, error) {
	var welds []weld.Result
	for _, r := range results {
		if r.IsWeld() {
			welds = append(welds, r)
		}
	}
	meshes := make([]*kernel.Mesh, len(welds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range welds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := src.Polyline(r.Edge)
			if err != nil {
				return fmt.Errorf("tessellate: %s: %w", r.ID, err)
			}
			m, err := bm.Bead(path, radius)
			if err != nil {
				return fmt.Errorf("tessellate: bead %s: %w", r.ID, err)
			}
			m.Name = r.ID
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// Build assembles face and bead meshes. A nil mesher skips beads.
func Build(ctx context.Context, s kernel.Shape, res *weld.AnalysisResult, src PolylineSource, bm kernel.BeadMesher, opts Options) (*Scene, error) {
	faces, err := Faces(s, opts.LinearDeflection, opts.AngularDeflection)
	if err != nil {
		return nil, err
	}
	scene := &Scene{Faces: faces, Welds: []*kernel.Mesh{}}
	if res == nil || bm == nil || src == nil {
		return scene, nil
	}
	beads, err := Beads(ctx, res.Welds, src, bm, opts.BeadRadius)
	if err != nil {
		return nil, err
	}
	scene.Welds = beads
	return scene, nil
}
