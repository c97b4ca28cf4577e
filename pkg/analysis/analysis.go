// Package analysis runs weld detection on a shape: it builds the adjacency
// index, filters candidate edges, measures them in parallel and classifies
// them against a parameter snapshot.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/chazu/weldscan/pkg/geometry"
	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/spatial"
	"github.com/chazu/weldscan/pkg/topology"
	"github.com/chazu/weldscan/pkg/weld"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidShape is returned for a nil shape, or a shape with faces but
// no edges or edges but no faces. A shape with neither is valid and
// analyzes to an empty result.
var ErrInvalidShape = errors.New("analysis: invalid shape")

// Options tune a run without changing its result.
type Options struct {
	// Workers bounds the classification fan-out; 0 means GOMAXPROCS.
	Workers int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Result is the outcome of one analysis run.
type Result struct {
	weld.AnalysisResult
	RunID    string             `json:"run_id"`
	Findings []topology.Finding `json:"findings,omitempty"`
}

// Model is a shape prepared for analysis: validated, indexed and with
// every face measured. It is immutable and may be analyzed any number of
// times, concurrently, with different parameters.
type Model struct {
	shape     kernel.Shape
	index     *topology.Index
	describer *geometry.Describer

	pickOnce sync.Once
	pick     *spatial.EdgeIndex
}

// Prepare validates s and builds its index. This is the single-threaded
// step every analysis of s shares.
func Prepare(ctx context.Context, s kernel.Shape) (*Model, error) {
	_, span := startSpan(ctx, "analysis.Prepare")
	m, err := prepare(s)
	if err == nil {
		span.SetAttributes(
			attribute.Int("edges", m.index.Len()),
			attribute.Int("faces", len(s.Faces())),
		)
	}
	endSpan(span, err)
	return m, err
}

func prepare(s kernel.Shape) (*Model, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no shape", ErrInvalidShape)
	}
	faces, edges := len(s.Faces()), len(s.Edges())
	switch {
	case faces > 0 && edges == 0:
		return nil, fmt.Errorf("%w: %d faces but no edges", ErrInvalidShape, faces)
	case edges > 0 && faces == 0:
		return nil, fmt.Errorf("%w: %d edges but no faces", ErrInvalidShape, edges)
	}
	ix, err := topology.Build(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	d, err := geometry.NewDescriber(s, ix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return &Model{shape: s, index: ix, describer: d}, nil
}

// Shape returns the prepared shape.
func (m *Model) Shape() kernel.Shape { return m.shape }

// Index returns the adjacency index.
func (m *Model) Index() *topology.Index { return m.index }

// Describer returns the geometry describer.
func (m *Model) Describer() *geometry.Describer { return m.describer }

// Analyze classifies every candidate edge of s. It is Prepare followed by
// Model.Analyze.
func Analyze(ctx context.Context, s kernel.Shape, p weld.Parameters, opts Options) (*Result, error) {
	if err := p.Validate(); err != nil {
		analyzeTotal.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}
	m, err := Prepare(ctx, s)
	if err != nil {
		analyzeTotal.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}
	return m.Analyze(ctx, p, opts)
}

// Analyze classifies every candidate edge against p. Parameters are
// validated before any edge is touched. Per-edge failures become
// diagnostics; only an invalid parameter set or a cancelled ctx fail the
// run. The result is identical for any worker count.
func (m *Model) Analyze(ctx context.Context, p weld.Parameters, opts Options) (res *Result, err error) {
	start := time.Now()
	ctx, span := startSpan(ctx, "analysis.Analyze")
	defer func() {
		analyzeDuration.Observe(time.Since(start).Seconds())
		switch {
		case err == nil:
			analyzeTotal.WithLabelValues(resultOK).Inc()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			analyzeTotal.WithLabelValues(resultCancelled).Inc()
		default:
			analyzeTotal.WithLabelValues(resultInvalid).Inc()
		}
		endSpan(span, err)
	}()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	_, fspan := startSpan(ctx, "analysis.Filter")
	filtered := weld.Filter(m.index, m.describer.Edge, p.NoiseFloor)
	fspan.SetAttributes(attribute.Int("candidates", len(filtered.Selected)))
	endSpan(fspan, nil)
	for reason, n := range filtered.Rejected {
		edgeDiagnostics.WithLabelValues(string(reason)).Add(float64(n))
	}

	results, err := m.classify(ctx, filtered.Selected, p, opts.workers())
	if err != nil {
		return nil, err
	}

	_, aspan := startSpan(ctx, "analysis.Aggregate")
	agg := weld.Aggregate(results)
	aspan.SetAttributes(attribute.Int("welds", agg.Summary.Total))
	endSpan(aspan, nil)
	for _, r := range results {
		edgesClassified.WithLabelValues(r.Type.String()).Inc()
		if r.Diagnostic != "" {
			edgeDiagnostics.WithLabelValues(weld.ReasonDegenerateGeometry).Inc()
		}
	}

	res = &Result{
		AnalysisResult: agg,
		RunID:          uuid.NewString(),
		Findings:       m.findings(filtered.Degenerate),
	}
	slog.Debug("analysis complete",
		slog.String("run", res.RunID),
		slog.Int("edges", m.index.Len()),
		slog.Int("candidates", len(filtered.Selected)),
		slog.Int("welds", agg.Summary.Total),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// classify measures and classifies candidates over fixed contiguous
// partitions, one goroutine each. Every result lands in its candidate's
// slot, so output order does not depend on scheduling.
func (m *Model) classify(ctx context.Context, sel []weld.Selection, p weld.Parameters, workers int) ([]weld.Result, error) {
	ctx, span := startSpan(ctx, "analysis.Classify",
		attribute.Int("candidates", len(sel)),
		attribute.Int("workers", workers),
	)
	results := make([]weld.Result, len(sel))
	if workers > len(sel) {
		workers = len(sel)
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*len(sel)/workers, (w+1)*len(sel)/workers
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = weld.Classify(m.candidate(sel[i]), p)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Edge < results[j].Edge })
	return results, nil
}

// candidate measures one selected edge. A dihedral failure is recorded as
// a diagnostic rather than returned.
func (m *Model) candidate(sel weld.Selection) weld.Candidate {
	ent, eg := sel.Entry, sel.Geometry
	c := weld.Candidate{
		Edge:     ent.Edge,
		ID:       ent.Edge.String(),
		Hash:     geometry.PersistentHash(eg),
		Length:   eg.Length,
		Position: eg.Middle,
	}
	for i, f := range ent.Faces[:2] {
		c.Faces[i], _ = m.describer.Face(f)
	}
	dh, err := m.describer.Dihedral(ent, eg)
	if err != nil {
		slog.Debug("edge not classifiable", slog.String("edge", c.ID), slog.Any("error", err))
		c.Diagnostic = err.Error()
		return c
	}
	c.Dihedral = dh
	for i, f := range ent.Faces[:2] {
		c.Thickness[i] = m.describer.PlateThickness(ent, f, eg)
	}
	return c
}

// findings adds the degenerate edges found by weld.Filter to the topology
// findings.
func (m *Model) findings(degenerate []kernel.EdgeID) []topology.Finding {
	out := m.index.Findings()
	for _, id := range degenerate {
		msg := "edge geometry cannot be evaluated"
		if eg, err := m.describer.Edge(id); err == nil {
			msg = fmt.Sprintf("edge length %.3g is below its tolerance", eg.Length)
		}
		out = append(out, topology.Finding{
			Edge:     id.String(),
			Code:     topology.CodeDegenerateEdge,
			Message:  msg,
			Severity: topology.SeverityWarning,
		})
	}
	return out
}

// DescribeEdges returns the full descriptor of each edge, in the order
// given. An unknown id fails the whole call.
func (m *Model) DescribeEdges(ids []kernel.EdgeID) ([]geometry.EdgeDescriptor, error) {
	out := make([]geometry.EdgeDescriptor, 0, len(ids))
	for _, id := range ids {
		d, err := m.describer.Describe(id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DescribeEdges is Prepare followed by Model.DescribeEdges.
func DescribeEdges(ctx context.Context, s kernel.Shape, ids []kernel.EdgeID) ([]geometry.EdgeDescriptor, error) {
	m, err := Prepare(ctx, s)
	if err != nil {
		return nil, err
	}
	return m.DescribeEdges(ids)
}

// EdgeSummary is one line of the edge inventory.
type EdgeSummary struct {
	ID        string  `json:"id"`
	Hash      string  `json:"hash"`
	CurveType string  `json:"curve_type"`
	Length    float64 `json:"length"`
}

// ListEdges returns the inventory of every edge in ascending id order.
// Edges that cannot be measured are skipped.
func (m *Model) ListEdges() []EdgeSummary {
	out := make([]EdgeSummary, 0, m.index.Len())
	for _, ent := range m.index.Entries() {
		eg, err := m.describer.Edge(ent.Edge)
		if err != nil {
			continue
		}
		out = append(out, EdgeSummary{
			ID:        ent.Edge.String(),
			Hash:      geometry.PersistentHash(eg),
			CurveType: eg.CurveType,
			Length:    eg.Length,
		})
	}
	return out
}

// TopologyReport is the topology dump of a model.
type TopologyReport struct {
	Summary       topology.Summary    `json:"summary"`
	FaceAdjacency map[string][]string `json:"face_adjacency"`
	VertexEdges   map[string][]string `json:"vertex_edges"`
	Findings      []topology.Finding  `json:"findings,omitempty"`
}

// Topology reports edge counts, adjacency maps and findings.
func (m *Model) Topology() TopologyReport {
	return TopologyReport{
		Summary:       m.index.Summary(),
		FaceAdjacency: m.index.FaceAdjacency(),
		VertexEdges:   m.index.VertexEdgeMap(),
		Findings:      m.findings(weld.Filter(m.index, m.describer.Edge, 0).Degenerate),
	}
}

// Bounds returns the model bounding box.
func (m *Model) Bounds() geometry.Bounds { return m.describer.Bounds() }

// Polyline samples an edge for display.
func (m *Model) Polyline(id kernel.EdgeID) ([]v3.Vec, error) {
	return m.describer.Polyline(id)
}

// PickEdge returns the edge nearest to p within radius. The pick index is
// built on first use.
func (m *Model) PickEdge(p v3.Vec, radius float64) (spatial.EdgeHit, bool) {
	m.pickOnce.Do(func() {
		paths := make(map[kernel.EdgeID][]v3.Vec, m.index.Len())
		for _, ent := range m.index.Entries() {
			if pts, err := m.describer.Polyline(ent.Edge); err == nil {
				paths[ent.Edge] = pts
			}
		}
		m.pick = spatial.NewEdgeIndex(paths)
	})
	return m.pick.Nearest(p, radius)
}
