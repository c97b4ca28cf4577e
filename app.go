package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chazu/weldscan/pkg/analysis"
	"github.com/chazu/weldscan/pkg/config"
	"github.com/chazu/weldscan/pkg/engine"
	"github.com/chazu/weldscan/pkg/geometry"
	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/kernel/sdfx"
	"github.com/chazu/weldscan/pkg/tessellate"
	"github.com/chazu/weldscan/pkg/topology"
	"github.com/chazu/weldscan/pkg/weld"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// faceColor is used for every face mesh; welds are colored by type.
const faceColor = "#9AA5B1"

// weldColors assigns a distinct color to each weld type.
var weldColors = map[weld.Type]string{
	weld.Fillet: "#E67E22",
	weld.Butt:   "#2ECC71",
	weld.Lap:    "#9B59B6",
	weld.Corner: "#E74C3C",
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	cfg     config.Config
	engine  *engine.Engine
	session *analysis.Session
	mesher  kernel.BeadMesher
	name    string
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// LoadResult is returned to the frontend after a model is evaluated.
type LoadResult struct {
	Name     string             `json:"name"`
	Meshes   []MeshData         `json:"meshes"`
	Errors   []EvalErrorData    `json:"errors"`
	Topology *topology.Summary  `json:"topology,omitempty"`
	Findings []topology.Finding `json:"findings"`
	Bounds   *geometry.Bounds   `json:"bounds,omitempty"`
}

// AnalyzeResult is the weld classification plus bead preview meshes.
type AnalyzeResult struct {
	Result *analysis.Result `json:"result,omitempty"`
	Beads  []MeshData       `json:"beads"`
	Error  string           `json:"error,omitempty"`
}

// PickResult is the edge nearest a picked point.
type PickResult struct {
	ID       string         `json:"id"`
	Distance float64        `json:"distance"`
	Point    geometry.Point `json:"point"`
}

// NewApp creates an App with a fresh session using cfg.
func NewApp(cfg config.Config) (*App, error) {
	s, err := analysis.NewSession(cfg.WeldParameters(), analysis.Options{Workers: cfg.Workers})
	if err != nil {
		return nil, err
	}
	return &App{
		ctx:     context.Background(),
		cfg:     cfg,
		engine:  engine.NewEngine(),
		session: s,
		mesher:  sdfx.New(cfg.Bead.Cells),
	}, nil
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// LoadModel evaluates model source, loads the resulting shape into the
// session and returns its face meshes. Parameters reset to the configured
// defaults before the model's own overrides apply.
func (a *App) LoadModel(source string) LoadResult {
	result := LoadResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Findings: []topology.Finding{},
	}
	fail := func(msg string) LoadResult {
		result.Errors = append(result.Errors, EvalErrorData{Message: msg})
		return result
	}

	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		slog.Error("evaluate failed", slog.Any("error", err))
		return fail(err.Error())
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	if err := a.session.SetParameters(a.cfg.WeldParameters()); err != nil {
		return fail(err.Error())
	}
	if _, err := a.session.UpdateParameters(m.Patch); err != nil {
		return fail(err.Error())
	}
	if err := a.session.Load(a.ctx, m.Shape); err != nil {
		return fail(err.Error())
	}
	a.name = m.Name
	result.Name = m.Name

	report, err := a.session.Topology()
	if err != nil {
		return fail(err.Error())
	}
	result.Topology = &report.Summary
	if report.Findings != nil {
		result.Findings = report.Findings
	}

	if b, err := a.session.Bounds(); err == nil {
		result.Bounds = &b
	}

	faces, err := tessellate.Faces(m.Shape, a.cfg.Mesh.LinearDeflection, a.cfg.Mesh.AngularDeflection)
	if err != nil {
		slog.Error("tessellate failed", slog.Any("error", err))
		return fail("tessellation failed: " + err.Error())
	}
	for _, f := range faces {
		result.Meshes = append(result.Meshes, meshData(f, faceColor))
	}
	return result
}

// Analyze classifies the loaded shape and builds bead previews.
func (a *App) Analyze() AnalyzeResult {
	out := AnalyzeResult{Beads: []MeshData{}}
	res, err := a.session.Analyze(a.ctx)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Result = res

	model, err := a.session.Model()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	beads, err := tessellate.Beads(a.ctx, res.Welds, model, a.mesher, a.cfg.Bead.Radius)
	if err != nil {
		// The classification stands; only the preview is missing.
		slog.Warn("bead meshing failed", slog.Any("error", err))
		return out
	}
	for i, b := range beads {
		out.Beads = append(out.Beads, meshData(b, weldColors[res.Welds[i].Type]))
	}
	return out
}

// DescribeEdges returns descriptors for the given ids ("EDGE_3" or "3").
// An empty list describes every edge.
func (a *App) DescribeEdges(ids []string) ([]geometry.EdgeDescriptor, error) {
	if len(ids) == 0 {
		m, err := a.session.Model()
		if err != nil {
			return nil, err
		}
		return m.DescribeEdges(m.Shape().Edges())
	}
	parsed := make([]kernel.EdgeID, 0, len(ids))
	for _, s := range ids {
		id, err := kernel.ParseEdgeID(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, id)
	}
	return a.session.DescribeEdges(parsed)
}

// ListEdges returns the edge inventory of the loaded shape.
func (a *App) ListEdges() ([]analysis.EdgeSummary, error) {
	return a.session.ListEdges()
}

// PickEdge finds the edge nearest (x, y, z) within radius. A miss returns
// nil without error.
func (a *App) PickEdge(x, y, z, radius float64) (*PickResult, error) {
	hit, ok, err := a.session.PickEdge(v3.Vec{X: x, Y: y, Z: z}, radius)
	if err != nil || !ok {
		return nil, err
	}
	return &PickResult{ID: hit.Edge.String(), Distance: hit.Distance, Point: geometry.P(hit.Point)}, nil
}

// GetParameters returns the current weld parameters.
func (a *App) GetParameters() weld.Parameters {
	return a.session.Parameters()
}

// SetParameters replaces the weld parameters.
func (a *App) SetParameters(p weld.Parameters) error {
	return a.session.SetParameters(p)
}

// UpdateParameters merges a partial update into the weld parameters.
func (a *App) UpdateParameters(pp weld.ParameterPatch) (weld.Parameters, error) {
	return a.session.UpdateParameters(pp)
}

// ResetParameters restores the configured defaults.
func (a *App) ResetParameters() weld.Parameters {
	if err := a.session.SetParameters(a.cfg.WeldParameters()); err != nil {
		slog.Error("reset parameters", slog.Any("error", err))
	}
	return a.session.Parameters()
}

// Clear unloads the current shape.
func (a *App) Clear() {
	a.session.Clear()
	a.name = ""
}

// Title is the window title for the loaded model.
func (a *App) Title() string {
	if strings.TrimSpace(a.name) == "" {
		return "weldscan"
	}
	return fmt.Sprintf("weldscan - %s", a.name)
}

func meshData(m *kernel.Mesh, color string) MeshData {
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Name:     m.Name,
		Color:    color,
	}
}
