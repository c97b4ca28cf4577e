package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/chazu/weldscan/pkg/geometry"
	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/spatial"
	"github.com/chazu/weldscan/pkg/weld"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// ErrNoShape is returned by Session methods that need a loaded shape.
var ErrNoShape = errors.New("analysis: no shape loaded")

// Session holds one user's working state: the loaded model, the current
// parameters and the last result. Sessions share nothing, so any number
// may run side by side. All methods are safe for concurrent use; an
// in-flight Analyze keeps the parameters it started with.
type Session struct {
	ID string

	mu     sync.RWMutex
	model  *Model
	params weld.Parameters
	opts   Options
	last   *Result
}

// NewSession creates a session with validated parameters.
func NewSession(p weld.Parameters, opts Options) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Session{ID: uuid.NewString(), params: p, opts: opts}, nil
}

// Load prepares s and makes it the session's model, dropping the previous
// result.
func (s *Session) Load(ctx context.Context, shape kernel.Shape) error {
	m, err := Prepare(ctx, shape)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.model, s.last = m, nil
	s.mu.Unlock()
	slog.Info("shape loaded",
		slog.String("session", s.ID),
		slog.Int("edges", m.index.Len()),
		slog.Int("faces", len(shape.Faces())),
	)
	return nil
}

// Clear drops the model and the last result. Parameters are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	s.model, s.last = nil, nil
	s.mu.Unlock()
}

// Loaded reports whether a model is loaded.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Model returns the loaded model.
func (s *Session) Model() (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, ErrNoShape
	}
	return s.model, nil
}

// Parameters returns a copy of the current parameters.
func (s *Session) Parameters() weld.Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParameters replaces the parameters after validating them.
func (s *Session) SetParameters(p weld.Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	return nil
}

// UpdateParameters merges a partial update. On error the parameters are
// unchanged.
func (s *Session) UpdateParameters(pp weld.ParameterPatch) (weld.Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.params.Apply(pp)
	if err != nil {
		return s.params, err
	}
	s.params = p
	return p, nil
}

// Analyze runs the loaded model against a snapshot of the current
// parameters. The result is kept as LastResult unless another shape was
// loaded meanwhile.
func (s *Session) Analyze(ctx context.Context) (*Result, error) {
	s.mu.RLock()
	m, p, opts := s.model, s.params, s.opts
	s.mu.RUnlock()
	if m == nil {
		return nil, ErrNoShape
	}
	res, err := m.Analyze(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.model == m {
		s.last = res
	}
	s.mu.Unlock()
	slog.Info("analysis finished",
		slog.String("session", s.ID),
		slog.String("run", res.RunID),
		slog.Int("welds", res.Summary.Total),
	)
	return res, nil
}

// LastResult returns the result of the latest completed Analyze on the
// current model, or nil.
func (s *Session) LastResult() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// DescribeEdges describes edges of the loaded model.
func (s *Session) DescribeEdges(ids []kernel.EdgeID) ([]geometry.EdgeDescriptor, error) {
	m, err := s.Model()
	if err != nil {
		return nil, err
	}
	return m.DescribeEdges(ids)
}

// ListEdges lists the edges of the loaded model.
func (s *Session) ListEdges() ([]EdgeSummary, error) {
	m, err := s.Model()
	if err != nil {
		return nil, err
	}
	return m.ListEdges(), nil
}

// PickEdge finds the edge of the loaded model nearest to p.
func (s *Session) PickEdge(p v3.Vec, radius float64) (spatial.EdgeHit, bool, error) {
	m, err := s.Model()
	if err != nil {
		return spatial.EdgeHit{}, false, err
	}
	hit, ok := m.PickEdge(p, radius)
	return hit, ok, nil
}

// Topology reports the topology of the loaded model.
func (s *Session) Topology() (TopologyReport, error) {
	m, err := s.Model()
	if err != nil {
		return TopologyReport{}, err
	}
	return m.Topology(), nil
}

// Bounds returns the bounding box of the loaded model.
func (s *Session) Bounds() (geometry.Bounds, error) {
	m, err := s.Model()
	if err != nil {
		return geometry.Bounds{}, err
	}
	return m.Bounds(), nil
}
