package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/weldscan/pkg/analysis"
	"github.com/chazu/weldscan/pkg/engine"
	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/weld"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Model loading
// ---------------------------------------------------------------------------

// readSource reads a model file; "-" reads stdin.
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// evaluate runs a model file through the engine.
func evaluate(cmd *cobra.Command, path string) (*engine.Model, error) {
	src, err := readSource(cmd, path)
	if err != nil {
		return nil, err
	}
	m, evalErrs, err := engine.NewEngine().Evaluate(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = fmt.Errorf("%s: %w", path, e)
		}
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// session evaluates path and loads it into a fresh session. Parameters
// are the configured ones, then the model's overrides, then sets.
func (g *globals) session(cmd *cobra.Command, path string, sets []string) (*analysis.Session, error) {
	m, err := evaluate(cmd, path)
	if err != nil {
		return nil, err
	}
	s, err := g.newSession(m, sets)
	if err != nil {
		return nil, err
	}
	if err := s.Load(cmd.Context(), m.Shape); err != nil {
		return nil, err
	}
	return s, nil
}

func (g *globals) newSession(m *engine.Model, sets []string) (*analysis.Session, error) {
	s, err := analysis.NewSession(g.cfg.WeldParameters(), analysis.Options{Workers: g.cfg.Workers})
	if err != nil {
		return nil, err
	}
	if m != nil {
		if _, err := s.UpdateParameters(m.Patch); err != nil {
			return nil, err
		}
	}
	patch, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	if _, err := s.UpdateParameters(patch); err != nil {
		return nil, err
	}
	return s, nil
}

// parseSets turns "fillet.min_angle=70" and "noise_floor=1" into a patch.
func parseSets(sets []string) (weld.ParameterPatch, error) {
	var pp weld.ParameterPatch
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		if !ok {
			return pp, fmt.Errorf("invalid --set %q (expected key=value)", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return pp, fmt.Errorf("invalid --set %q: %w", s, err)
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
		if key == "noise_floor" {
			pp.NoiseFloor = &v
			continue
		}
		typ, field, ok := strings.Cut(key, ".")
		if !ok {
			return pp, fmt.Errorf("invalid --set key %q (expected <type>.<field>)", key)
		}
		tp, err := typePatch(&pp, typ)
		if err != nil {
			return pp, err
		}
		switch field {
		case "min_angle":
			tp.MinAngle = &v
		case "max_angle":
			tp.MaxAngle = &v
		case "min_length":
			tp.MinLength = &v
		case "optimal_angle":
			tp.OptimalAngle = &v
		case "min_plate_thickness":
			tp.MinPlateThickness = &v
		case "max_plate_thickness":
			tp.MaxPlateThickness = &v
		default:
			return pp, fmt.Errorf("unknown parameter %q", key)
		}
	}
	return pp, nil
}

func typePatch(pp *weld.ParameterPatch, name string) (*weld.TypePatch, error) {
	t, err := weld.ParseType(strings.ToUpper(name))
	if err != nil || t == weld.NotAWeld {
		return nil, fmt.Errorf("unknown weld type %q", name)
	}
	slot := map[weld.Type]**weld.TypePatch{
		weld.Fillet: &pp.Fillet,
		weld.Butt:   &pp.Butt,
		weld.Lap:    &pp.Lap,
		weld.Corner: &pp.Corner,
	}[t]
	if *slot == nil {
		*slot = &weld.TypePatch{}
	}
	return *slot, nil
}

// ---------------------------------------------------------------------------
// analyze
// ---------------------------------------------------------------------------

func newAnalyzeCmd(g *globals) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:     "analyze <model>",
		Short:   "Classify every weld edge of a model",
		GroupID: "analysis",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd, args[0], sets)
			if err != nil {
				return err
			}
			res, err := s.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printAnalysisTable(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a parameter (fillet.min_angle=70, noise_floor=1; repeatable)")
	return cmd
}

// ---------------------------------------------------------------------------
// edges
// ---------------------------------------------------------------------------

func newEdgesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "edges <model> [EDGE_n ...]",
		Short: "List edges, or describe the given edges in full",
		Long: "Without edge ids, prints the edge inventory (id, hash, curve type, length).\n" +
			"With ids, prints the full JSON descriptor of each edge.",
		GroupID: "inspect",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd, args[0], nil)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				edges, err := s.ListEdges()
				if err != nil {
					return err
				}
				if g.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), edges)
				}
				printEdgeTable(cmd.OutOrStdout(), edges)
				return nil
			}
			ids := make([]kernel.EdgeID, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := kernel.ParseEdgeID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			desc, err := s.DescribeEdges(ids)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), desc)
		},
	}
}

// ---------------------------------------------------------------------------
// pick
// ---------------------------------------------------------------------------

func newPickCmd(g *globals) *cobra.Command {
	var radius float64
	cmd := &cobra.Command{
		Use:     "pick <model> <x> <y> <z>",
		Short:   "Find the edge nearest a point",
		GroupID: "inspect",
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c [3]float64
			for i, a := range args[1:] {
				f, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid coordinate %q: %w", a, err)
				}
				c[i] = f
			}
			s, err := g.session(cmd, args[0], nil)
			if err != nil {
				return err
			}
			hit, ok, err := s.PickEdge(v3.Vec{X: c[0], Y: c[1], Z: c[2]}, radius)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no edge within %g of (%g, %g, %g)", radius, c[0], c[1], c[2])
			}
			out := pickOutput{ID: hit.Edge.String(), Distance: hit.Distance, Point: [3]float64{hit.Point.X, hit.Point.Y, hit.Point.Z}}
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tdistance %.4g\tat (%.4g, %.4g, %.4g)\n",
				out.ID, out.Distance, out.Point[0], out.Point[1], out.Point[2])
			return nil
		},
	}
	cmd.Flags().Float64Var(&radius, "radius", 1, "search radius")
	return cmd
}

type pickOutput struct {
	ID       string     `json:"id"`
	Distance float64    `json:"distance"`
	Point    [3]float64 `json:"point"`
}

// ---------------------------------------------------------------------------
// topology
// ---------------------------------------------------------------------------

func newTopologyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "topology <model>",
		Short:   "Report edge counts, adjacency and topology findings",
		GroupID: "inspect",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd, args[0], nil)
			if err != nil {
				return err
			}
			rep, err := s.Topology()
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			printTopology(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// params
// ---------------------------------------------------------------------------

func newParamsCmd(g *globals) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "params [model]",
		Short: "Print the effective weld parameters",
		Long: "Prints the parameters an analysis would use: defaults, then the config file,\n" +
			"then the model's own overrides (when a model is given), then --set.",
		GroupID: "analysis",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *engine.Model
			if len(args) == 1 {
				var err error
				if m, err = evaluate(cmd, args[0]); err != nil {
					return err
				}
			}
			s, err := g.newSession(m, sets)
			if err != nil {
				return err
			}
			p := s.Parameters()
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(p); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a parameter (fillet.min_angle=70, noise_floor=1; repeatable)")
	return cmd
}
