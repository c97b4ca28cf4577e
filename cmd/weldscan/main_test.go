package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/weldscan/pkg/weld"
)

const teeModel = "../../examples/tee.weld"

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WELDSCAN_CONFIG", "")
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("weldscan %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func writeModel(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.weld")
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------------------------------------------------------------------------
// analyze
// ---------------------------------------------------------------------------

type analyzeJSON struct {
	Summary struct {
		Total  int            `json:"total"`
		ByType map[string]int `json:"by_type"`
	} `json:"summary"`
	Welds []struct {
		ID      string  `json:"id"`
		Type    string  `json:"type"`
		Subtype string  `json:"subtype"`
		Angle   float64 `json:"angle"`
	} `json:"welds"`
	RunID string `json:"run_id"`
}

func TestAnalyzeJSON(t *testing.T) {
	out := mustRun(t, "analyze", "--json", teeModel)
	var res analyzeJSON
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if res.Summary.Total != 1 {
		t.Fatalf("total = %d, want 1", res.Summary.Total)
	}
	w := res.Welds[0]
	if w.ID != "EDGE_1" || w.Type != "FILLET" {
		t.Errorf("weld = %s %s, want EDGE_1 FILLET", w.ID, w.Type)
	}
	if math.Abs(w.Angle-90) > 1e-6 {
		t.Errorf("angle = %f, want 90", w.Angle)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestAnalyzeSetOverride(t *testing.T) {
	out := mustRun(t, "analyze", "--json", "--set", "fillet.min_length=60", teeModel)
	var res analyzeJSON
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(res.Welds) != 1 || res.Welds[0].Type != "CORNER" || res.Welds[0].Subtype != "L_CORNER" {
		t.Errorf("welds = %+v, want one L_CORNER corner", res.Welds)
	}
}

func TestAnalyzeTable(t *testing.T) {
	out := mustRun(t, "analyze", teeModel)
	for _, want := range []string{"ID", "EDGE_1", "FILLET", "1 weld(s)", "FILLET=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeStdin(t *testing.T) {
	t.Setenv("WELDSCAN_CONFIG", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(`(plate-pair :length 50 :width 20 :angle 180)`))
	root.SetArgs([]string{"analyze", "--json", "-"})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out.String(), `"BUTT"`) {
		t.Errorf("expected a butt weld:\n%s", out.String())
	}
}

func TestAnalyzeEmptyModel(t *testing.T) {
	out := mustRun(t, "analyze", "--json", writeModel(t, "; nothing here\n"))
	var res analyzeJSON
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if res.Summary.Total != 0 || res.Welds == nil || len(res.Welds) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"missing file", []string{"analyze", "does-not-exist.weld"}, "no such file"},
		{"eval error", []string{"analyze", writeModel(t, "(box :min (vec3 0 0 0)")}, "model.weld"},
		{"bad set", []string{"analyze", "--set", "fillet.min_angle", teeModel}, "expected key=value"},
		{"unknown type", []string{"analyze", "--set", "spot.min_angle=3", teeModel}, "unknown weld type"},
		{"unknown field", []string{"analyze", "--set", "fillet.width=3", teeModel}, "unknown parameter"},
		{"no args", []string{"analyze"}, "accepts 1 arg"},
		{"bad log level", []string{"analyze", "--log-level", "loud", teeModel}, "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestAnalyzeInvalidParameters(t *testing.T) {
	_, err := run(t, "analyze", "--set", "fillet.min_angle=150", teeModel)
	if !errors.Is(err, weld.ErrParameterValidation) {
		t.Errorf("err = %v, want ErrParameterValidation", err)
	}
}

// ---------------------------------------------------------------------------
// edges / pick / topology
// ---------------------------------------------------------------------------

func TestEdgesInventory(t *testing.T) {
	out := mustRun(t, "edges", teeModel)
	if !strings.Contains(out, "EDGE_7") || strings.Contains(out, "EDGE_8") {
		t.Errorf("expected 7 edges:\n%s", out)
	}

	out = mustRun(t, "edges", "--json", teeModel)
	var edges []struct {
		ID   string `json:"id"`
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal([]byte(out), &edges); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(edges) != 7 {
		t.Fatalf("edges = %d, want 7", len(edges))
	}
	if len(edges[0].Hash) != 16 {
		t.Errorf("hash = %q, want 16 hex digits", edges[0].Hash)
	}
}

func TestEdgesDescribe(t *testing.T) {
	out := mustRun(t, "edges", teeModel, "EDGE_1", "2")
	var desc []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(desc) != 2 || desc[0].ID != "EDGE_1" || desc[1].ID != "EDGE_2" {
		t.Errorf("descriptors = %+v", desc)
	}

	if _, err := run(t, "edges", teeModel, "EDGE_99"); err == nil {
		t.Error("unknown edge should fail")
	}
	if _, err := run(t, "edges", teeModel, "EDGE_0"); err == nil {
		t.Error("EDGE_0 should fail to parse")
	}
}

func TestPick(t *testing.T) {
	out := mustRun(t, "pick", "--json", teeModel, "25", "0", "0.2")
	var hit pickOutput
	if err := json.Unmarshal([]byte(out), &hit); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if hit.ID != "EDGE_1" {
		t.Errorf("id = %s, want EDGE_1", hit.ID)
	}
	if math.Abs(hit.Distance-0.2) > 1e-9 {
		t.Errorf("distance = %f, want 0.2", hit.Distance)
	}

	if _, err := run(t, "pick", teeModel, "500", "0", "0"); err == nil {
		t.Error("expected a miss")
	}
	if _, err := run(t, "pick", teeModel, "x", "0", "0"); err == nil {
		t.Error("expected a coordinate error")
	}
}

func TestTopology(t *testing.T) {
	out := mustRun(t, "topology", "--json", teeModel)
	var rep struct {
		Summary struct {
			Potential int `json:"potential_weld_edges"`
			Boundary  int `json:"boundary_edges"`
		} `json:"summary"`
		FaceAdjacency map[string][]string `json:"face_adjacency"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rep.Summary.Potential != 1 || rep.Summary.Boundary != 6 {
		t.Errorf("summary = %+v", rep.Summary)
	}
	if got := rep.FaceAdjacency["FACE_1"]; len(got) != 1 || got[0] != "FACE_2" {
		t.Errorf("FACE_1 neighbours = %v", got)
	}

	out = mustRun(t, "topology", teeModel)
	if !strings.Contains(out, "Potential welds:") {
		t.Errorf("table output missing summary:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// params
// ---------------------------------------------------------------------------

func TestParamsDefaults(t *testing.T) {
	out := mustRun(t, "params", "--json")
	var p weld.Parameters
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p != weld.DefaultParameters() {
		t.Errorf("params = %+v, want defaults", p)
	}

	out = mustRun(t, "params")
	if !strings.Contains(out, "fillet:") || !strings.Contains(out, "min_angle: 60") {
		t.Errorf("yaml output:\n%s", out)
	}
}

func TestParamsLayering(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "weldscan.toml")
	if err := os.WriteFile(cfg, []byte("[parameters.lap]\nmax_angle = 20.0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out := mustRun(t, "params", "--json", "--config", cfg,
		"--set", "noise-floor=2", "../../examples/bracket.weld")
	var p weld.Parameters
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Lap.MaxAngle != 20 {
		t.Errorf("lap.max_angle = %g, want 20 from config", p.Lap.MaxAngle)
	}
	if p.Fillet.MinLength != 20 {
		t.Errorf("fillet.min_length = %g, want 20 from model", p.Fillet.MinLength)
	}
	if p.NoiseFloor != 2 {
		t.Errorf("noise_floor = %g, want 2 from --set", p.NoiseFloor)
	}
}

func TestParseSets(t *testing.T) {
	pp, err := parseSets([]string{"fillet.min_angle=70", "Butt.Max-Angle = 175", "noise_floor=0.25"})
	if err != nil {
		t.Fatalf("parseSets: %v", err)
	}
	if pp.Fillet == nil || *pp.Fillet.MinAngle != 70 {
		t.Errorf("fillet = %+v", pp.Fillet)
	}
	if pp.Butt == nil || *pp.Butt.MaxAngle != 175 {
		t.Errorf("butt = %+v", pp.Butt)
	}
	if pp.NoiseFloor == nil || *pp.NoiseFloor != 0.25 {
		t.Errorf("noise floor = %v", pp.NoiseFloor)
	}
	if pp.Lap != nil || pp.Corner != nil {
		t.Error("untouched types should stay nil")
	}

	for _, bad := range []string{"fillet", "fillet.min_angle=abc", "min_angle=3", "not_a_weld.min_angle=1"} {
		if _, err := parseSets([]string{bad}); err == nil {
			t.Errorf("parseSets(%q) should fail", bad)
		}
	}
}
