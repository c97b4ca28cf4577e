package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/weldscan/pkg/analysis"
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printAnalysisTable(out io.Writer, res *analysis.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSUBTYPE\tANGLE\tLENGTH\tCONFIDENCE\tQUALITY")
	for _, r := range res.Welds {
		sub := r.Subtype.String()
		if sub == "" {
			sub = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.3f\t%.2f\t%.1f\n",
			r.ID, r.Type, sub, r.Angle, r.Length, r.Confidence, r.QualityScore)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d weld(s)", res.Summary.Total)
	for _, c := range res.Summary.Counts() {
		fmt.Fprintf(out, "  %s=%d", c.Type, c.Count)
	}
	fmt.Fprintln(out)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(out, "diagnostic: %s %s: %s\n", d.ID, d.Reason, d.Message)
	}
	for _, f := range res.Findings {
		fmt.Fprintln(out, f.Error())
	}
}

func printEdgeTable(out io.Writer, edges []analysis.EdgeSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHASH\tCURVE\tLENGTH")
	for _, e := range edges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\n", e.ID, e.Hash, e.CurveType, e.Length)
	}
	w.Flush()
}

func printTopology(out io.Writer, rep analysis.TopologyReport) {
	s := rep.Summary
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range []struct {
		label string
		n     int
	}{
		{"Faces", s.TotalFaces},
		{"Vertices", s.TotalVertices},
		{"Edges", s.TotalEdges},
		{"Boundary", s.BoundaryEdges},
		{"Internal", s.InternalEdges},
		{"Potential welds", s.PotentialWeldEdges},
		{"Non-manifold", s.NonManifoldEdges},
		{"Seam", s.SeamEdges},
		{"Free", s.FreeEdges},
	} {
		fmt.Fprintf(w, "%s:\t%d\n", row.label, row.n)
	}
	w.Flush()
	for _, f := range rep.Findings {
		fmt.Fprintln(out, f.Error())
	}
}
