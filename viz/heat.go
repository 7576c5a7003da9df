// Package viz renders a textual "heat" report of per-factor whitened
// residual norms, so a human can spot which factors are pulling hardest
// against the current Values without plotting anything.
package viz

import (
	"fmt"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/variables"
)

// Row is one factor's contribution to a heat report.
type Row struct {
	Index       int
	Keys        []variables.Key
	ResidualRMS float64
	Color       colorful.Color
}

// Report linearizes g against values and returns one Row per factor,
// colored on a blue (low residual) to red (high residual) heat scale
// normalized against the largest RMS seen.
func Report(g *graph.Graph, values *variables.Values) ([]Row, error) {
	factors := g.Factors()
	rows := make([]Row, len(factors))
	maxRMS := 0.0
	for i, f := range factors {
		b, err := factor.Linearize(f, values)
		if err != nil {
			return nil, err
		}
		rms := rmsNorm(b.Residual)
		rows[i] = Row{Index: i, Keys: f.Keys, ResidualRMS: rms}
		if rms > maxRMS {
			maxRMS = rms
		}
	}
	for i := range rows {
		t := 0.0
		if maxRMS > 0 {
			t = rows[i].ResidualRMS / maxRMS
		}
		rows[i].Color = heatColor(t)
	}
	return rows, nil
}

func rmsNorm(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range r {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(r)))
}

// heatColor maps t in [0, 1] to a blue-to-red heat color via HSV
// interpolation: hue 240 (blue) at t=0 down to hue 0 (red) at t=1.
func heatColor(t float64) colorful.Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	hue := 240 * (1 - t)
	return colorful.Hsv(hue, 0.85, 0.9)
}

// WriteText writes a human-readable table of rows to w.
func WriteText(w io.Writer, rows []Row) error {
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%4d  rms=%-10.6g  keys=%v  color=%s\n", r.Index, r.ResidualRMS, r.Keys, r.Color.Hex()); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes rows as CSV (index, rms, keys, hex color), for feeding
// into an external plotting tool.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintln(w, "index,rms,keys,color"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%d,%g,%q,%s\n", r.Index, r.ResidualRMS, keysString(r.Keys), r.Color.Hex()); err != nil {
			return err
		}
	}
	return nil
}

func keysString(keys []variables.Key) string {
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ";"
		}
		s += k.String()
	}
	return s
}
