// Package g2o loads and saves graphs in the g2o text format used by many
// SLAM benchmark datasets (the Intel/M3500, Sphere2500, Garage, etc.
// corpora), producing a Graph and Values the optimizer can run directly.
package g2o

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/fgerr"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/robust"
	"github.com/go-factorgo/factorgo/scalar"
	"github.com/go-factorgo/factorgo/variables"
)

const se2Tag = 'p'
const se3Tag = 'x'

func se2Key(id uint64) variables.Key { return variables.NewKey(se2Tag, id) }
func se3Key(id uint64) variables.Key { return variables.NewKey(se3Tag, id) }

// Load reads a g2o file from r and returns the Graph and Values it
// describes. Supported record types: VERTEX_SE2, VERTEX_SE3:QUAT,
// EDGE_SE2, EDGE_SE3:QUAT. Unrecognized record types are skipped, since
// g2o files in the wild carry vendor-specific extensions (landmark
// vertices, robust-kernel annotations) outside this format's core.
func Load(r io.Reader) (*graph.Graph, *variables.Values, error) {
	g := graph.New()
	v := variables.NewValues()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "VERTEX_SE2":
			if err := loadVertexSE2(v, fields); err != nil {
				return nil, nil, wrapLine(lineNo, err)
			}
		case "VERTEX_SE3:QUAT":
			if err := loadVertexSE3(v, fields); err != nil {
				return nil, nil, wrapLine(lineNo, err)
			}
		case "EDGE_SE2":
			if err := loadEdgeSE2(g, fields); err != nil {
				return nil, nil, wrapLine(lineNo, err)
			}
		case "EDGE_SE3:QUAT":
			if err := loadEdgeSE3(g, fields); err != nil {
				return nil, nil, wrapLine(lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", fgerr.ErrIO, err)
	}
	return g, v, nil
}

func wrapLine(lineNo int, err error) error {
	return fmt.Errorf("%w: line %d: %v", fgerr.ErrIO, lineNo, err)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", f, err)
		}
		out[i] = x
	}
	return out, nil
}

func parseUint(field string) (uint64, error) {
	return strconv.ParseUint(field, 10, 64)
}

func loadVertexSE2(v *variables.Values, fields []string) error {
	if len(fields) < 5 {
		return fmt.Errorf("VERTEX_SE2: expected 4 fields, got %d", len(fields)-1)
	}
	id, err := parseUint(fields[1])
	if err != nil {
		return err
	}
	nums, err := parseFloats(fields[2:5])
	if err != nil {
		return err
	}
	pose := variables.SE2{Rot: variables.NewSO2(nums[2]), Trans: [2]scalar.Real{scalar.Real(nums[0]), scalar.Real(nums[1])}}
	return v.Set(se2Key(id), pose)
}

func loadVertexSE3(v *variables.Values, fields []string) error {
	if len(fields) < 9 {
		return fmt.Errorf("VERTEX_SE3:QUAT: expected 8 fields, got %d", len(fields)-1)
	}
	id, err := parseUint(fields[1])
	if err != nil {
		return err
	}
	nums, err := parseFloats(fields[2:9])
	if err != nil {
		return err
	}
	pose := variables.SE3{
		Rot:   variables.SO3{X: scalar.Real(nums[3]), Y: scalar.Real(nums[4]), Z: scalar.Real(nums[5]), W: scalar.Real(nums[6])},
		Trans: [3]scalar.Real{scalar.Real(nums[0]), scalar.Real(nums[1]), scalar.Real(nums[2])},
	}
	return v.Set(se3Key(id), pose)
}

// loadEdgeSE2 parses `EDGE_SE2 i j dx dy dtheta i11 i12 i13 i22 i23 i33`,
// the upper-triangular information matrix g2o stores for a 2D pose edge.
func loadEdgeSE2(g *graph.Graph, fields []string) error {
	if len(fields) < 12 {
		return fmt.Errorf("EDGE_SE2: expected 11 fields, got %d", len(fields)-1)
	}
	i, err := parseUint(fields[1])
	if err != nil {
		return err
	}
	j, err := parseUint(fields[2])
	if err != nil {
		return err
	}
	nums, err := parseFloats(fields[3:12])
	if err != nil {
		return err
	}
	delta := variables.SE2{Rot: variables.NewSO2(nums[2]), Trans: [2]scalar.Real{scalar.Real(nums[0]), scalar.Real(nums[1])}}
	info := symFromUpperTriangle(3, nums[3:9])
	n, err := noise.FromInfo(info)
	if err != nil {
		return err
	}
	f, err := factor.New(residual.Between{Delta: delta}, []variables.Key{se2Key(i), se2Key(j)}, n, robust.L2{})
	if err != nil {
		return err
	}
	g.Add(f)
	return nil
}

// loadEdgeSE3 parses `EDGE_SE3:QUAT i j dx dy dz qx qy qz qw` followed by
// the upper-triangular 6x6 information matrix (21 entries).
func loadEdgeSE3(g *graph.Graph, fields []string) error {
	if len(fields) < 31 {
		return fmt.Errorf("EDGE_SE3:QUAT: expected 30 fields, got %d", len(fields)-1)
	}
	i, err := parseUint(fields[1])
	if err != nil {
		return err
	}
	j, err := parseUint(fields[2])
	if err != nil {
		return err
	}
	nums, err := parseFloats(fields[3:31])
	if err != nil {
		return err
	}
	delta := variables.SE3{
		Rot:   variables.SO3{X: scalar.Real(nums[3]), Y: scalar.Real(nums[4]), Z: scalar.Real(nums[5]), W: scalar.Real(nums[6])},
		Trans: [3]scalar.Real{scalar.Real(nums[0]), scalar.Real(nums[1]), scalar.Real(nums[2])},
	}
	info := symFromUpperTriangle(6, nums[7:28])
	n, err := noise.FromInfo(info)
	if err != nil {
		return err
	}
	f, err := factor.New(residual.Between{Delta: delta}, []variables.Key{se3Key(i), se3Key(j)}, n, robust.L2{})
	if err != nil {
		return err
	}
	g.Add(f)
	return nil
}

// symFromUpperTriangle reconstructs an n x n symmetric matrix from g2o's
// row-major upper-triangular serialization (n + n*(n-1)/2 entries).
func symFromUpperTriangle(n int, upper []float64) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	idx := 0
	for r := 0; r < n; r++ {
		for c := r; c < n; c++ {
			sym.SetSym(r, c, upper[idx])
			idx++
		}
	}
	return sym
}

// Save writes g's factors and v's variables to w in g2o format. Only
// Between factors over SE2 or SE3 and Prior-free pose values are
// supported; other factor/variable kinds are skipped, since the g2o
// format has no representation for them.
func Save(w io.Writer, g *graph.Graph, v *variables.Values) error {
	bw := bufio.NewWriter(w)
	for _, k := range v.Keys() {
		val, err := v.Get(k)
		if err != nil {
			return err
		}
		switch pose := val.(type) {
		case variables.SE2:
			fmt.Fprintf(bw, "VERTEX_SE2 %d %g %g %g\n", k.Index(), pose.Trans[0], pose.Trans[1], pose.Rot.Theta)
		case variables.SE3:
			fmt.Fprintf(bw, "VERTEX_SE3:QUAT %d %g %g %g %g %g %g %g\n",
				k.Index(), pose.Trans[0], pose.Trans[1], pose.Trans[2],
				pose.Rot.X, pose.Rot.Y, pose.Rot.Z, pose.Rot.W)
		}
	}
	for _, f := range g.Factors() {
		b, ok := f.Residual.(residual.Between)
		if !ok || len(f.Keys) != 2 {
			continue
		}
		gn, ok := f.Noise.(noise.Gaussian)
		if !ok {
			continue
		}
		switch delta := b.Delta.(type) {
		case variables.SE2:
			info := infoUpperTriangle(gn, 3)
			fmt.Fprintf(bw, "EDGE_SE2 %d %d %g %g %g %s\n", f.Keys[0].Index(), f.Keys[1].Index(),
				delta.Trans[0], delta.Trans[1], delta.Rot.Theta, formatFloats(info))
		case variables.SE3:
			info := infoUpperTriangle(gn, 6)
			fmt.Fprintf(bw, "EDGE_SE3:QUAT %d %d %g %g %g %g %g %g %g %s\n", f.Keys[0].Index(), f.Keys[1].Index(),
				delta.Trans[0], delta.Trans[1], delta.Trans[2],
				delta.Rot.X, delta.Rot.Y, delta.Rot.Z, delta.Rot.W, formatFloats(info))
		}
	}
	return bw.Flush()
}

func formatFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// infoUpperTriangle recovers Sigma^-1 = W^T W from a Gaussian model's
// whitening matrix W and flattens its upper triangle in g2o's row-major
// order.
func infoUpperTriangle(gn noise.Gaussian, n int) []float64 {
	w := gn.SqrtInfo()
	var info mat.Dense
	info.Mul(w.T(), w)
	out := make([]float64, 0, n*(n+1)/2)
	for r := 0; r < n; r++ {
		for c := r; c < n; c++ {
			v := info.At(r, c)
			if math.IsNaN(v) {
				v = 0
			}
			out = append(out, v)
		}
	}
	return out
}
