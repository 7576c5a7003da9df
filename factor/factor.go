// Package factor implements the immutable (residual, keys, noise, robust)
// tuple and its linearization step.
package factor

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-factorgo/factorgo/fgerr"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/robust"
	"github.com/go-factorgo/factorgo/variables"
)

// Factor is the immutable tuple a Graph stores: a residual, the keys of
// its inputs (length == residual.Arity()), a noise model, and an optional
// robust kernel (nil means L2 / no re-weighting).
type Factor struct {
	Residual residual.Residual
	Keys     []variables.Key
	Noise    noise.Model
	Robust   robust.Kernel
}

// New validates that len(keys) matches the residual's arity and returns
// the Factor. It does not validate variable types against Values until
// Linearize is called, since Values is not available yet at construction
// time in every caller.
func New(res residual.Residual, keys []variables.Key, n noise.Model, rk robust.Kernel) (*Factor, error) {
	if len(keys) != res.Arity() {
		return nil, fmt.Errorf("factor: residual expects %d keys, got %d", res.Arity(), len(keys))
	}
	return &Factor{Residual: res, Keys: keys, Noise: n, Robust: rk}, nil
}

// Block is the linearized contribution of one Factor: a whitened residual
// of length m and, for each of its keys, an m x D_i Jacobian block plus the
// robust weight actually applied to its rows (0 if the row was dropped).
type Block struct {
	Keys      []variables.Key
	Blocks    [][][]float64 // Blocks[i] is m x D_i, aligned with Keys[i]
	Residual  []float64     // whitened, robust-weighted residual, length m
	Weight    float64
}

// Linearize implements the factor linearization step: gather inputs from
// values, evaluate the residual with seeded duals to get r and per-input
// Jacobian blocks, whiten, then scale rows by the robust kernel's weight.
func Linearize(f *Factor, values *variables.Values) (Block, error) {
	vs := make([]variables.Variable, len(f.Keys))
	for i, k := range f.Keys {
		v, err := values.Get(k)
		if err != nil {
			return Block{}, err
		}
		vs[i] = v
	}
	expected := f.Residual.ExpectedTypes()
	for i, v := range vs {
		if reflect.TypeOf(v) != expected[i] {
			return Block{}, fmt.Errorf("%w: key %s expected %s, got %T", fgerr.ErrTypeMismatch, f.Keys[i], expected[i], v)
		}
	}

	totalWidth := 0
	dims := make([]int, len(vs))
	offsets := make([]int, len(vs))
	for i, v := range vs {
		dims[i] = v.Dim()
		offsets[i] = totalWidth
		totalWidth += dims[i]
	}

	dualVs := make([]variables.DualVariable, len(vs))
	for i, v := range vs {
		dualVs[i] = variables.PerturbDual(v, totalWidth, offsets[i])
	}

	out := f.Residual.EvaluateDual(dualVs)
	m := len(out)
	r := make([]float64, m)
	J := make([][]float64, m)
	for i, d := range out {
		if isNonFinite(float64(d.Val)) {
			return Block{}, fmt.Errorf("%w: factor residual row %d is non-finite", fgerr.ErrNonFinite, i)
		}
		r[i] = float64(d.Val)
		row := make([]float64, totalWidth)
		for j, g := range d.Grad {
			if isNonFinite(g) {
				return Block{}, fmt.Errorf("%w: factor Jacobian row %d is non-finite", fgerr.ErrNonFinite, i)
			}
			row[j] = g
		}
		J[i] = row
	}

	wr := r
	wJ := J
	if f.Noise != nil {
		wr = f.Noise.WhitenResidual(r)
		wJ = f.Noise.WhitenJacobian(J)
	}

	weight := 1.0
	if f.Robust != nil {
		weight, wr, wJ = robust.ScaleRows(f.Robust, wr, wJ)
	}

	blocks := make([][][]float64, len(vs))
	for i := range vs {
		b := make([][]float64, m)
		for row := 0; row < m; row++ {
			b[row] = wJ[row][offsets[i] : offsets[i]+dims[i]]
		}
		blocks[i] = b
	}

	return Block{Keys: f.Keys, Blocks: blocks, Residual: wr, Weight: weight}, nil
}

func isNonFinite(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}
