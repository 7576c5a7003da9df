package variables

import (
	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/scalar"
)

// VectorVarN is a Euclidean vector-space variable of fixed size N. Compose
// is addition, Inverse is negation, and Exp/Log are the identity map.
type VectorVarN struct {
	Vals []scalar.Real
}

// NewVectorVarN copies vals into a new VectorVarN.
func NewVectorVarN(vals []float64) VectorVarN {
	out := make([]scalar.Real, len(vals))
	for i, x := range vals {
		out[i] = scalar.Real(x)
	}
	return VectorVarN{Vals: out}
}

func (v VectorVarN) Dim() int { return len(v.Vals) }

func (v VectorVarN) Identity() Variable {
	return VectorVarN{Vals: make([]scalar.Real, len(v.Vals))}
}

func (v VectorVarN) Inverse() Variable {
	out := make([]scalar.Real, len(v.Vals))
	for i, x := range v.Vals {
		out[i] = -x
	}
	return VectorVarN{Vals: out}
}

func (v VectorVarN) Compose(other Variable) Variable {
	o := other.(VectorVarN)
	out := make([]scalar.Real, len(v.Vals))
	for i := range v.Vals {
		out[i] = v.Vals[i] + o.Vals[i]
	}
	return VectorVarN{Vals: out}
}

func (v VectorVarN) Exp(tau []float64) Variable {
	out := make([]scalar.Real, len(tau))
	for i, x := range tau {
		out[i] = scalar.Real(x)
	}
	return VectorVarN{Vals: out}
}

func (v VectorVarN) Log() []float64 {
	out := make([]float64, len(v.Vals))
	for i, x := range v.Vals {
		out[i] = float64(x)
	}
	return out
}

func (v VectorVarN) Adjoint() [][]float64 {
	n := len(v.Vals)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	return out
}

func (v VectorVarN) Perturb(tau []dual.Dual) DualVariable {
	width := len(tau[0].Grad)
	out := make([]dual.Dual, len(v.Vals))
	for i, x := range v.Vals {
		base := dual.Const(float64(x), width)
		if i < len(tau) {
			out[i] = base.Add(tau[i])
		} else {
			out[i] = base
		}
	}
	return VectorVarNDual{Vals: out}
}

// VectorVarNDual is the dual-numbered twin of VectorVarN.
type VectorVarNDual struct {
	Vals []dual.Dual
}

func (v VectorVarNDual) Dim() int { return len(v.Vals) }

func (v VectorVarNDual) Inverse() DualVariable {
	out := make([]dual.Dual, len(v.Vals))
	for i, x := range v.Vals {
		out[i] = x.Neg()
	}
	return VectorVarNDual{Vals: out}
}

func (v VectorVarNDual) Compose(other DualVariable) DualVariable {
	o := other.(VectorVarNDual)
	out := make([]dual.Dual, len(v.Vals))
	for i := range v.Vals {
		out[i] = v.Vals[i].Add(o.Vals[i])
	}
	return VectorVarNDual{Vals: out}
}

func (v VectorVarNDual) Log() []dual.Dual {
	out := make([]dual.Dual, len(v.Vals))
	copy(out, v.Vals)
	return out
}
