// Package dual implements forward-mode automatic differentiation over a
// small fixed-size gradient vector. A Dual carries a real value and the
// partial derivatives of that value with respect to a set of seed
// variables; propagating Duals through arithmetic and transcendental
// functions evaluates a function and its Jacobian in a single pass.
package dual

import (
	"math"

	"github.com/go-factorgo/factorgo/scalar"
)

// Dual is a real value plus its gradient with respect to the active seed
// variables. Two Duals combined by an arithmetic op must share the same
// gradient width; callers are responsible for seeding all inputs to a
// computation from the same width.
//
// Val carries scalar.Real's build-time precision (the same precision a
// Variable stores its state in), since it is itself a variable's state
// flowing through a computation. Grad stays float64 regardless: gradient
// entries become Jacobian columns that are immediately handed to gonum's
// float64-only linear algebra in the linear and noise packages, so nothing
// is gained by narrowing them and a separate narrow/widen pass at every
// factor boundary would only add conversions without changing any solve.
type Dual struct {
	Val  scalar.Real
	Grad []float64
}

// Const returns a Dual with a zero gradient of the given width, for
// constants that participate in a dual-valued expression.
func Const(val float64, width int) Dual {
	return Dual{Val: scalar.Real(val), Grad: make([]float64, width)}
}

// Seed returns the i-th standard basis dual of width n: value v with
// Grad[i] = 1 and all other entries zero. Used to seed independent
// variables before evaluating a function whose Jacobian is wanted.
func Seed(v float64, n, i int) Dual {
	d := Dual{Val: scalar.Real(v), Grad: make([]float64, n)}
	d.Grad[i] = 1
	return d
}

func (d Dual) width() int { return len(d.Grad) }

func (d Dual) newGrad() []float64 { return make([]float64, d.width()) }

func (d Dual) val64() float64 { return float64(d.Val) }

// Add returns d + o.
func (d Dual) Add(o Dual) Dual {
	g := d.newGrad()
	for i := range g {
		g[i] = d.Grad[i] + o.Grad[i]
	}
	return Dual{Val: d.Val + o.Val, Grad: g}
}

// Sub returns d - o.
func (d Dual) Sub(o Dual) Dual {
	g := d.newGrad()
	for i := range g {
		g[i] = d.Grad[i] - o.Grad[i]
	}
	return Dual{Val: d.Val - o.Val, Grad: g}
}

// Neg returns -d.
func (d Dual) Neg() Dual {
	g := d.newGrad()
	for i := range g {
		g[i] = -d.Grad[i]
	}
	return Dual{Val: -d.Val, Grad: g}
}

// Mul returns d * o, via the product rule.
func (d Dual) Mul(o Dual) Dual {
	g := d.newGrad()
	dv, ov := d.val64(), o.val64()
	for i := range g {
		g[i] = d.Grad[i]*ov + dv*o.Grad[i]
	}
	return Dual{Val: d.Val * o.Val, Grad: g}
}

// Scale returns d * c for a plain constant c.
func (d Dual) Scale(c float64) Dual {
	g := d.newGrad()
	for i := range g {
		g[i] = d.Grad[i] * c
	}
	return Dual{Val: d.Val * scalar.Real(c), Grad: g}
}

// Div returns d / o, via the quotient rule.
func (d Dual) Div(o Dual) Dual {
	g := d.newGrad()
	dv, ov := d.val64(), o.val64()
	inv := 1.0 / ov
	for i := range g {
		g[i] = (d.Grad[i]*ov - dv*o.Grad[i]) * inv * inv
	}
	return Dual{Val: scalar.Real(dv * inv), Grad: g}
}

// Sqrt returns sqrt(d).
func (d Dual) Sqrt() Dual {
	s := math.Sqrt(d.val64())
	g := d.newGrad()
	if s > 0 {
		c := 0.5 / s
		for i := range g {
			g[i] = d.Grad[i] * c
		}
	}
	return Dual{Val: scalar.Real(s), Grad: g}
}

// Sin returns sin(d).
func (d Dual) Sin() Dual {
	s, c := math.Sincos(d.val64())
	g := d.newGrad()
	for i := range g {
		g[i] = d.Grad[i] * c
	}
	return Dual{Val: scalar.Real(s), Grad: g}
}

// Cos returns cos(d).
func (d Dual) Cos() Dual {
	s, c := math.Sincos(d.val64())
	g := d.newGrad()
	for i := range g {
		g[i] = -d.Grad[i] * s
	}
	return Dual{Val: scalar.Real(c), Grad: g}
}

// Tan returns tan(d).
func (d Dual) Tan() Dual {
	t := math.Tan(d.val64())
	g := d.newGrad()
	sec2 := 1 + t*t
	for i := range g {
		g[i] = d.Grad[i] * sec2
	}
	return Dual{Val: scalar.Real(t), Grad: g}
}

// Exp returns e^d.
func (d Dual) Exp() Dual {
	e := math.Exp(d.val64())
	g := d.newGrad()
	for i := range g {
		g[i] = d.Grad[i] * e
	}
	return Dual{Val: scalar.Real(e), Grad: g}
}

// Log returns ln(d).
func (d Dual) Log() Dual {
	dv := d.val64()
	l := math.Log(dv)
	g := d.newGrad()
	inv := 1.0 / dv
	for i := range g {
		g[i] = d.Grad[i] * inv
	}
	return Dual{Val: scalar.Real(l), Grad: g}
}

// Atan2 returns atan2(d, o).
func (d Dual) Atan2(o Dual) Dual {
	dv, ov := d.val64(), o.val64()
	a := math.Atan2(dv, ov)
	denom := dv*dv + ov*ov
	g := d.newGrad()
	if denom > 0 {
		for i := range g {
			g[i] = (ov*d.Grad[i] - dv*o.Grad[i]) / denom
		}
	}
	return Dual{Val: scalar.Real(a), Grad: g}
}

// Abs returns |d|; the gradient is that of d or -d depending on sign, which
// is discontinuous at zero like the underlying function.
func (d Dual) Abs() Dual {
	if d.Val < 0 {
		return d.Neg()
	}
	return d
}

// Jacobian evaluates f at x and returns both the value vector and the
// m x n Jacobian, by seeding each input with a standard basis dual and
// reading off gradients from the outputs. f must treat its input slice as
// read-only and must not retain it.
func Jacobian(f func([]Dual) []Dual, x []float64) (r []float64, J [][]float64) {
	n := len(x)
	seeded := make([]Dual, n)
	for i, v := range x {
		seeded[i] = Seed(v, n, i)
	}
	out := f(seeded)
	m := len(out)
	r = make([]float64, m)
	J = make([][]float64, m)
	for i, d := range out {
		r[i] = d.val64()
		row := make([]float64, n)
		copy(row, d.Grad)
		J[i] = row
	}
	return r, J
}

// Numeric computes a central-difference approximation of f's Jacobian at x
// with step h. It exists only to cross-check Jacobian in tests (spec: "an
// allowed fallback only for testing").
func Numeric(f func([]float64) []float64, x []float64, h float64) [][]float64 {
	n := len(x)
	base := f(x)
	m := len(base)
	J := make([][]float64, m)
	for i := range J {
		J[i] = make([]float64, n)
	}
	xp := make([]float64, n)
	xm := make([]float64, n)
	copy(xp, x)
	copy(xm, x)
	for j := 0; j < n; j++ {
		xp[j] = x[j] + h
		xm[j] = x[j] - h
		fp := f(xp)
		fm := f(xm)
		for i := 0; i < m; i++ {
			J[i][j] = (fp[i] - fm[i]) / (2 * h)
		}
		xp[j] = x[j]
		xm[j] = x[j]
	}
	return J
}
