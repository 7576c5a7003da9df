// Package residual defines the error-function abstraction factors
// linearize, plus the two universal built-ins (Prior, Between) that work
// across every Variable type through the shared manifold interface.
package residual

import (
	"reflect"

	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/variables"
)

// Residual is a pure function e: (V_1, ..., V_k) -> R^m. Dim and Arity are
// fixed for a given concrete Residual; ExpectedTypes lets Factor validate
// that the keys it is given actually resolve to the types this residual
// was built for.
type Residual interface {
	// Dim returns m, the residual's output dimension.
	Dim() int
	// Arity returns k, the number of input variables.
	Arity() int
	// ExpectedTypes returns the concrete Variable type expected at each
	// input position, in order.
	ExpectedTypes() []reflect.Type
	// Evaluate computes e(vs) in plain scalars.
	Evaluate(vs []variables.Variable) []float64
	// EvaluateDual computes e(vs) with dual inputs, so callers can read
	// off the Jacobian from the outputs' gradients.
	EvaluateDual(vs []variables.DualVariable) []dual.Dual
}

// Prior penalizes deviation from a fixed anchor value: r = log(anchor^-1 *
// v) = Ominus(anchor, v).
type Prior struct {
	Anchor variables.Variable
}

func (p Prior) Dim() int { return p.Anchor.Dim() }
func (p Prior) Arity() int { return 1 }
func (p Prior) ExpectedTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(p.Anchor)}
}

func (p Prior) Evaluate(vs []variables.Variable) []float64 {
	return variables.Ominus(p.Anchor, vs[0])
}

func (p Prior) EvaluateDual(vs []variables.DualVariable) []dual.Dual {
	width := dualWidth(vs)
	anchor := variables.Lift(p.Anchor, width)
	return ominusDual(anchor, vs[0])
}

// Between penalizes deviation of the relative transform between two
// variables from a fixed Delta: r = log(delta^-1 * (v1^-1 * v2)).
type Between struct {
	Delta variables.Variable
}

func (b Between) Dim() int { return b.Delta.Dim() }
func (b Between) Arity() int { return 2 }
func (b Between) ExpectedTypes() []reflect.Type {
	t := reflect.TypeOf(b.Delta)
	return []reflect.Type{t, t}
}

func (b Between) Evaluate(vs []variables.Variable) []float64 {
	rel := vs[0].Inverse().Compose(vs[1])
	return variables.Ominus(b.Delta, rel)
}

func (b Between) EvaluateDual(vs []variables.DualVariable) []dual.Dual {
	width := dualWidth(vs)
	rel := vs[0].Inverse().Compose(vs[1])
	delta := variables.Lift(b.Delta, width)
	return ominusDual(delta, rel)
}

// ominusDual is the dual-numbered analogue of variables.Ominus under the
// build-time retraction convention.
func ominusDual(a, b variables.DualVariable) []dual.Dual {
	if variables.RightUpdate {
		return a.Inverse().Compose(b).Log()
	}
	return b.Compose(a.Inverse()).Log()
}

func dualWidth(vs []variables.DualVariable) int {
	for _, v := range vs {
		l := v.Log()
		if len(l) > 0 {
			return len(l[0].Grad)
		}
	}
	return 0
}
