// Package variables implements the manifold variable abstraction and the
// concrete Lie groups and vector spaces factorgo ships: SO2, SO3, SE2, SE3,
// VectorVarN, and ImuBias. Every concrete type satisfies Variable, and
// every operation has a dual-number counterpart reachable through Perturb
// so residuals can be linearized by automatic differentiation.
package variables

import "github.com/go-factorgo/factorgo/dual"

// Variable is any value inhabiting a smooth manifold of known tangent
// dimension. Identity, Exp, and Log are defined relative to the group's
// identity element; Compose and Inverse are the group operation and its
// inverse (for vector spaces, addition and negation).
//
// Identity and Exp are callable on any instance of the concrete type: the
// receiver only selects which concrete implementation runs, its field
// values are not consulted.
type Variable interface {
	// Dim returns the tangent dimension D.
	Dim() int
	// Identity returns the identity element of this Variable's type.
	Identity() Variable
	// Inverse returns v^-1.
	Inverse() Variable
	// Compose returns v * other.
	Compose(other Variable) Variable
	// Exp returns exp(tau), the retraction of tau from the tangent space
	// at identity. len(tau) must equal Dim().
	Exp(tau []float64) Variable
	// Log returns the local coordinates of v at identity, i.e. log(v).
	Log() []float64
	// Adjoint returns the D x D adjoint matrix of v.
	Adjoint() [][]float64
	// Perturb lifts v into dual-numbered space and retracts it by the dual
	// tangent tau (len(tau) == Dim()), returning a DualVariable whose
	// gradients trace how v ⊕ tau varies with tau. It is the entry point
	// automatic differentiation uses to linearize a residual with respect
	// to this variable.
	Perturb(tau []dual.Dual) DualVariable
}

// DualVariable mirrors the subset of Variable's operations needed to
// evaluate a residual generically over the dual scalar field once a
// Variable has been lifted by Perturb. Exp is intentionally absent: duals
// only ever enter through Perturb, downstream residual code only composes,
// inverts, and takes logs.
type DualVariable interface {
	// Dim returns the tangent dimension D.
	Dim() int
	// Inverse returns v^-1.
	Inverse() DualVariable
	// Compose returns v * other.
	Compose(other DualVariable) DualVariable
	// Log returns the local coordinates of v at identity.
	Log() []dual.Dual
}

// Oplus implements the retraction a ⊕ tau using the build-time update
// convention (right by default; see convention_right.go / convention_left.go).
func Oplus(a Variable, tau []float64) Variable {
	return oplus(a, tau)
}

// Ominus implements the local difference ominus(a, b) = the tau such that
// Oplus(a, tau) == b, under the build-time update convention.
func Ominus(a, b Variable) []float64 {
	return ominus(a, b)
}

// PerturbDual is the multi-variable analogue of Variable.Perturb: it lifts
// v using a tangent sliced out of a shared dual gradient of total width
// totalWidth, starting at column offset. This is how a factor spanning
// several variables derives one Jacobian block per variable from a single
// evaluation of its residual.
func PerturbDual(v Variable, totalWidth, offset int) DualVariable {
	d := v.Dim()
	tau := make([]dual.Dual, d)
	for i := 0; i < d; i++ {
		tau[i] = dual.Seed(0, totalWidth, offset+i)
	}
	return v.Perturb(tau)
}

// Lift lifts v into dual-numbered space with a zero (constant) tangent of
// the given total gradient width, without perturbing it. Useful for
// variables a residual depends on but does not need a Jacobian block for.
func Lift(v Variable, totalWidth int) DualVariable {
	d := v.Dim()
	tau := make([]dual.Dual, d)
	for i := 0; i < d; i++ {
		tau[i] = dual.Const(0, totalWidth)
	}
	return v.Perturb(tau)
}
