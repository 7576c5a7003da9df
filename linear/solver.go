package linear

import "gonum.org/v1/gonum/mat"

// Solver is the external contract an Optimizer delegates normal-equation
// solving to. Implementations are free to exploit sparsity; the default
// DenseSolver densifies J and factors J^T J directly.
type Solver interface {
	// Solve returns the step dx minimizing ||J dx - b||^2.
	Solve(j *SparseJacobian, b *mat.VecDense) (*mat.VecDense, error)
	// SolveDamped returns the step minimizing ||J dx - b||^2 + lambda ||D dx||^2
	// with D^2 = diag(J^T J), the Levenberg-Marquardt normal equations
	// (J^T J + lambda diag(J^T J)) dx = J^T b.
	SolveDamped(j *SparseJacobian, b *mat.VecDense, lambda float64) (*mat.VecDense, error)
}
