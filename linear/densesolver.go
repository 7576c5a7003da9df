package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/fgerr"
	"github.com/go-factorgo/factorgo/internal/linalg"
)

// DenseSolver is the default Solver: it densifies J, forms the normal
// equations J^T J dx = J^T b (or the Marquardt-damped form (J^T J + lambda
// diag(J^T J)) dx = J^T b for LM), and factors them with gonum's Cholesky.
// For the undamped (Gauss-Newton) case, if J^T J is not positive-definite
// (rank-deficient columns, a common symptom of an under-constrained graph)
// it falls back to QR on J itself, and as a last resort to Gaussian
// elimination with partial pivoting on the normal equations.
type DenseSolver struct{}

// NewDenseSolver returns the default Solver.
func NewDenseSolver() *DenseSolver { return &DenseSolver{} }

func (s *DenseSolver) Solve(j *SparseJacobian, b *mat.VecDense) (*mat.VecDense, error) {
	return s.SolveDamped(j, b, 0)
}

func (s *DenseSolver) SolveDamped(j *SparseJacobian, b *mat.VecDense, lambda float64) (*mat.VecDense, error) {
	if j.N == 0 {
		return mat.NewVecDense(0, nil), nil
	}
	J := j.Dense()

	var jtj mat.SymDense
	jtj.SymOuterK(1, J.T())
	var jtb mat.VecDense
	jtb.MulVec(J.T(), b)

	if lambda > 0 {
		for i := 0; i < j.N; i++ {
			jtj.SetSym(i, i, jtj.At(i, i)*(1+lambda))
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(&jtj) {
		var dx mat.VecDense
		if err := chol.SolveVecTo(&dx, &jtb); err == nil {
			return &dx, nil
		}
	}

	if lambda == 0 {
		var qr mat.QR
		qr.Factorize(J)
		var dxQR mat.Dense
		if err := qr.SolveTo(&dxQR, false, b); err == nil {
			dx := mat.NewVecDense(j.N, nil)
			for i := 0; i < j.N; i++ {
				dx.SetVec(i, dxQR.At(i, 0))
			}
			return dx, nil
		}
	}

	n := j.N
	aDense := mat.NewDense(n, n, nil)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			aDense.Set(r, c, jtj.At(r, c))
		}
	}
	bVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		bVec.SetVec(i, jtb.AtVec(i))
	}
	if !linalg.SolveInPlace(aDense, bVec) {
		return nil, fmt.Errorf("%w: normal equations are singular", fgerr.ErrSingular)
	}
	return bVec, nil
}
