// Package noise implements the whitening transform applied to a residual
// and its Jacobian before the robust kernel and solver ever see them.
package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model whitens a residual: given r and its per-input Jacobian blocks, it
// returns Wr and W*J_i for each block, where W is an m x m matrix with
// W^T W = Sigma^-1.
type Model interface {
	// Dim returns m, the residual dimension this model whitens.
	Dim() int
	// WhitenResidual returns W*r.
	WhitenResidual(r []float64) []float64
	// WhitenJacobian returns W*J for an m x n block J (row-major).
	WhitenJacobian(J [][]float64) [][]float64
}

// Unit is the trivial noise model: W = I.
type Unit struct {
	dim int
}

// NewUnit returns a Unit model of the given residual dimension.
func NewUnit(dim int) Unit { return Unit{dim: dim} }

func (u Unit) Dim() int { return u.dim }

func (u Unit) WhitenResidual(r []float64) []float64 {
	out := make([]float64, len(r))
	copy(out, r)
	return out
}

func (u Unit) WhitenJacobian(J [][]float64) [][]float64 {
	out := make([][]float64, len(J))
	for i, row := range J {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Gaussian whitens by a dense square-root information matrix W (upper
// triangular from a Cholesky factor of Sigma^-1, or any matrix satisfying
// W^T W = Sigma^-1).
type Gaussian struct {
	dim  int
	sqrtInfo *mat.Dense
}

// FromSqrtInfo builds a Gaussian noise model directly from a square-root
// information matrix R with R^T R = Sigma^-1.
func FromSqrtInfo(r *mat.Dense) Gaussian {
	n, _ := r.Dims()
	return Gaussian{dim: n, sqrtInfo: r}
}

// FromCov builds a Gaussian noise model from a covariance matrix, taking
// its Cholesky factor and inverting to obtain the square-root information.
func FromCov(cov *mat.Dense) (Gaussian, error) {
	n, _ := cov.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sym.SetSym(i, j, cov.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return Gaussian{}, fmt.Errorf("noise: covariance is not positive definite")
	}
	var L mat.TriDense
	chol.LTo(&L)
	var Linv mat.Dense
	if err := Linv.Inverse(&L); err != nil {
		return Gaussian{}, fmt.Errorf("noise: %w", err)
	}
	// Sigma = L L^T => Sigma^-1 = L^-T L^-1, so a valid W with W^T W =
	// Sigma^-1 is W = L^-1 (Linv is already lower triangular L^-1, use its
	// transpose's transpose... here Linv itself satisfies W=Linv since
	// (L^-1)^T (L^-1) = L^-T L^-1 = Sigma^-1).
	return Gaussian{dim: n, sqrtInfo: &Linv}, nil
}

// FromInfo builds a Gaussian noise model directly from an information
// (precision) matrix info = Sigma^-1, taking its Cholesky factor as the
// square-root information W (W^T W = info). This is the form g2o files
// store edges in.
func FromInfo(info *mat.SymDense) (Gaussian, error) {
	n, _ := info.Dims()
	var chol mat.Cholesky
	if ok := chol.Factorize(info); !ok {
		return Gaussian{}, fmt.Errorf("noise: information matrix is not positive definite")
	}
	var U mat.TriDense
	chol.UTo(&U)
	var dense mat.Dense
	dense.CloneFrom(&U)
	return Gaussian{dim: n, sqrtInfo: &dense}, nil
}

// FromDiagSigmas builds a Gaussian model whose whitening matrix is
// diag(1/sigma_i).
func FromDiagSigmas(sigmas []float64) Gaussian {
	n := len(sigmas)
	data := make([]float64, n*n)
	for i, s := range sigmas {
		data[i*n+i] = 1.0 / s
	}
	return Gaussian{dim: n, sqrtInfo: mat.NewDense(n, n, data)}
}

// FromSigma builds an isotropic Gaussian model of the given dimension with
// whitening matrix (1/sigma) * I.
func FromSigma(sigma float64, dim int) Gaussian {
	data := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		data[i*dim+i] = 1.0 / sigma
	}
	return Gaussian{dim: dim, sqrtInfo: mat.NewDense(dim, dim, data)}
}

func (g Gaussian) Dim() int { return g.dim }

func (g Gaussian) WhitenResidual(r []float64) []float64 {
	rv := mat.NewVecDense(g.dim, r)
	var out mat.VecDense
	out.MulVec(g.sqrtInfo, rv)
	return denseVecToSlice(&out)
}

func (g Gaussian) WhitenJacobian(J [][]float64) [][]float64 {
	n := 0
	if len(J) > 0 {
		n = len(J[0])
	}
	data := make([]float64, 0, len(J)*n)
	for _, row := range J {
		data = append(data, row...)
	}
	Jm := mat.NewDense(g.dim, n, data)
	var out mat.Dense
	out.Mul(g.sqrtInfo, Jm)
	result := make([][]float64, g.dim)
	for i := 0; i < g.dim; i++ {
		result[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			result[i][j] = out.At(i, j)
		}
	}
	return result
}

// SqrtInfo exposes the whitening matrix, e.g. so a factor can fold it into
// an IMU preintegration factor's noise directly from a covariance.
func (g Gaussian) SqrtInfo() *mat.Dense { return g.sqrtInfo }

func denseVecToSlice(v *mat.VecDense) []float64 {
	n := v.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = v.AtVec(i)
	}
	return out
}

// SafeSqrt returns sqrt(x), or 0 when x is negative or NaN. No constructor
// in this package calls it; FromDiagSigmas with a zero sigma still yields
// an infinite whitening entry.
func SafeSqrt(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	return math.Sqrt(x)
}
