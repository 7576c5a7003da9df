// Package linalg holds small dense linear-algebra fallbacks that do not
// belong in the public API: a last-resort solver for normal equations that
// gonum's own Cholesky and QR factorizations both reject as singular.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const pivotEpsilon = 1e-12

// SolveInPlace solves A x = b for an n x n A via LU decomposition with
// partial pivoting, reducing a and b (a *mat.Dense and *mat.VecDense, to
// match the rest of the linear package's gonum-based style rather than a
// bare []float64 buffer) to row-echelon form in place and reading the
// solution back out by substitution. It reports false if some column's
// remaining entries are all smaller than a numerical pivot threshold, in
// which case a and b are left partially reduced.
func SolveInPlace(a *mat.Dense, b *mat.VecDense) bool {
	n, cols := a.Dims()
	if cols != n {
		panic("linalg: SolveInPlace requires a square matrix")
	}

	if !eliminate(a, b, n) {
		return false
	}
	substitute(a, b, n)
	return true
}

// eliminate drives a to upper-triangular form by row reduction, choosing
// the largest-magnitude entry in each column as pivot and applying the same
// row operations to b.
func eliminate(a *mat.Dense, b *mat.VecDense, n int) bool {
	for col := 0; col < n; col++ {
		pivotRow, pivotVal := findPivot(a, col, n)
		if math.Abs(pivotVal) < pivotEpsilon {
			return false
		}
		if pivotRow != col {
			swapRows(a, col, pivotRow)
			swapEntries(b, col, pivotRow)
		}

		pivot := a.At(col, col)
		for r := col + 1; r < n; r++ {
			factor := a.At(r, col) / pivot
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a.Set(r, c, a.At(r, c)-factor*a.At(col, c))
			}
			b.SetVec(r, b.AtVec(r)-factor*b.AtVec(col))
		}
	}
	return true
}

// substitute reads x out of the already-upper-triangular (a, b) by back
// substitution, overwriting b with the solution.
func substitute(a *mat.Dense, b *mat.VecDense, n int) {
	for i := n - 1; i >= 0; i-- {
		sum := b.AtVec(i)
		for c := i + 1; c < n; c++ {
			sum -= a.At(i, c) * b.AtVec(c)
		}
		b.SetVec(i, sum/a.At(i, i))
	}
}

func findPivot(a *mat.Dense, col, n int) (row int, val float64) {
	row = col
	val = a.At(col, col)
	best := math.Abs(val)
	for r := col + 1; r < n; r++ {
		v := a.At(r, col)
		if abs := math.Abs(v); abs > best {
			best = abs
			row = r
			val = v
		}
	}
	return row, val
}

func swapRows(a *mat.Dense, i, j int) {
	if i == j {
		return
	}
	_, n := a.Dims()
	for c := 0; c < n; c++ {
		vi, vj := a.At(i, c), a.At(j, c)
		a.Set(i, c, vj)
		a.Set(j, c, vi)
	}
}

func swapEntries(b *mat.VecDense, i, j int) {
	if i == j {
		return
	}
	vi, vj := b.AtVec(i), b.AtVec(j)
	b.SetVec(i, vj)
	b.SetVec(j, vi)
}
