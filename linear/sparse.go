package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/variables"
)

// FactorBlock is one factor's contribution to the assembled Jacobian: its
// whitened, robust-weighted rows starting at RowOffset, split into one
// m x D_i sub-block per key.
type FactorBlock struct {
	RowOffset  int
	Keys       []variables.Key
	ColOffsets []int
	Dims       []int
	Sub        [][][]float64 // Sub[i] is m x Dims[i], aligned with Keys[i]
	Weight     float64
}

// SparseJacobian is the M x N sparse block Jacobian spec section 4.7
// describes: a list of per-factor row blocks (disjoint row ranges, since
// factor rows never overlap) placed at the columns ColumnMap assigns their
// keys. The sparse format itself is an implementation detail; Dense
// assembles it into a gonum matrix for the default solver, and a future
// solver collaborator could walk FactorBlocks directly without ever
// densifying.
type SparseJacobian struct {
	M, N    int
	Factors []FactorBlock
}

// Dense materializes J as an M x N gonum matrix.
func (sj *SparseJacobian) Dense() *mat.Dense {
	J := mat.NewDense(sj.M, sj.N, nil)
	for _, fb := range sj.Factors {
		for i, sub := range fb.Sub {
			col := fb.ColOffsets[i]
			for r, row := range sub {
				for c, v := range row {
					J.Set(fb.RowOffset+r, col+c, v)
				}
			}
		}
	}
	return J
}
