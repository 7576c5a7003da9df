package linear

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/variables"
)

// Opts controls how Linearize walks the graph's factors.
type Opts struct {
	// Parallel, when true, linearizes factors concurrently across Workers
	// goroutines. Each factor writes only to its own disjoint row range,
	// and Values is read-only during the window, so no locking is needed.
	Parallel bool
	// Workers bounds the worker pool size when Parallel is set. 0 or a
	// negative value means 8 workers.
	Workers int
}

// Linearize assembles the sparse Jacobian and whitened residual for every
// factor in g against values, per spec section 4.7: walk factors in order,
// place each at its row offset and the columns ColumnMap assigns, skipping
// rows whose robust weight is exactly zero.
func Linearize(g *graph.Graph, values *variables.Values, opts Opts) (*SparseJacobian, *mat.VecDense, *ColumnMap, error) {
	cm, err := BuildColumnMapFromValues(g, values)
	if err != nil {
		return nil, nil, nil, err
	}

	factors := g.Factors()
	blocks := make([]factor.Block, len(factors))
	errs := make([]error, len(factors))

	linearizeOne := func(i int) {
		blocks[i], errs[i] = factor.Linearize(factors[i], values)
	}

	if opts.Parallel && len(factors) > 1 {
		workers := opts.Workers
		if workers <= 0 {
			workers = 8
		}
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					linearizeOne(i)
				}
			}()
		}
		for i := range factors {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	} else {
		for i := range factors {
			linearizeOne(i)
		}
	}

	for _, e := range errs {
		if e != nil {
			return nil, nil, nil, e
		}
	}

	rowOffset := 0
	fbs := make([]FactorBlock, 0, len(blocks))
	var residualRows [][]float64
	for _, b := range blocks {
		if b.Weight == 0 {
			continue
		}
		colOffsets := make([]int, len(b.Keys))
		dims := make([]int, len(b.Keys))
		for i, k := range b.Keys {
			off, w, _ := cm.Offset(k)
			colOffsets[i] = off
			dims[i] = w
		}
		fbs = append(fbs, FactorBlock{
			RowOffset:  rowOffset,
			Keys:       b.Keys,
			ColOffsets: colOffsets,
			Dims:       dims,
			Sub:        b.Blocks,
			Weight:     b.Weight,
		})
		residualRows = append(residualRows, b.Residual)
		rowOffset += len(b.Residual)
	}

	M := rowOffset
	N := cm.N()
	r := mat.NewVecDense(M, nil)
	row := 0
	for _, rr := range residualRows {
		for _, v := range rr {
			r.SetVec(row, v)
			row++
		}
	}

	return &SparseJacobian{M: M, N: N, Factors: fbs}, r, cm, nil
}
