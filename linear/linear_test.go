package linear_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/linear"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/variables"
)

func key(i uint64) variables.Key { return variables.NewKey('a', i) }

func buildChain(t *testing.T) (*graph.Graph, *variables.Values) {
	t.Helper()
	g := graph.New()
	v := variables.NewValues()

	require.NoError(t, v.Set(key(0), variables.NewSO2(0.1)))
	require.NoError(t, v.Set(key(1), variables.NewSO2(0.6)))
	require.NoError(t, v.Set(key(2), variables.NewSO2(1.3)))

	priorNoise := noise.FromSigma(0.1, 1)
	f0, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0)}, []variables.Key{key(0)}, priorNoise, nil)
	require.NoError(t, err)
	g.Add(f0)

	betweenNoise := noise.FromSigma(0.05, 1)
	f1, err := factor.New(residual.Between{Delta: variables.NewSO2(0.5)}, []variables.Key{key(0), key(1)}, betweenNoise, nil)
	require.NoError(t, err)
	g.Add(f1)

	f2, err := factor.New(residual.Between{Delta: variables.NewSO2(0.5)}, []variables.Key{key(1), key(2)}, betweenNoise, nil)
	require.NoError(t, err)
	g.Add(f2)

	return g, v
}

func TestBuildColumnMapFromValuesAssignsDeterministicOffsets(t *testing.T) {
	g, v := buildChain(t)
	cm, err := linear.BuildColumnMapFromValues(g, v)
	require.NoError(t, err)
	require.Equal(t, 3, cm.N())

	off0, w0, ok := cm.Offset(key(0))
	require.True(t, ok)
	require.Equal(t, 0, off0)
	require.Equal(t, 1, w0)

	off1, _, ok := cm.Offset(key(1))
	require.True(t, ok)
	require.Equal(t, 1, off1)

	off2, _, ok := cm.Offset(key(2))
	require.True(t, ok)
	require.Equal(t, 2, off2)
}

func TestLinearizeAssemblesExpectedShape(t *testing.T) {
	g, v := buildChain(t)
	sj, r, cm, err := linear.Linearize(g, v, linear.Opts{})
	require.NoError(t, err)
	require.Equal(t, 3, sj.M) // one row per factor, each Dim()==1
	require.Equal(t, 3, sj.N)
	require.Equal(t, 3, r.Len())
	require.Equal(t, 3, cm.N())

	J := sj.Dense()
	rows, cols := J.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)
}

func TestLinearizeMissingKeyPropagatesError(t *testing.T) {
	g := graph.New()
	v := variables.NewValues()
	priorNoise := noise.FromSigma(0.1, 1)
	f, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0)}, []variables.Key{key(99)}, priorNoise, nil)
	require.NoError(t, err)
	g.Add(f)

	_, _, _, err = linear.Linearize(g, v, linear.Opts{})
	require.Error(t, err)
}

func TestLinearizeParallelMatchesSequential(t *testing.T) {
	g, v := buildChain(t)
	sjSeq, rSeq, _, err := linear.Linearize(g, v, linear.Opts{Parallel: false})
	require.NoError(t, err)
	sjPar, rPar, _, err := linear.Linearize(g, v, linear.Opts{Parallel: true, Workers: 4})
	require.NoError(t, err)

	require.Equal(t, sjSeq.Dense().RawMatrix().Data, sjPar.Dense().RawMatrix().Data)
	for i := 0; i < rSeq.Len(); i++ {
		require.True(t, math.Abs(rSeq.AtVec(i)-rPar.AtVec(i)) < 1e-12)
	}
}

func TestDenseSolverSolvesWellConditionedSystem(t *testing.T) {
	g, v := buildChain(t)
	sj, r, _, err := linear.Linearize(g, v, linear.Opts{})
	require.NoError(t, err)

	solver := linear.NewDenseSolver()
	dx, err := solver.Solve(sj, r)
	require.NoError(t, err)
	require.Equal(t, 3, dx.Len())
}
