package optimize_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/optimize"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/variables"
)

func key(i uint64) variables.Key { return variables.NewKey('a', i) }

// buildMisalignedChain sets up a 3-node SO2 pose chain anchored by a prior
// at 0 and two between-factors each demanding a 0.5 rad step, but starts
// Values far from the consistent solution so the optimizer has real work
// to do.
func buildMisalignedChain(t *testing.T) (*graph.Graph, *variables.Values) {
	t.Helper()
	g := graph.New()
	v := variables.NewValues()

	require.NoError(t, v.Set(key(0), variables.NewSO2(1.0)))
	require.NoError(t, v.Set(key(1), variables.NewSO2(1.0)))
	require.NoError(t, v.Set(key(2), variables.NewSO2(1.0)))

	priorNoise := noise.FromSigma(0.01, 1)
	f0, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0)}, []variables.Key{key(0)}, priorNoise, nil)
	require.NoError(t, err)
	g.Add(f0)

	betweenNoise := noise.FromSigma(0.01, 1)
	f1, err := factor.New(residual.Between{Delta: variables.NewSO2(0.5)}, []variables.Key{key(0), key(1)}, betweenNoise, nil)
	require.NoError(t, err)
	g.Add(f1)

	f2, err := factor.New(residual.Between{Delta: variables.NewSO2(0.5)}, []variables.Key{key(1), key(2)}, betweenNoise, nil)
	require.NoError(t, err)
	g.Add(f2)

	return g, v
}

func TestGaussNewtonConvergesOnSO2Chain(t *testing.T) {
	g, v := buildMisalignedChain(t)
	opt := optimize.NewGaussNewton(optimize.DefaultGaussNewtonParams())
	rep, err := opt.Optimize(g, v)
	require.NoError(t, err)
	require.NotEqual(t, optimize.MaxIterations, rep.Termination)
	require.Less(t, rep.FinalError, 1e-12)

	v0, _ := v.Get(key(0))
	v1, _ := v.Get(key(1))
	v2, _ := v.Get(key(2))
	require.InDelta(t, 0.0, v0.(variables.SO2).Theta, 1e-4)
	require.InDelta(t, 0.5, v1.(variables.SO2).Theta, 1e-4)
	require.InDelta(t, 1.0, v2.(variables.SO2).Theta, 1e-4)
}

func TestLevenbergMarquardtConvergesOnSO2Chain(t *testing.T) {
	g, v := buildMisalignedChain(t)
	opt := optimize.NewLevenbergMarquardt(optimize.DefaultLevenbergMarquardtParams())
	rep, err := opt.Optimize(g, v)
	require.NoError(t, err)
	require.Less(t, rep.FinalError, 1e-10)
	require.Less(t, rep.FinalError, rep.InitialError)
}

func TestSinglePriorConvergesInOneStep(t *testing.T) {
	g := graph.New()
	v := variables.NewValues()
	require.NoError(t, v.Set(key(0), variables.NewSO2(2.0)))

	priorNoise := noise.FromSigma(1.0, 1)
	f, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0.3)}, []variables.Key{key(0)}, priorNoise, nil)
	require.NoError(t, err)
	g.Add(f)

	opt := optimize.NewGaussNewton(optimize.DefaultGaussNewtonParams())
	rep, err := opt.Optimize(g, v)
	require.NoError(t, err)
	require.LessOrEqual(t, rep.Iterations, 2)

	got, _ := v.Get(key(0))
	require.True(t, math.Abs(float64(got.(variables.SO2).Theta)-0.3) < 1e-8)
}
