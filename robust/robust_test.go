package robust_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/robust"
)

func TestL2IsIdentity(t *testing.T) {
	k := robust.L2{}
	require.Equal(t, 1.0, k.Weight(100))
	require.InDelta(t, 50.0, k.Loss(100), 1e-12)
}

func TestHuberIsQuadraticBelowDeltaLinearAbove(t *testing.T) {
	h := robust.Huber{Delta: 2.0}
	require.Equal(t, 1.0, h.Weight(1.0)) // sqrt(1)=1 <= 2
	require.InDelta(t, 0.5, h.Loss(1.0), 1e-12)

	s := 16.0 // sqrt(16)=4 > 2
	require.InDelta(t, 0.5, h.Weight(s), 1e-12) // delta/r = 2/4
	require.InDelta(t, 2.0*(4-1.0), h.Loss(s), 1e-12)
}

func TestCauchyWeightDecaysWithResidual(t *testing.T) {
	c := robust.Cauchy{C: 1.0}
	require.InDelta(t, 1.0, c.Weight(0), 1e-12)
	w := c.Weight(3.0)
	require.InDelta(t, 0.25, w, 1e-12) // 1/(1+3)
	require.Less(t, c.Weight(100), c.Weight(1))
}

func TestGemanMcClureWeightApproachesZeroFarFromOrigin(t *testing.T) {
	g := robust.GemanMcClure{C: 1.0}
	require.InDelta(t, 1.0, g.Weight(0), 1e-12)
	require.Less(t, g.Weight(1000), 0.01)
}

func TestWelschWeightIsExponentialDecay(t *testing.T) {
	w := robust.Welsch{C: 2.0}
	require.InDelta(t, 1.0, w.Weight(0), 1e-12)
	require.InDelta(t, math.Exp(-1), w.Weight(4), 1e-12) // s/c^2 = 4/4 = 1
}

func TestScaleRowsWithNilKernelIsNoOp(t *testing.T) {
	r := []float64{1, 2}
	J := [][]float64{{1, 0}, {0, 1}}
	w, outR, outJ := robust.ScaleRows(nil, r, J)
	require.Equal(t, 1.0, w)
	require.Equal(t, r, outR)
	require.Equal(t, J, outJ)
}

func TestScaleRowsAppliesSqrtWeightToResidualAndJacobian(t *testing.T) {
	h := robust.Huber{Delta: 1.0}
	r := []float64{3, 4} // ||r||^2 = 25, sqrt=5 > delta=1, weight = 1/5
	J := [][]float64{{1, 2}, {3, 4}}
	w, outR, outJ := robust.ScaleRows(h, r, J)
	require.InDelta(t, 0.2, w, 1e-12)
	sw := math.Sqrt(0.2)
	require.InDeltaSlice(t, []float64{3 * sw, 4 * sw}, outR, 1e-12)
	require.InDeltaSlice(t, []float64{1 * sw, 2 * sw}, outJ[0], 1e-12)
	require.InDeltaSlice(t, []float64{3 * sw, 4 * sw}, outJ[1], 1e-12)
}

func TestScaleRowsClampsNegativeWeightToZero(t *testing.T) {
	// A pathological kernel returning a negative weight must not produce a
	// NaN scale factor; ScaleRows clamps via math.Max(w, 0) before the sqrt.
	neg := negKernel{}
	w, outR, _ := robust.ScaleRows(neg, []float64{1}, [][]float64{{1}})
	require.Equal(t, -1.0, w)
	require.Equal(t, 0.0, outR[0])
}

type negKernel struct{}

func (negKernel) Weight(float64) float64 { return -1 }
func (negKernel) Loss(float64) float64   { return 0 }
