package dual_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/dual"
)

func TestArithmeticMatchesScalarDerivatives(t *testing.T) {
	x := dual.Seed(2.0, 1, 0)
	y := x.Mul(x).Add(x.Scale(3))
	require.InDelta(t, 10.0, y.Val, 1e-12) // 2*2+3*2 = 10
	require.InDelta(t, 7.0, y.Grad[0], 1e-12) // d/dx(x^2+3x) = 2x+3 = 7
}

func TestTrigDerivatives(t *testing.T) {
	x := dual.Seed(0.7, 1, 0)
	s := x.Sin()
	require.InDelta(t, math.Sin(0.7), s.Val, 1e-12)
	require.InDelta(t, math.Cos(0.7), s.Grad[0], 1e-12)

	c := x.Cos()
	require.InDelta(t, math.Cos(0.7), c.Val, 1e-12)
	require.InDelta(t, -math.Sin(0.7), c.Grad[0], 1e-12)
}

func TestJacobianAgainstFiniteDifference(t *testing.T) {
	f := func(x []float64) []float64 {
		return []float64{x[0]*x[0] + x[1], math.Sin(x[0]) * x[1]}
	}
	fd := func(x []dual.Dual) []dual.Dual {
		return []dual.Dual{x[0].Mul(x[0]).Add(x[1]), x[0].Sin().Mul(x[1])}
	}
	x := []float64{0.3, 1.4}
	r, J := dual.Jacobian(fd, x)
	want := f(x)
	require.InDeltaSlice(t, want, r, 1e-12)

	num := dual.Numeric(f, x, 1e-6)
	for i := range J {
		require.InDeltaSlice(t, num[i], J[i], 1e-6)
	}
}

func TestAtan2Derivative(t *testing.T) {
	y := dual.Seed(1.0, 2, 0)
	x := dual.Seed(1.0, 2, 1)
	a := y.Atan2(x)
	require.InDelta(t, math.Atan2(1, 1), a.Val, 1e-12)
	// d/dy atan2(y,x) = x/(x^2+y^2); d/dx atan2(y,x) = -y/(x^2+y^2)
	require.InDelta(t, 0.5, a.Grad[0], 1e-12)
	require.InDelta(t, -0.5, a.Grad[1], 1e-12)
}
