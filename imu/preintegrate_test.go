package imu_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/imu"
	"github.com/go-factorgo/factorgo/scalar"
	"github.com/go-factorgo/factorgo/variables"
)

func TestPreintegrateZeroMotionStaysAtIdentity(t *testing.T) {
	params := imu.DefaultParams()
	bias := variables.ImuBias{}
	p := imu.New(params, bias)

	// Zero angular rate and zero specific force: the integrator's own
	// identity case, independent of any gravity-compensation convention.
	dt := 0.01
	for i := 0; i < 100; i++ {
		p.Integrate([3]float64{0, 0, 0}, [3]float64{0, 0, 0}, dt)
	}

	d := p.Delta()
	require.InDelta(t, 1.0, d.Dt, 1e-9)
	log := d.Rot.Log()
	require.InDelta(t, 0, log[0], 1e-9)
	require.InDelta(t, 0, log[1], 1e-9)
	require.InDelta(t, 0, log[2], 1e-9)
	for i := 0; i < 3; i++ {
		require.InDelta(t, 0, d.Vel[i], 1e-9)
		require.InDelta(t, 0, d.Pos[i], 1e-9)
	}

	// Zero-motion still accumulates process noise: the covariance diagonal
	// must grow strictly positive, not stay at the all-zero identity start.
	for i := 0; i < 15; i++ {
		require.Greater(t, d.Cov.At(i, i), 0.0)
	}
}

func TestPreintegrateConstantAngularVelocityRotatesByOmegaTimesT(t *testing.T) {
	params := imu.DefaultParams()
	bias := variables.ImuBias{}
	p := imu.New(params, bias)

	omega := [3]float64{0, 0, 1.0} // 1 rad/s about z
	dt := 0.001
	steps := 1000 // 1 second total
	for i := 0; i < steps; i++ {
		p.Integrate(omega, [3]float64{0, 0, 0}, dt)
	}

	d := p.Delta()
	require.InDelta(t, 1.0, d.Dt, 1e-9)

	// After 1 second at 1 rad/s about z, the accumulated rotation is 1 rad
	// about z (omega*t), independent of the zero specific force above.
	log := d.Rot.Log()
	require.InDelta(t, 0, log[0], 1e-3)
	require.InDelta(t, 0, log[1], 1e-3)
	require.InDelta(t, 1.0, log[2], 1e-3)

	// Zero specific force rotates to zero regardless of orientation, so
	// velocity and position stay exactly at the origin even though the
	// rotation itself is not trivial.
	for i := 0; i < 3; i++ {
		require.InDelta(t, 0, d.Vel[i], 1e-12)
		require.InDelta(t, 0, d.Pos[i], 1e-12)
	}
}

func TestPreintegrateAccumulatesBiasAtLinearization(t *testing.T) {
	bias := variables.ImuBias{Gyro: [3]scalar.Real{0.01, 0, 0}, Accel: [3]scalar.Real{0, 0.02, 0}}
	p := imu.New(imu.DefaultParams(), bias)
	p.Integrate([3]float64{0.01, 0, 0}, [3]float64{0, 9.81 + 0.02, 0}, 0.01)

	d := p.Delta()
	require.Equal(t, bias, d.BiasAtLinearization)
}

func TestPreintegrateDtAccumulates(t *testing.T) {
	p := imu.New(imu.DefaultParams(), variables.ImuBias{})
	for i := 0; i < 50; i++ {
		p.Integrate([3]float64{0, 0, 0}, [3]float64{0, 0, 9.81}, 0.02)
	}
	require.InDelta(t, 1.0, p.Delta().Dt, 1e-9)
}

func TestPreintegrateCovarianceIsSymmetricPositiveDiagonal(t *testing.T) {
	p := imu.New(imu.DefaultParams(), variables.ImuBias{})
	for i := 0; i < 20; i++ {
		p.Integrate([3]float64{0.1, -0.05, 0.2}, [3]float64{0.3, 0.1, 9.9}, 0.01)
	}
	cov := p.Delta().Cov
	n, _ := cov.Dims()
	require.Equal(t, 15, n)
	for i := 0; i < n; i++ {
		require.False(t, math.IsNaN(cov.At(i, i)))
		require.GreaterOrEqual(t, cov.At(i, i), 0.0)
		for j := 0; j < n; j++ {
			require.InDelta(t, cov.At(i, j), cov.At(j, i), 1e-12)
		}
	}
}
