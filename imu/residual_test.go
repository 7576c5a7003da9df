package imu_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/imu"
	"github.com/go-factorgo/factorgo/scalar"
	"github.com/go-factorgo/factorgo/variables"
)

// buildFinishedDelta preintegrates a short, slightly-noisy constant-rate
// trajectory so Residual has non-trivial bias Jacobians and covariance to
// exercise, rather than testing only the zero-motion identity case already
// covered in preintegrate_test.go.
func buildFinishedDelta(t *testing.T) imu.Delta {
	t.Helper()
	bias := variables.ImuBias{}
	p := imu.New(imu.DefaultParams(), bias)
	gravity := imu.DefaultParams().Gravity
	omega := [3]float64{0.05, -0.02, 0.1}
	accel := [3]float64{0.2, -0.1, -gravity[2] + 0.05}
	dt := 0.01
	for i := 0; i < 50; i++ {
		p.Integrate(omega, accel, dt)
	}
	return p.Delta()
}

// residualJacobian computes Residual's analytic Jacobian (via EvaluateDual,
// the same path factor.Linearize uses) and a central-difference Jacobian
// (via Evaluate under Oplus perturbation) over the same ordered set of
// variables, so the two can be compared directly.
func residualJacobian(res imu.Residual, vs []variables.Variable, h float64) (analytic, numeric [][]float64) {
	totalWidth := 0
	offsets := make([]int, len(vs))
	for i, v := range vs {
		offsets[i] = totalWidth
		totalWidth += v.Dim()
	}

	dualVs := make([]variables.DualVariable, len(vs))
	for i, v := range vs {
		dualVs[i] = variables.PerturbDual(v, totalWidth, offsets[i])
	}
	out := res.EvaluateDual(dualVs)
	m := len(out)
	analytic = make([][]float64, m)
	for i, d := range out {
		row := make([]float64, totalWidth)
		copy(row, d.Grad)
		analytic[i] = row
	}

	base := res.Evaluate(vs)
	m = len(base)
	numeric = make([][]float64, m)
	for i := range numeric {
		numeric[i] = make([]float64, totalWidth)
	}
	for vi, v := range vs {
		d := v.Dim()
		for k := 0; k < d; k++ {
			tauP := make([]float64, d)
			tauM := make([]float64, d)
			tauP[k] = h
			tauM[k] = -h

			vsP := append([]variables.Variable(nil), vs...)
			vsP[vi] = variables.Oplus(v, tauP)
			vsM := append([]variables.Variable(nil), vs...)
			vsM[vi] = variables.Oplus(v, tauM)

			fp := res.Evaluate(vsP)
			fm := res.Evaluate(vsM)
			col := offsets[vi] + k
			for row := 0; row < m; row++ {
				numeric[row][col] = (fp[row] - fm[row]) / (2 * h)
			}
		}
	}
	return analytic, numeric
}

func TestResidualJacobianMatchesFiniteDifference(t *testing.T) {
	d := buildFinishedDelta(t)
	gravity := imu.DefaultParams().Gravity
	res := imu.NewResidual(d, gravity)

	poseI := variables.SE3{Rot: variables.IdentitySO3, Trans: [3]scalar.Real{0, 0, 0}}
	velI := variables.NewVectorVarN([]float64{0, 0, 0})
	biasI := d.BiasAtLinearization

	// Predict where the window should land and perturb slightly off that
	// prediction, so the residual is evaluated away from its own zero (a
	// Jacobian check at exactly r=0 would miss sign errors in several terms
	// that only show up once r is nonzero).
	rotJ := poseI.Rot.Compose(d.Rot).(variables.SO3)
	poseJ := variables.SE3{
		Rot:   rotJ,
		Trans: [3]scalar.Real{scalar.Real(d.Pos[0] + 0.01), scalar.Real(d.Pos[1] - 0.02), scalar.Real(d.Pos[2] + 0.03)},
	}
	velJ := variables.NewVectorVarN([]float64{d.Vel[0] + 0.01, d.Vel[1], d.Vel[2] - 0.01})
	biasJ := variables.ImuBias{
		Gyro:  [3]scalar.Real{biasI.Gyro[0] + 0.001, biasI.Gyro[1], biasI.Gyro[2]},
		Accel: [3]scalar.Real{biasI.Accel[0], biasI.Accel[1] - 0.002, biasI.Accel[2]},
	}

	vs := []variables.Variable{poseI, velI, biasI, poseJ, velJ, biasJ}

	analytic, numeric := residualJacobian(res, vs, 1e-6)
	require.Len(t, analytic, 15)
	for i := range analytic {
		for j := range analytic[i] {
			require.InDelta(t, numeric[i][j], analytic[i][j], 1e-5,
				"row %d col %d: analytic %v numeric %v", i, j, analytic[i][j], numeric[i][j])
		}
	}
}

func TestResidualIsZeroAtExactPrediction(t *testing.T) {
	d := buildFinishedDelta(t)
	gravity := imu.DefaultParams().Gravity
	res := imu.NewResidual(d, gravity)
	dt := d.Dt

	poseI := variables.SE3{Rot: variables.IdentitySO3, Trans: [3]scalar.Real{0, 0, 0}}
	velI := variables.NewVectorVarN([]float64{0, 0, 0})
	biasI := d.BiasAtLinearization

	rotJ := poseI.Rot.Compose(d.Rot).(variables.SO3)
	// Delta is gravity-free, so the predicted world-frame velocity/position
	// at j must add back the gravity term Residual subtracts before
	// comparing against Delta.
	velJ := variables.NewVectorVarN([]float64{
		d.Vel[0] + gravity[0]*dt,
		d.Vel[1] + gravity[1]*dt,
		d.Vel[2] + gravity[2]*dt,
	})
	posJ := [3]float64{
		d.Pos[0] + 0.5*gravity[0]*dt*dt,
		d.Pos[1] + 0.5*gravity[1]*dt*dt,
		d.Pos[2] + 0.5*gravity[2]*dt*dt,
	}
	poseJ := variables.SE3{Rot: rotJ, Trans: [3]scalar.Real{scalar.Real(posJ[0]), scalar.Real(posJ[1]), scalar.Real(posJ[2])}}
	biasJ := biasI

	vs := []variables.Variable{poseI, velI, biasI, poseJ, velJ, biasJ}
	r := res.Evaluate(vs)
	require.Len(t, r, 15)
	for _, ri := range r {
		require.InDelta(t, 0, ri, 1e-9)
	}
}

func TestResidualDimAndArity(t *testing.T) {
	res := imu.NewResidual(imu.Identity(variables.ImuBias{}), [3]float64{0, 0, -9.81})
	require.Equal(t, 15, res.Dim())
	require.Equal(t, 6, res.Arity())
	require.Len(t, res.ExpectedTypes(), 6)
}
