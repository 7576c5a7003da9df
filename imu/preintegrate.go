// Package imu implements preintegration of accelerometer and gyroscope
// samples between two keyframes into a single relative-motion factor, so an
// optimizer need not carry one variable per raw IMU sample.
package imu

import (
	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/variables"
)

// Params are the IMU's noise characteristics and the gravity vector
// expressed in the world frame, used only by Residual (Delta itself is
// gravity-free, per convention).
type Params struct {
	GyroNoiseSigma       float64 // rad/s/sqrt(Hz)
	AccelNoiseSigma      float64 // m/s^2/sqrt(Hz)
	GyroBiasSigma        float64 // rad/s/sqrt(Hz), random-walk
	AccelBiasSigma       float64 // m/s^2/sqrt(Hz), random-walk
	IntegrationNoiseSigma float64 // models the Euler step's dropped higher-order terms
	InitBiasNoiseSigma    float64 // uncertainty in the bias estimate the window started from
	Gravity               [3]float64
}

// DefaultParams mirrors a typical consumer-grade MEMS IMU.
func DefaultParams() Params {
	return Params{
		GyroNoiseSigma:        1.7e-4,
		AccelNoiseSigma:       2.0e-3,
		GyroBiasSigma:         2.0e-5,
		AccelBiasSigma:        3.0e-3,
		IntegrationNoiseSigma: 1.0e-6,
		InitBiasNoiseSigma:    1.0e-5,
		Gravity:               [3]float64{0, 0, -9.81},
	}
}

// stateDim is the full preintegrated error-state size: rotation, velocity,
// position, gyro bias, accel bias, each 3-dimensional.
const stateDim = 15

// noiseDim is the process noise input size: gyro, accel, gyro-bias-walk,
// accel-bias-walk, integration, init-bias, each 3-dimensional.
const noiseDim = 18

// state-block offsets into the 15x15 covariance.
const (
	offTheta = 0
	offVel   = 3
	offPos   = 6
	offBG    = 9
	offBA    = 12
)

// noise-block offsets into the 18x18 process noise.
const (
	noiseGyro      = 0
	noiseAccel     = 3
	noiseGyroBias  = 6
	noiseAccelBias = 9
	noiseIntegr    = 12
	noiseInitBias  = 15
)

// Delta is the preintegrated relative motion between two keyframes: a
// rotation, a gravity-free velocity increment, a gravity-free position
// increment, the bias the increments were linearized around, and elapsed
// time. Because Delta carries no gravity term, it does not depend on the
// sensor's orientation in the world and so can be reused across candidate
// bias corrections via the stored Jacobians.
type Delta struct {
	Rot variables.SO3
	Vel [3]float64
	Pos [3]float64
	Dt  float64

	BiasAtLinearization variables.ImuBias

	// Bias Jacobians: how Rot/Vel/Pos shift (to first order, via the right
	// Jacobian) for a change in gyro/accel bias away from
	// BiasAtLinearization. Extracted from the corresponding blocks of the
	// transition matrix A used in propagateCovariance.
	DRotDGyroBias  [3][3]float64
	DVelDGyroBias  [3][3]float64
	DVelDAccelBias [3][3]float64
	DPosDGyroBias  [3][3]float64
	DPosDAccelBias [3][3]float64

	// Cov is the 15x15 covariance of (rotation, velocity, position,
	// gyro-bias, accel-bias) tangent noise accumulated so far, in that
	// block order.
	Cov *mat.SymDense
}

// Identity returns a zero-length preintegration starting at bias.
func Identity(bias variables.ImuBias) Delta {
	return Delta{
		Rot:                 variables.IdentitySO3,
		BiasAtLinearization: bias,
		Cov:                 mat.NewSymDense(stateDim, nil),
	}
}

// Preintegrator accumulates IMU samples into a Delta via the standard
// discrete-time midpoint-free (simple Euler) integration scheme: each call
// to Integrate advances the running Delta by one sample of dt seconds.
type Preintegrator struct {
	params Params
	delta  Delta
}

// New starts a Preintegrator with the given noise params and bias estimate.
func New(params Params, bias variables.ImuBias) *Preintegrator {
	return &Preintegrator{params: params, delta: Identity(bias)}
}

// Delta returns the accumulated preintegration so far.
func (p *Preintegrator) Delta() Delta { return p.delta }

// Integrate folds one IMU sample (measured gyro and accel, both still
// bias-corrupted) over dt seconds into the running Delta.
func (p *Preintegrator) Integrate(gyroMeas, accelMeas [3]float64, dt float64) {
	p.delta = integrateOne(p.params, p.delta, gyroMeas, accelMeas, dt)
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func rotateVec(r variables.SO3, v [3]float64) [3]float64 {
	R := r.RotationMatrix()
	return [3]float64{
		R.At(0, 0)*v[0] + R.At(0, 1)*v[1] + R.At(0, 2)*v[2],
		R.At(1, 0)*v[0] + R.At(1, 1)*v[1] + R.At(1, 2)*v[2],
		R.At(2, 0)*v[0] + R.At(2, 1)*v[1] + R.At(2, 2)*v[2],
	}
}

func integrateOne(params Params, d Delta, gyroMeas, accelMeas [3]float64, dt float64) Delta {
	bg := d.BiasAtLinearization.Gyro
	ba := d.BiasAtLinearization.Accel
	gyro := sub3(gyroMeas, [3]float64{float64(bg[0]), float64(bg[1]), float64(bg[2])})
	accel := sub3(accelMeas, [3]float64{float64(ba[0]), float64(ba[1]), float64(ba[2])})

	omega := [3]float64{gyro[0] * dt, gyro[1] * dt, gyro[2] * dt}
	dRot := variables.ExpSO3(omega)

	rotatedAccel := rotateVec(d.Rot, accel)

	newPos := [3]float64{
		d.Pos[0] + d.Vel[0]*dt + 0.5*rotatedAccel[0]*dt*dt,
		d.Pos[1] + d.Vel[1]*dt + 0.5*rotatedAccel[1]*dt*dt,
		d.Pos[2] + d.Vel[2]*dt + 0.5*rotatedAccel[2]*dt*dt,
	}
	newVel := [3]float64{
		d.Vel[0] + rotatedAccel[0]*dt,
		d.Vel[1] + rotatedAccel[1]*dt,
		d.Vel[2] + rotatedAccel[2]*dt,
	}
	newRot := d.Rot.Compose(dRot).(variables.SO3)

	out := Delta{
		Rot:                 newRot,
		Vel:                 newVel,
		Pos:                 newPos,
		Dt:                  d.Dt + dt,
		BiasAtLinearization: d.BiasAtLinearization,
		Cov:                 propagateCovariance(params, d, gyro, accel, dt),
	}
	out.DRotDGyroBias, out.DVelDGyroBias, out.DVelDAccelBias, out.DPosDGyroBias, out.DPosDAccelBias =
		propagateBiasJacobians(d, gyro, accel, dt)
	return out
}

// propagateBiasJacobians advances the first-order sensitivity of
// (Rot, Vel, Pos) to the bias estimate, following the standard chain rule:
// a rotation perturbation right-composes through the rest of the window via
// the accumulated rotation's adjoint, while velocity/position gain a direct
// term from this step's measurement plus the carried-over term from the
// rotation's effect on previously-rotated accelerations. These are exactly
// the (theta,vel,pos)-by-(bg,ba) blocks of the transition matrix A built in
// propagateCovariance, extracted in closed form rather than read back out of
// the matrix.
func propagateBiasJacobians(d Delta, gyro, accel [3]float64, dt float64) (dRotDg, dVelDg, dVelDa, dPosDg, dPosDa [3][3]float64) {
	R := [3][3]float64{}
	dRotT := [3][3]float64{}
	Rm := d.Rot.RotationMatrix()
	dRotTm := variables.ExpSO3([3]float64{-gyro[0] * dt, -gyro[1] * dt, -gyro[2] * dt}).RotationMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			R[i][j] = Rm.At(i, j)
			dRotT[i][j] = dRotTm.At(i, j)
		}
	}

	accelSkew := skew3(accel)
	carriedRotDg := matMul3x3(dRotT, d.DRotDGyroBias)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dRotDg[i][j] = carriedRotDg[i][j] - dt*identityAt(i, j)

			rotatedJacG := matVec3(R, matVec3Cols(accelSkew, d.DRotDGyroBias, j))
			dVelDg[i][j] = d.DVelDGyroBias[i][j] - dt*rotatedJacG[i]
			dVelDa[i][j] = d.DVelDAccelBias[i][j] - dt*R[i][j]

			dPosDg[i][j] = d.DPosDGyroBias[i][j] + dt*d.DVelDGyroBias[i][j] - 0.5*dt*dt*rotatedJacG[i]
			dPosDa[i][j] = d.DPosDAccelBias[i][j] + dt*d.DVelDAccelBias[i][j] - 0.5*dt*dt*R[i][j]
		}
	}
	return
}

func identityAt(i, j int) float64 {
	if i == j {
		return 1
	}
	return 0
}

func skew3(v [3]float64) [3][3]float64 {
	return [3][3]float64{
		{0, -v[2], v[1]},
		{v[2], 0, -v[0]},
		{-v[1], v[0], 0},
	}
}

func matVec3(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func matVec3Cols(m [3][3]float64, jac [3][3]float64, col int) [3]float64 {
	v := [3]float64{jac[0][col], jac[1][col], jac[2][col]}
	return matVec3(m, v)
}

func matMul3x3(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

func sq(x float64) float64 { return x * x }

func setBlock3(m *mat.Dense, rowOff, colOff int, block [3][3]float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(rowOff+i, colOff+j, block[i][j])
		}
	}
}

func addScaledIdentity3(m *mat.Dense, rowOff, colOff int, scale float64) {
	for i := 0; i < 3; i++ {
		m.Set(rowOff+i, colOff+i, scale)
	}
}

// propagateCovariance advances the 15x15 (rotation, velocity, position,
// gyro-bias, accel-bias) tangent covariance by one Euler step:
// Sigma <- A Sigma A^T + B Q B^T, where A is the 15x15 linearized
// error-state transition, B is the 15x18 noise-input matrix, and Q is the
// 18x18 block-diagonal process noise (gyro, accel, gyro-bias-walk,
// accel-bias-walk, integration, init-bias).
func propagateCovariance(params Params, d Delta, gyro, accel [3]float64, dt float64) *mat.SymDense {
	Rm := d.Rot.RotationMatrix()
	R := [3][3]float64{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			R[i][j] = Rm.At(i, j)
		}
	}
	accelSkew := skew3(accel)
	RaSkew := matMul3x3(R, accelSkew)

	A := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		A.Set(i, i, 1)
	}
	dRotT := variables.ExpSO3([3]float64{-gyro[0] * dt, -gyro[1] * dt, -gyro[2] * dt}).RotationMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			A.Set(offTheta+i, offTheta+j, dRotT.At(i, j))
		}
	}
	addScaledIdentity3(A, offTheta, offBG, -dt)

	negRaSkewDt := [3][3]float64{}
	negRaSkewDt2 := [3][3]float64{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			negRaSkewDt[i][j] = -dt * RaSkew[i][j]
			negRaSkewDt2[i][j] = -0.5 * dt * dt * RaSkew[i][j]
		}
	}
	setBlock3(A, offVel, offTheta, negRaSkewDt)
	negRdt := [3][3]float64{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			negRdt[i][j] = -dt * R[i][j]
		}
	}
	setBlock3(A, offVel, offBA, negRdt)

	setBlock3(A, offPos, offTheta, negRaSkewDt2)
	addScaledIdentity3(A, offPos, offVel, dt)
	negRdt2 := [3][3]float64{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			negRdt2[i][j] = -0.5 * dt * dt * R[i][j]
		}
	}
	setBlock3(A, offPos, offBA, negRdt2)

	B := mat.NewDense(stateDim, noiseDim, nil)
	addScaledIdentity3(B, offTheta, noiseGyro, dt)
	addScaledIdentity3(B, offTheta, noiseIntegr, dt)
	setBlock3(B, offVel, noiseAccel, scaled3(R, dt))
	addScaledIdentity3(B, offVel, noiseIntegr, dt)
	setBlock3(B, offPos, noiseAccel, scaled3(R, 0.5*dt*dt))
	addScaledIdentity3(B, offPos, noiseIntegr, 0.5*dt*dt)
	addScaledIdentity3(B, offBG, noiseGyroBias, dt)
	addScaledIdentity3(B, offBG, noiseInitBias, dt)
	addScaledIdentity3(B, offBA, noiseAccelBias, dt)
	addScaledIdentity3(B, offBA, noiseInitBias, dt)

	qDiag := make([]float64, noiseDim)
	for i := 0; i < 3; i++ {
		qDiag[noiseGyro+i] = sq(params.GyroNoiseSigma)
		qDiag[noiseAccel+i] = sq(params.AccelNoiseSigma)
		qDiag[noiseGyroBias+i] = sq(params.GyroBiasSigma)
		qDiag[noiseAccelBias+i] = sq(params.AccelBiasSigma)
		qDiag[noiseIntegr+i] = sq(params.IntegrationNoiseSigma)
		qDiag[noiseInitBias+i] = sq(params.InitBiasNoiseSigma)
	}
	Q := mat.NewDiagDense(noiseDim, qDiag)

	var prev mat.Dense
	if d.Cov != nil {
		prev.CloneFrom(d.Cov)
	} else {
		prev = *mat.NewDense(stateDim, stateDim, nil)
	}

	var APrev, APrevAT mat.Dense
	APrev.Mul(A, &prev)
	APrevAT.Mul(&APrev, A.T())

	var BQ, BQBT mat.Dense
	BQ.Mul(B, Q)
	BQBT.Mul(&BQ, B.T())

	var sum mat.Dense
	sum.Add(&APrevAT, &BQBT)

	out := mat.NewSymDense(stateDim, nil)
	for i := 0; i < stateDim; i++ {
		for j := i; j < stateDim; j++ {
			out.SetSym(i, j, sum.At(i, j))
		}
	}
	return out
}

func scaled3(m [3][3]float64, s float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][j] * s
		}
	}
	return out
}
