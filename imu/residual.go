package imu

import (
	"reflect"

	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/variables"
)

// Residual is the 6-variable composite factor a finished Delta produces:
// inputs (pose_i, vel_i, bias_i, pose_j, vel_j, bias_j), output a 15-vector
// (rotation error, body-frame velocity error, body-frame position error,
// gyro-bias drift, accel-bias drift), matching Delta.Cov's block order.
// Rotation/velocity/position increments are first corrected to the current
// bias estimate via Delta's stored bias Jacobians before comparison; the
// bias-drift rows compare bias_j against bias_i directly, since a bias is
// expected to hold steady (plus random-walk noise) across the window.
type Residual struct {
	Delta   Delta
	Gravity [3]float64
}

// NewResidual builds an IMU residual from a finished preintegration and the
// world-frame gravity vector.
func NewResidual(d Delta, gravity [3]float64) Residual {
	return Residual{Delta: d, Gravity: gravity}
}

func (Residual) Dim() int   { return 15 }
func (Residual) Arity() int { return 6 }

func (r Residual) ExpectedTypes() []reflect.Type {
	poseT := reflect.TypeOf(variables.SE3{})
	velT := reflect.TypeOf(variables.VectorVarN{})
	biasT := reflect.TypeOf(variables.ImuBias{})
	return []reflect.Type{poseT, velT, biasT, poseT, velT, biasT}
}

func (r Residual) Evaluate(vs []variables.Variable) []float64 {
	width := 30
	dvs := make([]variables.DualVariable, len(vs))
	for i, v := range vs {
		dvs[i] = variables.Lift(v, width)
	}
	out := r.EvaluateDual(dvs)
	res := make([]float64, len(out))
	for i, d := range out {
		res[i] = float64(d.Val)
	}
	return res
}

func (r Residual) EvaluateDual(vs []variables.DualVariable) []dual.Dual {
	poseI := vs[0].(variables.SE3Dual)
	velI := vs[1].(variables.VectorVarNDual)
	biasI := vs[2].(variables.ImuBiasDual)
	poseJ := vs[3].(variables.SE3Dual)
	velJ := vs[4].(variables.VectorVarNDual)
	biasJ := vs[5].(variables.ImuBiasDual)

	width := len(poseI.Rot.W.Grad)

	dbg := [3]dual.Dual{
		biasI.Gyro[0].Sub(dual.Const(float64(r.Delta.BiasAtLinearization.Gyro[0]), width)),
		biasI.Gyro[1].Sub(dual.Const(float64(r.Delta.BiasAtLinearization.Gyro[1]), width)),
		biasI.Gyro[2].Sub(dual.Const(float64(r.Delta.BiasAtLinearization.Gyro[2]), width)),
	}
	dba := [3]dual.Dual{
		biasI.Accel[0].Sub(dual.Const(float64(r.Delta.BiasAtLinearization.Accel[0]), width)),
		biasI.Accel[1].Sub(dual.Const(float64(r.Delta.BiasAtLinearization.Accel[1]), width)),
		biasI.Accel[2].Sub(dual.Const(float64(r.Delta.BiasAtLinearization.Accel[2]), width)),
	}

	rotCorrection := matVecDual(r.Delta.DRotDGyroBias, dbg, width)
	deltaRotCorrected := correctRotation(r.Delta.Rot, rotCorrection, width)

	velCorrection := addDual3(
		matVecDual(r.Delta.DVelDGyroBias, dbg, width),
		matVecDual(r.Delta.DVelDAccelBias, dba, width),
	)
	deltaVelCorrected := addConstDual3(r.Delta.Vel, velCorrection, width)

	posCorrection := addDual3(
		matVecDual(r.Delta.DPosDGyroBias, dbg, width),
		matVecDual(r.Delta.DPosDAccelBias, dba, width),
	)
	deltaPosCorrected := addConstDual3(r.Delta.Pos, posCorrection, width)

	predRot := poseI.Rot.Compose(deltaRotCorrected).(variables.SO3Dual)
	rotErr := logDualSO3(poseJ.Rot.Inverse().Compose(predRot).(variables.SO3Dual))

	dt := r.Delta.Dt
	g := r.Gravity

	rawVel := [3]dual.Dual{
		velJ.Vals[0].Sub(velI.Vals[0]).Sub(dual.Const(g[0]*dt, width)),
		velJ.Vals[1].Sub(velI.Vals[1]).Sub(dual.Const(g[1]*dt, width)),
		velJ.Vals[2].Sub(velI.Vals[2]).Sub(dual.Const(g[2]*dt, width)),
	}
	bodyVel := rotateInverseDual(poseI.Rot, rawVel)
	velErr := [3]dual.Dual{
		bodyVel[0].Sub(deltaVelCorrected[0]),
		bodyVel[1].Sub(deltaVelCorrected[1]),
		bodyVel[2].Sub(deltaVelCorrected[2]),
	}

	posI := poseI.T
	posJ := poseJ.T
	rawPos := [3]dual.Dual{
		posJ[0].Sub(posI[0]).Sub(velI.Vals[0].Scale(dt)).Sub(dual.Const(0.5*g[0]*dt*dt, width)),
		posJ[1].Sub(posI[1]).Sub(velI.Vals[1].Scale(dt)).Sub(dual.Const(0.5*g[1]*dt*dt, width)),
		posJ[2].Sub(posI[2]).Sub(velI.Vals[2].Scale(dt)).Sub(dual.Const(0.5*g[2]*dt*dt, width)),
	}
	bodyPos := rotateInverseDual(poseI.Rot, rawPos)
	posErr := [3]dual.Dual{
		bodyPos[0].Sub(deltaPosCorrected[0]),
		bodyPos[1].Sub(deltaPosCorrected[1]),
		bodyPos[2].Sub(deltaPosCorrected[2]),
	}

	bgDrift := [3]dual.Dual{
		biasJ.Gyro[0].Sub(biasI.Gyro[0]),
		biasJ.Gyro[1].Sub(biasI.Gyro[1]),
		biasJ.Gyro[2].Sub(biasI.Gyro[2]),
	}
	baDrift := [3]dual.Dual{
		biasJ.Accel[0].Sub(biasI.Accel[0]),
		biasJ.Accel[1].Sub(biasI.Accel[1]),
		biasJ.Accel[2].Sub(biasI.Accel[2]),
	}

	return []dual.Dual{
		rotErr[0], rotErr[1], rotErr[2],
		velErr[0], velErr[1], velErr[2],
		posErr[0], posErr[1], posErr[2],
		bgDrift[0], bgDrift[1], bgDrift[2],
		baDrift[0], baDrift[1], baDrift[2],
	}
}

func matVecDual(m [3][3]float64, v [3]dual.Dual, width int) [3]dual.Dual {
	var out [3]dual.Dual
	for i := 0; i < 3; i++ {
		out[i] = dual.Const(0, width)
		for j := 0; j < 3; j++ {
			out[i] = out[i].Add(v[j].Scale(m[i][j]))
		}
	}
	return out
}

func addDual3(a, b [3]dual.Dual) [3]dual.Dual {
	return [3]dual.Dual{a[0].Add(b[0]), a[1].Add(b[1]), a[2].Add(b[2])}
}

func addConstDual3(c [3]float64, d [3]dual.Dual, width int) [3]dual.Dual {
	return [3]dual.Dual{
		dual.Const(c[0], width).Add(d[0]),
		dual.Const(c[1], width).Add(d[1]),
		dual.Const(c[2], width).Add(d[2]),
	}
}

// correctRotation applies a small quaternion correction built from the
// bias-Jacobian-propagated tangent vector omega to the constant rotation
// base, via the standard first-order quaternion increment
// [cos(|omega|/2), sin(|omega|/2) omega/|omega|] approximated to second
// order in |omega|, valid because omega is itself a first-order bias
// sensitivity term and so stays small between optimizer iterations.
func correctRotation(base variables.SO3, omega [3]dual.Dual, width int) variables.SO3Dual {
	theta2 := omega[0].Mul(omega[0]).Add(omega[1].Mul(omega[1])).Add(omega[2].Mul(omega[2]))
	half := dual.Const(0.5, width).Sub(theta2.Scale(1.0 / 48))
	cosHalf := dual.Const(1, width).Sub(theta2.Scale(1.0 / 8))
	dq := variables.SO3Dual{
		X: omega[0].Mul(half),
		Y: omega[1].Mul(half),
		Z: omega[2].Mul(half),
		W: cosHalf,
	}
	baseDual := variables.SO3Dual{
		X: dual.Const(float64(base.X), width),
		Y: dual.Const(float64(base.Y), width),
		Z: dual.Const(float64(base.Z), width),
		W: dual.Const(float64(base.W), width),
	}
	return baseDual.Compose(dq).(variables.SO3Dual)
}

// logDualSO3 is the dual-numbered quaternion logarithm: it returns
// SO3Dual.Log's three components as a fixed-size array.
func logDualSO3(q variables.SO3Dual) [3]dual.Dual {
	l := q.Log()
	return [3]dual.Dual{l[0], l[1], l[2]}
}

// rotateInverseDual rotates v by q's inverse (conjugate), i.e. expresses a
// world-frame vector in q's body frame.
func rotateInverseDual(q variables.SO3Dual, v [3]dual.Dual) [3]dual.Dual {
	qInv := q.Inverse().(variables.SO3Dual)
	width := len(qInv.W.Grad)
	vq := variables.SO3Dual{X: v[0], Y: v[1], Z: v[2], W: dual.Const(0, width)}
	r := qInv.Compose(vq).(variables.SO3Dual)
	r = r.Compose(q).(variables.SO3Dual)
	return [3]dual.Dual{r.X, r.Y, r.Z}
}
