package variables

import (
	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/scalar"
)

// SE3 is a 3D pose (rotation, translation), tangent ordered (rotation,
// translation). The exponential map is block-structured using SO3's
// coupling matrix by default; build with -tags se3decoupled to use the
// cheaper SO(3) x R^3 product retraction instead.
type SE3 struct {
	Rot   SO3
	Trans [3]scalar.Real
}

func (SE3) Dim() int { return 6 }

func (SE3) Identity() Variable {
	return SE3{Rot: IdentitySO3, Trans: [3]scalar.Real{0, 0, 0}}
}

func (v SE3) Inverse() Variable {
	rInv := v.Rot.Inverse().(SO3)
	R := v.Rot.RotationMatrix()
	t := [3]float64{float64(v.Trans[0]), float64(v.Trans[1]), float64(v.Trans[2])}
	// t' = -R^T * t
	tx := -(R.At(0, 0)*t[0] + R.At(1, 0)*t[1] + R.At(2, 0)*t[2])
	ty := -(R.At(0, 1)*t[0] + R.At(1, 1)*t[1] + R.At(2, 1)*t[2])
	tz := -(R.At(0, 2)*t[0] + R.At(1, 2)*t[1] + R.At(2, 2)*t[2])
	return SE3{Rot: rInv, Trans: [3]scalar.Real{scalar.Real(tx), scalar.Real(ty), scalar.Real(tz)}}
}

func (v SE3) Compose(other Variable) Variable {
	o := other.(SE3)
	R := v.Rot.RotationMatrix()
	vt := [3]float64{float64(v.Trans[0]), float64(v.Trans[1]), float64(v.Trans[2])}
	ot := [3]float64{float64(o.Trans[0]), float64(o.Trans[1]), float64(o.Trans[2])}
	tx := vt[0] + R.At(0, 0)*ot[0] + R.At(0, 1)*ot[1] + R.At(0, 2)*ot[2]
	ty := vt[1] + R.At(1, 0)*ot[0] + R.At(1, 1)*ot[1] + R.At(1, 2)*ot[2]
	tz := vt[2] + R.At(2, 0)*ot[0] + R.At(2, 1)*ot[1] + R.At(2, 2)*ot[2]
	return SE3{Rot: v.Rot.Compose(o.Rot).(SO3), Trans: [3]scalar.Real{scalar.Real(tx), scalar.Real(ty), scalar.Real(tz)}}
}

func (SE3) Exp(tau []float64) Variable {
	omega := [3]float64{tau[0], tau[1], tau[2]}
	rho := [3]float64{tau[3], tau[4], tau[5]}
	R, t := se3ExpImpl(omega, rho)
	return SE3{Rot: R, Trans: [3]scalar.Real{scalar.Real(t[0]), scalar.Real(t[1]), scalar.Real(t[2])}}
}

func (v SE3) Log() []float64 {
	t := [3]float64{float64(v.Trans[0]), float64(v.Trans[1]), float64(v.Trans[2])}
	return se3LogImpl(v.Rot, t)
}

// Adjoint returns the 6x6 adjoint matrix of v, acting on (rotation,
// translation)-ordered tangent vectors as [[R, 0], [skew(t)*R, R]].
func (v SE3) Adjoint() [][]float64 {
	R := v.Rot.Adjoint()
	t := [3]float64{float64(v.Trans[0]), float64(v.Trans[1]), float64(v.Trans[2])}
	tSkew := skew(t)
	tR := matMul3(tSkew, R)
	out := make([][]float64, 6)
	for i := 0; i < 6; i++ {
		out[i] = make([]float64, 6)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = R[i][j]
			out[i+3][j+3] = R[i][j]
			out[i+3][j] = tR[i][j]
		}
	}
	return out
}

func (v SE3) Perturb(tau []dual.Dual) DualVariable {
	width := len(tau[0].Grad)
	vDual := SE3Dual{
		Rot: SO3Dual{
			X: dual.Const(float64(v.Rot.X), width),
			Y: dual.Const(float64(v.Rot.Y), width),
			Z: dual.Const(float64(v.Rot.Z), width),
			W: dual.Const(float64(v.Rot.W), width),
		},
		T: [3]dual.Dual{
			dual.Const(float64(v.Trans[0]), width),
			dual.Const(float64(v.Trans[1]), width),
			dual.Const(float64(v.Trans[2]), width),
		},
	}
	omega := tau[0:3]
	rho := tau[3:6]
	R, t := se3ExpDualImpl(omega, rho, width)
	expTau := SE3Dual{Rot: R, T: t}
	if RightUpdate {
		return vDual.Compose(expTau)
	}
	return expTau.Compose(vDual)
}

// SE3Dual is the dual-numbered twin of SE3, produced by SE3.Perturb.
type SE3Dual struct {
	Rot SO3Dual
	T   [3]dual.Dual
}

func (SE3Dual) Dim() int { return 6 }

func (v SE3Dual) Inverse() DualVariable {
	rInv := v.Rot.Inverse().(SO3Dual)
	// rotate -t by R^-1, i.e. rInv.
	t := rotateByQuatDual(rInv, v.T)
	return SE3Dual{Rot: rInv, T: [3]dual.Dual{t[0].Neg(), t[1].Neg(), t[2].Neg()}}
}

func (v SE3Dual) Compose(other DualVariable) DualVariable {
	o := other.(SE3Dual)
	rotated := rotateByQuatDual(v.Rot, o.T)
	t := [3]dual.Dual{
		v.T[0].Add(rotated[0]),
		v.T[1].Add(rotated[1]),
		v.T[2].Add(rotated[2]),
	}
	return SE3Dual{Rot: v.Rot.Compose(o.Rot).(SO3Dual), T: t}
}

func (v SE3Dual) Log() []dual.Dual {
	omega := v.Rot.Log()
	width := len(omega[0].Grad)
	Vinv := se3CouplingMatrixDualInv(omega, width)
	rho := mat3VecDual(Vinv, v.T[:])
	return []dual.Dual{omega[0], omega[1], omega[2], rho[0], rho[1], rho[2]}
}

// rotateByQuatDual applies the rotation represented by q to vector v using
// quaternion conjugation, entirely in dual arithmetic.
func rotateByQuatDual(q SO3Dual, v [3]dual.Dual) [3]dual.Dual {
	width := len(q.W.Grad)
	vq := SO3Dual{X: v[0], Y: v[1], Z: v[2], W: dual.Const(0, width)}
	r := q.Compose(vq).(SO3Dual)
	r = r.Compose(q.Inverse()).(SO3Dual)
	return [3]dual.Dual{r.X, r.Y, r.Z}
}
