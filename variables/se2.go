package variables

import (
	"math"

	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/scalar"
)

// SE2 is a 2D pose (rotation, translation), with tangent ordered
// (rotation, translation) as required by the spec.
type SE2 struct {
	Rot   SO2
	Trans [2]scalar.Real
}

func (SE2) Dim() int { return 3 }

func (SE2) Identity() Variable { return SE2{Rot: SO2{Theta: 0}, Trans: [2]scalar.Real{0, 0}} }

func (v SE2) Inverse() Variable {
	rInv := v.Rot.Inverse().(SO2)
	c, s := math.Cos(float64(v.Rot.Theta)), math.Sin(float64(v.Rot.Theta))
	tx0, ty0 := float64(v.Trans[0]), float64(v.Trans[1])
	// R^T * (-t)
	tx := -(c*tx0 + s*ty0)
	ty := -(-s*tx0 + c*ty0)
	return SE2{Rot: rInv, Trans: [2]scalar.Real{scalar.Real(tx), scalar.Real(ty)}}
}

func (v SE2) Compose(other Variable) Variable {
	o := other.(SE2)
	c, s := math.Cos(float64(v.Rot.Theta)), math.Sin(float64(v.Rot.Theta))
	ox, oy := float64(o.Trans[0]), float64(o.Trans[1])
	tx := float64(v.Trans[0]) + c*ox - s*oy
	ty := float64(v.Trans[1]) + s*ox + c*oy
	return SE2{Rot: v.Rot.Compose(o.Rot).(SO2), Trans: [2]scalar.Real{scalar.Real(tx), scalar.Real(ty)}}
}

// se2LeftJacobianV returns the 2x2 "V" block coupling rotation to
// translation in the SE(2) exponential: Exp(theta, rho) = (R(theta), V*rho).
func se2LeftJacobianV(theta float64) [2][2]float64 {
	if math.Abs(theta) < scalarEps {
		// V ~= I - theta/2 * J - theta^2/6 * I, first order here is enough.
		return [2][2]float64{{1, -theta / 2}, {theta / 2, 1}}
	}
	s, c := math.Sin(theta), math.Cos(theta)
	a := s / theta
	b := (1 - c) / theta
	return [2][2]float64{{a, -b}, {b, a}}
}

func se2LeftJacobianVInv(theta float64) [2][2]float64 {
	if math.Abs(theta) < scalarEps {
		return [2][2]float64{{1, theta / 2}, {-theta / 2, 1}}
	}
	v := se2LeftJacobianV(theta)
	det := v[0][0]*v[1][1] - v[0][1]*v[1][0]
	return [2][2]float64{
		{v[1][1] / det, -v[0][1] / det},
		{-v[1][0] / det, v[0][0] / det},
	}
}

func (SE2) Exp(tau []float64) Variable {
	theta := tau[0]
	rho := [2]float64{tau[1], tau[2]}
	v := se2LeftJacobianV(theta)
	t := [2]float64{
		v[0][0]*rho[0] + v[0][1]*rho[1],
		v[1][0]*rho[0] + v[1][1]*rho[1],
	}
	return SE2{Rot: SO2{Theta: scalar.Real(wrapAngle(theta))}, Trans: [2]scalar.Real{scalar.Real(t[0]), scalar.Real(t[1])}}
}

func (v SE2) Log() []float64 {
	theta := float64(v.Rot.Theta)
	vinv := se2LeftJacobianVInv(theta)
	tx, ty := float64(v.Trans[0]), float64(v.Trans[1])
	rho := [2]float64{
		vinv[0][0]*tx + vinv[0][1]*ty,
		vinv[1][0]*tx + vinv[1][1]*ty,
	}
	return []float64{theta, rho[0], rho[1]}
}

func (v SE2) Adjoint() [][]float64 {
	c, s := math.Cos(float64(v.Rot.Theta)), math.Sin(float64(v.Rot.Theta))
	tx, ty := float64(v.Trans[0]), float64(v.Trans[1])
	return [][]float64{
		{1, 0, 0},
		{ty, c, -s},
		{-tx, s, c},
	}
}

func (v SE2) Perturb(tau []dual.Dual) DualVariable {
	width := len(tau[0].Grad)
	vDual := SE2Dual{
		Rot: SO2Dual{Theta: dual.Const(float64(v.Rot.Theta), width)},
		TX:  dual.Const(float64(v.Trans[0]), width),
		TY:  dual.Const(float64(v.Trans[1]), width),
	}
	expTau := expSE2Dual(tau, width)
	if RightUpdate {
		return vDual.Compose(expTau)
	}
	return expTau.Compose(vDual)
}

func expSE2Dual(tau []dual.Dual, width int) SE2Dual {
	theta := tau[0]
	rho0, rho1 := tau[1], tau[2]
	var a, b dual.Dual
	s := theta.Sin()
	c := theta.Cos()
	if theta.Val < scalarEps && theta.Val > -scalarEps {
		a = dual.Const(1, width)
		b = theta.Scale(0.5)
	} else {
		a = s.Div(theta)
		b = dual.Const(1, width).Sub(c).Div(theta)
	}
	tx := a.Mul(rho0).Sub(b.Mul(rho1))
	ty := b.Mul(rho0).Add(a.Mul(rho1))
	return SE2Dual{Rot: SO2Dual{Theta: theta}, TX: tx, TY: ty}
}

// SE2Dual is the dual-numbered twin of SE2, produced by SE2.Perturb.
type SE2Dual struct {
	Rot    SO2Dual
	TX, TY dual.Dual
}

func (SE2Dual) Dim() int { return 3 }

func (v SE2Dual) Inverse() DualVariable {
	rInv := v.Rot.Inverse().(SO2Dual)
	c, s := v.Rot.Theta.Cos(), v.Rot.Theta.Sin()
	tx := c.Mul(v.TX).Add(s.Mul(v.TY)).Neg()
	ty := s.Neg().Mul(v.TX).Add(c.Mul(v.TY)).Neg()
	return SE2Dual{Rot: rInv, TX: tx, TY: ty}
}

func (v SE2Dual) Compose(other DualVariable) DualVariable {
	o := other.(SE2Dual)
	c, s := v.Rot.Theta.Cos(), v.Rot.Theta.Sin()
	tx := v.TX.Add(c.Mul(o.TX)).Sub(s.Mul(o.TY))
	ty := v.TY.Add(s.Mul(o.TX)).Add(c.Mul(o.TY))
	return SE2Dual{Rot: v.Rot.Compose(o.Rot).(SO2Dual), TX: tx, TY: ty}
}

func (v SE2Dual) Log() []dual.Dual {
	theta := v.Rot.Theta
	width := len(theta.Grad)
	s := theta.Sin()
	c := theta.Cos()
	var a, b dual.Dual
	if theta.Val < scalarEps && theta.Val > -scalarEps {
		a = dual.Const(1, width)
		b = theta.Scale(0.5)
	} else {
		a = s.Div(theta)
		b = dual.Const(1, width).Sub(c).Div(theta)
	}
	// invert [[a,-b],[b,a]]
	det := a.Mul(a).Add(b.Mul(b))
	rho0 := a.Mul(v.TX).Add(b.Mul(v.TY)).Div(det)
	rho1 := a.Mul(v.TY).Sub(b.Mul(v.TX)).Div(det)
	return []dual.Dual{theta, rho0, rho1}
}
