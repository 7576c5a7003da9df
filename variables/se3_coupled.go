//go:build !se3decoupled

package variables

import (
	"math"

	"github.com/go-factorgo/factorgo/dual"
)

// SE3Coupled reports whether this build uses the true (coupled) SE(3)
// exponential, where translation mixes with rotation through the SO(3)
// coupling matrix V(theta).
const SE3Coupled = true

func se3CouplingMatrix(omega [3]float64) [][]float64 {
	theta2 := omega[0]*omega[0] + omega[1]*omega[1] + omega[2]*omega[2]
	theta := math.Sqrt(theta2)
	k := skew(omega)
	if theta < scalarEps {
		return matAdd3(matAdd3(identity3(), scaleMat3(k, 0.5)), scaleMat3(matMul3(k, k), 1.0/6))
	}
	a := (1 - math.Cos(theta)) / theta2
	b := (theta - math.Sin(theta)) / (theta2 * theta)
	return matAdd3(matAdd3(identity3(), scaleMat3(k, a)), scaleMat3(matMul3(k, k), b))
}

func se3CouplingMatrixInv(omega [3]float64) [][]float64 {
	theta2 := omega[0]*omega[0] + omega[1]*omega[1] + omega[2]*omega[2]
	theta := math.Sqrt(theta2)
	k := skew(omega)
	if theta < scalarEps {
		return matAdd3(matSub3(identity3(), scaleMat3(k, 0.5)), scaleMat3(matMul3(k, k), 1.0/12))
	}
	halfCot := (1.0 / theta2) * (1 - (theta/2)*math.Cos(theta/2)/math.Sin(theta/2))
	return matAdd3(matSub3(identity3(), scaleMat3(k, 0.5)), scaleMat3(matMul3(k, k), halfCot))
}

func mat3Vec(m [][]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func se3ExpImpl(omega, rho [3]float64) (SO3, [3]float64) {
	R := ExpSO3(omega)
	V := se3CouplingMatrix(omega)
	return R, mat3Vec(V, rho)
}

func se3LogImpl(R SO3, t [3]float64) []float64 {
	omega := R.Log()
	Vinv := se3CouplingMatrixInv([3]float64{omega[0], omega[1], omega[2]})
	rho := mat3Vec(Vinv, t)
	return []float64{omega[0], omega[1], omega[2], rho[0], rho[1], rho[2]}
}

func se3CouplingMatrixDual(omega []dual.Dual, width int) [3][3]dual.Dual {
	theta2 := omega[0].Mul(omega[0]).Add(omega[1].Mul(omega[1])).Add(omega[2].Mul(omega[2]))
	k := skewDual(omega, width)
	var a, b dual.Dual
	if theta2.Val < scalarEps*scalarEps {
		a = dual.Const(0.5, width)
		b = dual.Const(1.0/6, width)
	} else {
		theta := theta2.Sqrt()
		a = dual.Const(1, width).Sub(theta.Cos()).Div(theta2)
		b = theta.Sub(theta.Sin()).Div(theta2.Mul(theta))
	}
	return matAdd3Dual(matAdd3Dual(identity3Dual(width), scaleMat3Dual(k, a)), scaleMat3Dual(matMul3Dual(k, k), b))
}

func se3ExpDualImpl(omega, rho []dual.Dual, width int) (SO3Dual, [3]dual.Dual) {
	R := expSO3Dual(omega, width)
	V := se3CouplingMatrixDual(omega, width)
	return R, mat3VecDual(V, rho)
}

func se3CouplingMatrixDualInv(omega []dual.Dual, width int) [3][3]dual.Dual {
	theta2 := omega[0].Mul(omega[0]).Add(omega[1].Mul(omega[1])).Add(omega[2].Mul(omega[2]))
	k := skewDual(omega, width)
	var halfCot dual.Dual
	if theta2.Val < scalarEps*scalarEps {
		halfCot = dual.Const(1.0/12, width)
	} else {
		theta := theta2.Sqrt()
		half := theta.Scale(0.5)
		cotHalf := half.Cos().Div(half.Sin())
		halfCot = dual.Const(1, width).Sub(half.Mul(cotHalf)).Div(theta2)
	}
	return matAdd3Dual(matSub3Dual(identity3Dual(width), scaleMat3Dual(k, dual.Const(0.5, width))), scaleMat3Dual(matMul3Dual(k, k), halfCot))
}
