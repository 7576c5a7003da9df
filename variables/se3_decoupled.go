//go:build se3decoupled

package variables

import "github.com/go-factorgo/factorgo/dual"

// SE3Coupled reports whether this build uses the true (coupled) SE(3)
// exponential. Built with -tags se3decoupled, translation retracts
// independently of rotation: Exp(omega, rho) = (Exp_SO3(omega), rho).
const SE3Coupled = false

func se3ExpImpl(omega, rho [3]float64) (SO3, [3]float64) {
	return ExpSO3(omega), rho
}

func se3LogImpl(R SO3, t [3]float64) []float64 {
	omega := R.Log()
	return []float64{omega[0], omega[1], omega[2], t[0], t[1], t[2]}
}

func se3ExpDualImpl(omega, rho []dual.Dual, width int) (SO3Dual, [3]dual.Dual) {
	return expSO3Dual(omega, width), [3]dual.Dual{rho[0], rho[1], rho[2]}
}

func se3CouplingMatrixDualInv(omega []dual.Dual, width int) [3][3]dual.Dual {
	return identity3Dual(width)
}
