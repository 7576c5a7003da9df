package variables

import (
	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/scalar"
)

// ImuBias is the (gyroscope bias, accelerometer bias) pair an IMU
// preintegration factor estimates alongside pose and velocity. It has
// vector-space semantics: compose is addition, Exp/Log are the identity
// map on the concatenated 6-vector (gyro bias, accel bias).
type ImuBias struct {
	Gyro  [3]scalar.Real
	Accel [3]scalar.Real
}

func (ImuBias) Dim() int { return 6 }

func (ImuBias) Identity() Variable { return ImuBias{} }

func (v ImuBias) Inverse() Variable {
	return ImuBias{
		Gyro:  [3]scalar.Real{-v.Gyro[0], -v.Gyro[1], -v.Gyro[2]},
		Accel: [3]scalar.Real{-v.Accel[0], -v.Accel[1], -v.Accel[2]},
	}
}

func (v ImuBias) Compose(other Variable) Variable {
	o := other.(ImuBias)
	return ImuBias{
		Gyro:  [3]scalar.Real{v.Gyro[0] + o.Gyro[0], v.Gyro[1] + o.Gyro[1], v.Gyro[2] + o.Gyro[2]},
		Accel: [3]scalar.Real{v.Accel[0] + o.Accel[0], v.Accel[1] + o.Accel[1], v.Accel[2] + o.Accel[2]},
	}
}

func (ImuBias) Exp(tau []float64) Variable {
	return ImuBias{
		Gyro:  [3]scalar.Real{scalar.Real(tau[0]), scalar.Real(tau[1]), scalar.Real(tau[2])},
		Accel: [3]scalar.Real{scalar.Real(tau[3]), scalar.Real(tau[4]), scalar.Real(tau[5])},
	}
}

func (v ImuBias) Log() []float64 {
	return []float64{
		float64(v.Gyro[0]), float64(v.Gyro[1]), float64(v.Gyro[2]),
		float64(v.Accel[0]), float64(v.Accel[1]), float64(v.Accel[2]),
	}
}

func (ImuBias) Adjoint() [][]float64 {
	out := make([][]float64, 6)
	for i := range out {
		out[i] = make([]float64, 6)
		out[i][i] = 1
	}
	return out
}

func (v ImuBias) Perturb(tau []dual.Dual) DualVariable {
	width := len(tau[0].Grad)
	g := [3]dual.Dual{}
	a := [3]dual.Dual{}
	for i := 0; i < 3; i++ {
		g[i] = dual.Const(float64(v.Gyro[i]), width).Add(tau[i])
		a[i] = dual.Const(float64(v.Accel[i]), width).Add(tau[i+3])
	}
	return ImuBiasDual{Gyro: g, Accel: a}
}

// ImuBiasDual is the dual-numbered twin of ImuBias.
type ImuBiasDual struct {
	Gyro, Accel [3]dual.Dual
}

func (ImuBiasDual) Dim() int { return 6 }

func (v ImuBiasDual) Inverse() DualVariable {
	return ImuBiasDual{
		Gyro:  [3]dual.Dual{v.Gyro[0].Neg(), v.Gyro[1].Neg(), v.Gyro[2].Neg()},
		Accel: [3]dual.Dual{v.Accel[0].Neg(), v.Accel[1].Neg(), v.Accel[2].Neg()},
	}
}

func (v ImuBiasDual) Compose(other DualVariable) DualVariable {
	o := other.(ImuBiasDual)
	g := [3]dual.Dual{}
	a := [3]dual.Dual{}
	for i := 0; i < 3; i++ {
		g[i] = v.Gyro[i].Add(o.Gyro[i])
		a[i] = v.Accel[i].Add(o.Accel[i])
	}
	return ImuBiasDual{Gyro: g, Accel: a}
}

func (v ImuBiasDual) Log() []dual.Dual {
	return []dual.Dual{v.Gyro[0], v.Gyro[1], v.Gyro[2], v.Accel[0], v.Accel[1], v.Accel[2]}
}
