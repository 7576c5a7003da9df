package variables

import (
	"math"

	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/scalar"
)

// SO2 is a 2D rotation represented by its angle in radians, normalized to
// (-pi, pi]. Its tangent space is 1-dimensional and coincides with the
// angle itself, so Exp and Log are the identity map up to wrapping.
type SO2 struct {
	Theta scalar.Real
}

// wrapAngle normalizes theta to (-pi, pi].
func wrapAngle(theta float64) float64 {
	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta - math.Pi
}

// NewSO2 returns the rotation by theta radians, normalized.
func NewSO2(theta float64) SO2 { return SO2{Theta: scalar.Real(wrapAngle(theta))} }

func (SO2) Dim() int { return 1 }

func (SO2) Identity() Variable { return SO2{Theta: 0} }

func (v SO2) Inverse() Variable { return SO2{Theta: scalar.Real(wrapAngle(float64(-v.Theta)))} }

func (v SO2) Compose(other Variable) Variable {
	o := other.(SO2)
	return SO2{Theta: scalar.Real(wrapAngle(float64(v.Theta + o.Theta)))}
}

func (SO2) Exp(tau []float64) Variable { return SO2{Theta: scalar.Real(wrapAngle(tau[0]))} }

func (v SO2) Log() []float64 { return []float64{float64(v.Theta)} }

func (SO2) Adjoint() [][]float64 { return [][]float64{{1}} }

func (v SO2) Perturb(tau []dual.Dual) DualVariable {
	width := len(tau[0].Grad)
	theta := dual.Const(float64(v.Theta), width).Add(tau[0])
	if !RightUpdate {
		theta = tau[0].Add(dual.Const(float64(v.Theta), width))
	}
	return SO2Dual{Theta: theta}
}

// SO2Dual is the dual-numbered twin of SO2, produced by SO2.Perturb.
type SO2Dual struct {
	Theta dual.Dual
}

func (SO2Dual) Dim() int { return 1 }

func (v SO2Dual) Inverse() DualVariable { return SO2Dual{Theta: v.Theta.Neg()} }

func (v SO2Dual) Compose(other DualVariable) DualVariable {
	o := other.(SO2Dual)
	theta := v.Theta.Add(o.Theta)
	theta.Val = scalar.Real(wrapAngle(float64(theta.Val)))
	return SO2Dual{Theta: theta}
}

func (v SO2Dual) Log() []dual.Dual { return []dual.Dual{v.Theta} }
