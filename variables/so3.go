package variables

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/dual"
	"github.com/go-factorgo/factorgo/scalar"
)

// SO3 is a 3D rotation represented as a unit quaternion (X, Y, Z, W) with
// W the scalar part. Its tangent space is R^3 (angle-axis / Rodrigues
// coordinates).
type SO3 struct {
	X, Y, Z, W scalar.Real
}

// IdentitySO3 is the identity rotation.
var IdentitySO3 = SO3{X: 0, Y: 0, Z: 0, W: 1}

func (SO3) Dim() int { return 3 }

func (SO3) Identity() Variable { return IdentitySO3 }

func (v SO3) Inverse() Variable {
	return SO3{X: -v.X, Y: -v.Y, Z: -v.Z, W: v.W}
}

func (v SO3) Compose(other Variable) Variable {
	o := other.(SO3)
	return SO3{
		X: v.W*o.X + v.X*o.W + v.Y*o.Z - v.Z*o.Y,
		Y: v.W*o.Y - v.X*o.Z + v.Y*o.W + v.Z*o.X,
		Z: v.W*o.Z + v.X*o.Y - v.Y*o.X + v.Z*o.W,
		W: v.W*o.W - v.X*o.X - v.Y*o.Y - v.Z*o.Z,
	}
}

// ExpSO3 computes the quaternion exp(omega) via the Rodrigues half-angle
// formula, with a small-angle Taylor series to avoid dividing by a near-zero
// angle.
func ExpSO3(omega [3]float64) SO3 {
	theta2 := omega[0]*omega[0] + omega[1]*omega[1] + omega[2]*omega[2]
	theta := math.Sqrt(theta2)
	var sinHalfOverTheta, cosHalf float64
	if theta < scalarEps {
		// sin(theta/2)/theta ~= 0.5 - theta^2/48
		sinHalfOverTheta = 0.5 - theta2/48
		cosHalf = 1 - theta2/8
	} else {
		half := theta / 2
		sinHalfOverTheta = math.Sin(half) / theta
		cosHalf = math.Cos(half)
	}
	return SO3{
		X: scalar.Real(omega[0] * sinHalfOverTheta),
		Y: scalar.Real(omega[1] * sinHalfOverTheta),
		Z: scalar.Real(omega[2] * sinHalfOverTheta),
		W: scalar.Real(cosHalf),
	}
}

const scalarEps = 1e-8

func (SO3) Exp(tau []float64) Variable {
	return ExpSO3([3]float64{tau[0], tau[1], tau[2]})
}

// RotationMatrix converts the unit quaternion to its 3x3 rotation matrix.
func (v SO3) RotationMatrix() *mat.Dense {
	x, y, z, w := float64(v.X), float64(v.Y), float64(v.Z), float64(v.W)
	r := mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
	return r
}

// Log returns the Rodrigues (angle-axis) coordinates of v, computed from
// the trace of its rotation matrix. Near theta=0 a Taylor series avoids the
// 1/sin(theta) singularity; near theta=pi, where the standard (R-R^T)/2
// formula loses the axis entirely (sin(pi)=0), the axis is instead
// recovered as the dominant eigenvector of the rank-1 matrix (R+I)/2 via
// gonum's EigenSym, following the standard eigen-based branch for antipodal
// rotations.
func (v SO3) Log() []float64 {
	R := v.RotationMatrix()
	trace := R.At(0, 0) + R.At(1, 1) + R.At(2, 2)
	cosTheta := (trace - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)

	vee := func(r *mat.Dense) [3]float64 {
		return [3]float64{
			r.At(2, 1) - r.At(1, 2),
			r.At(0, 2) - r.At(2, 0),
			r.At(1, 0) - r.At(0, 1),
		}
	}

	switch {
	case theta < scalarEps:
		w := vee(R)
		return []float64{w[0] / 2, w[1] / 2, w[2] / 2}
	case theta > math.Pi-1e-6:
		axis := axisFromAntipodalRotation(R)
		return []float64{axis[0] * theta, axis[1] * theta, axis[2] * theta}
	default:
		w := vee(R)
		scale := theta / (2 * math.Sin(theta))
		return []float64{w[0] * scale, w[1] * scale, w[2] * scale}
	}
}

// axisFromAntipodalRotation extracts the rotation axis of a near-pi
// rotation from M = (R+I)/2, a rank-1 PSD matrix equal to axis*axis^T at
// exactly theta=pi, using its dominant eigenvector.
func axisFromAntipodalRotation(R *mat.Dense) [3]float64 {
	var M mat.Dense
	M.Apply(func(i, j int, v float64) float64 {
		if i == j {
			return (v + 1) / 2
		}
		return v / 2
	}, R)

	n := 3
	symData := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			symData[i*n+j] = (M.At(i, j) + M.At(j, i)) / 2
		}
	}
	symMat := mat.NewSymDense(n, symData)

	var eig mat.EigenSym
	ok := eig.Factorize(symMat, true)
	if !ok {
		// Degenerate: fall back to the largest-diagonal heuristic.
		return axisFromDiagonal(&M)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	axis := [3]float64{vectors.At(0, best), vectors.At(1, best), vectors.At(2, best)}
	norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if norm < scalarEps {
		return axisFromDiagonal(&M)
	}
	return [3]float64{axis[0] / norm, axis[1] / norm, axis[2] / norm}
}

func axisFromDiagonal(M *mat.Dense) [3]float64 {
	axis := [3]float64{
		math.Sqrt(math.Max(0, M.At(0, 0))),
		math.Sqrt(math.Max(0, M.At(1, 1))),
		math.Sqrt(math.Max(0, M.At(2, 2))),
	}
	ref := 0
	for i := 1; i < 3; i++ {
		if axis[i] > axis[ref] {
			ref = i
		}
	}
	if axis[ref] < scalarEps {
		return [3]float64{1, 0, 0}
	}
	for i := 0; i < 3; i++ {
		if i == ref {
			continue
		}
		if M.At(ref, i) < 0 {
			axis[i] = -axis[i]
		}
	}
	return axis
}

// Adjoint of an SO3 element is its rotation matrix.
func (v SO3) Adjoint() [][]float64 {
	R := v.RotationMatrix()
	out := make([][]float64, 3)
	for i := 0; i < 3; i++ {
		out[i] = []float64{R.At(i, 0), R.At(i, 1), R.At(i, 2)}
	}
	return out
}

// RightJacobian returns H(theta), the right Jacobian of the SO3 exponential
// map, used to relate Lie-algebra velocities to body-frame angular rates
// during IMU preintegration.
func RightJacobian(omega [3]float64) [][]float64 {
	theta2 := omega[0]*omega[0] + omega[1]*omega[1] + omega[2]*omega[2]
	theta := math.Sqrt(theta2)
	hat := skew(omega)
	if theta < scalarEps {
		// H(theta) ~= I - 1/2 hat(omega) + 1/6 hat(omega)^2
		return matSub3(matSub3(identity3(), scaleMat3(hat, 0.5)), scaleMat3(matMul3(hat, hat), -1.0/6))
	}
	a := (1 - math.Cos(theta)) / theta2
	b := (theta - math.Sin(theta)) / (theta2 * theta)
	return matAdd3(matSub3(identity3(), scaleMat3(hat, a)), scaleMat3(matMul3(hat, hat), b))
}

// RightJacobianInv returns H(theta)^-1.
func RightJacobianInv(omega [3]float64) [][]float64 {
	theta2 := omega[0]*omega[0] + omega[1]*omega[1] + omega[2]*omega[2]
	theta := math.Sqrt(theta2)
	hat := skew(omega)
	if theta < scalarEps {
		// H^-1(theta) ~= I + 1/2 hat(omega) + 1/12 hat(omega)^2
		return matAdd3(matAdd3(identity3(), scaleMat3(hat, 0.5)), scaleMat3(matMul3(hat, hat), 1.0/12))
	}
	halfCot := (1.0 / theta2) * (1 - (theta/2)*math.Cos(theta/2)/math.Sin(theta/2))
	return matAdd3(matAdd3(identity3(), scaleMat3(hat, 0.5)), scaleMat3(matMul3(hat, hat), halfCot))
}

func skew(v [3]float64) [][]float64 {
	return [][]float64{
		{0, -v[2], v[1]},
		{v[2], 0, -v[0]},
		{-v[1], v[0], 0},
	}
}

func identity3() [][]float64 {
	return [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func matAdd3(a, b [][]float64) [][]float64 {
	out := make([][]float64, 3)
	for i := range out {
		out[i] = make([]float64, 3)
		for j := range out[i] {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

func matSub3(a, b [][]float64) [][]float64 {
	out := make([][]float64, 3)
	for i := range out {
		out[i] = make([]float64, 3)
		for j := range out[i] {
			out[i][j] = a[i][j] - b[i][j]
		}
	}
	return out
}

func scaleMat3(a [][]float64, s float64) [][]float64 {
	out := make([][]float64, 3)
	for i := range out {
		out[i] = make([]float64, 3)
		for j := range out[i] {
			out[i][j] = a[i][j] * s
		}
	}
	return out
}

func matMul3(a, b [][]float64) [][]float64 {
	out := make([][]float64, 3)
	for i := 0; i < 3; i++ {
		out[i] = make([]float64, 3)
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func (v SO3) Perturb(tau []dual.Dual) DualVariable {
	width := len(tau[0].Grad)
	xd := dual.Const(float64(v.X), width)
	yd := dual.Const(float64(v.Y), width)
	zd := dual.Const(float64(v.Z), width)
	wd := dual.Const(float64(v.W), width)
	vDual := SO3Dual{X: xd, Y: yd, Z: zd, W: wd}
	expTau := expSO3Dual(tau, width)
	if RightUpdate {
		return vDual.Compose(expTau)
	}
	return expTau.Compose(vDual)
}

// expSO3Dual is the dual-numbered twin of ExpSO3, used to lift a seeded
// tangent perturbation into quaternion space during Perturb.
func expSO3Dual(omega []dual.Dual, width int) SO3Dual {
	theta2 := omega[0].Mul(omega[0]).Add(omega[1].Mul(omega[1])).Add(omega[2].Mul(omega[2]))
	var sinHalfOverTheta, cosHalf dual.Dual
	if theta2.Val < scalarEps*scalarEps {
		// sin(theta/2)/theta ~= 0.5 - theta^2/48 ; cos(theta/2) ~= 1 - theta^2/8
		sinHalfOverTheta = dual.Const(0.5, width).Sub(theta2.Scale(1.0 / 48))
		cosHalf = dual.Const(1, width).Sub(theta2.Scale(1.0 / 8))
	} else {
		theta := theta2.Sqrt()
		half := theta.Scale(0.5)
		sinHalfOverTheta = half.Sin().Div(theta)
		cosHalf = half.Cos()
	}
	return SO3Dual{
		X: omega[0].Mul(sinHalfOverTheta),
		Y: omega[1].Mul(sinHalfOverTheta),
		Z: omega[2].Mul(sinHalfOverTheta),
		W: cosHalf,
	}
}

// SO3Dual is the dual-numbered twin of SO3, produced by SO3.Perturb.
type SO3Dual struct {
	X, Y, Z, W dual.Dual
}

func (SO3Dual) Dim() int { return 3 }

func (v SO3Dual) Inverse() DualVariable {
	return SO3Dual{X: v.X.Neg(), Y: v.Y.Neg(), Z: v.Z.Neg(), W: v.W}
}

func (v SO3Dual) Compose(other DualVariable) DualVariable {
	o := other.(SO3Dual)
	return SO3Dual{
		X: v.W.Mul(o.X).Add(v.X.Mul(o.W)).Add(v.Y.Mul(o.Z)).Sub(v.Z.Mul(o.Y)),
		Y: v.W.Mul(o.Y).Sub(v.X.Mul(o.Z)).Add(v.Y.Mul(o.W)).Add(v.Z.Mul(o.X)),
		Z: v.W.Mul(o.Z).Add(v.X.Mul(o.Y)).Sub(v.Y.Mul(o.X)).Add(v.Z.Mul(o.W)),
		W: v.W.Mul(o.W).Sub(v.X.Mul(o.X)).Sub(v.Y.Mul(o.Y)).Sub(v.Z.Mul(o.Z)),
	}
}

// Log computes the Rodrigues coordinates of v directly from its quaternion
// components rather than via the trace-of-rotation-matrix formula SO3.Log
// uses: the quaternion form has no singularity at theta=pi (unlike the
// (R-R^T)/2 formula, it never needs the eigen fallback), and its small-angle
// branch is a rational function of the squared vector norm, so it stays
// differentiable at the identity where the real-valued axis/angle
// decomposition is not.
func (v SO3Dual) Log() []dual.Dual {
	width := len(v.W.Grad)
	x, y, z, w := v.X, v.Y, v.Z, v.W
	if w.Val < 0 {
		x, y, z, w = x.Neg(), y.Neg(), z.Neg(), w.Neg()
	}
	s2 := x.Mul(x).Add(y.Mul(y)).Add(z.Mul(z))
	var factor dual.Dual
	if s2.Val < 1e-8 {
		w2 := w.Mul(w)
		inner := dual.Const(1, width).Sub(s2.Div(w2).Scale(1.0 / 3))
		factor = dual.Const(2, width).Div(w).Mul(inner)
	} else {
		vnorm := s2.Sqrt()
		angle := vnorm.Atan2(w).Scale(2)
		factor = angle.Div(vnorm)
	}
	return []dual.Dual{x.Mul(factor), y.Mul(factor), z.Mul(factor)}
}
