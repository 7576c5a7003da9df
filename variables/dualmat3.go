package variables

import "github.com/go-factorgo/factorgo/dual"

// 3x3 dual-valued matrix helpers, the autodiff counterparts of the plain
// float64 helpers in so3.go, used to build SE(3)'s coupling matrix V(theta)
// with seeded duals flowing through.

func skewDual(v []dual.Dual, width int) [3][3]dual.Dual {
	zero := dual.Const(0, width)
	return [3][3]dual.Dual{
		{zero, v[2].Neg(), v[1]},
		{v[2], zero, v[0].Neg()},
		{v[1].Neg(), v[0], zero},
	}
}

func identity3Dual(width int) [3][3]dual.Dual {
	zero := dual.Const(0, width)
	one := dual.Const(1, width)
	return [3][3]dual.Dual{
		{one, zero, zero},
		{zero, one, zero},
		{zero, zero, one},
	}
}

func matAdd3Dual(a, b [3][3]dual.Dual) [3][3]dual.Dual {
	var out [3][3]dual.Dual
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j].Add(b[i][j])
		}
	}
	return out
}

func matSub3Dual(a, b [3][3]dual.Dual) [3][3]dual.Dual {
	var out [3][3]dual.Dual
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j].Sub(b[i][j])
		}
	}
	return out
}

func scaleMat3Dual(a [3][3]dual.Dual, s dual.Dual) [3][3]dual.Dual {
	var out [3][3]dual.Dual
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j].Mul(s)
		}
	}
	return out
}

func matMul3Dual(a, b [3][3]dual.Dual) [3][3]dual.Dual {
	var out [3][3]dual.Dual
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := a[i][0].Mul(b[0][j])
			sum = sum.Add(a[i][1].Mul(b[1][j]))
			sum = sum.Add(a[i][2].Mul(b[2][j]))
			out[i][j] = sum
		}
	}
	return out
}

func mat3VecDual(m [3][3]dual.Dual, v []dual.Dual) [3]dual.Dual {
	return [3]dual.Dual{
		m[0][0].Mul(v[0]).Add(m[0][1].Mul(v[1])).Add(m[0][2].Mul(v[2])),
		m[1][0].Mul(v[0]).Add(m[1][1].Mul(v[1])).Add(m[1][2].Mul(v[2])),
		m[2][0].Mul(v[0]).Add(m[2][1].Mul(v[1])).Add(m[2][2].Mul(v[2])),
	}
}
