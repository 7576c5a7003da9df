package variables_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/scalar"
	"github.com/go-factorgo/factorgo/variables"
)

func randSO2(r *rand.Rand) variables.SO2 { return variables.NewSO2((r.Float64()*2 - 1) * math.Pi) }

func randSO3(r *rand.Rand) variables.SO3 {
	omega := [3]float64{(r.Float64()*2 - 1), (r.Float64()*2 - 1), (r.Float64()*2 - 1)}
	return variables.ExpSO3(omega)
}

func randSE2(r *rand.Rand) variables.SE2 {
	return variables.SE2{
		Rot:   randSO2(r),
		Trans: [2]scalar.Real{scalar.Real(r.Float64()*4 - 2), scalar.Real(r.Float64()*4 - 2)},
	}
}

func randSE3(r *rand.Rand) variables.SE3 {
	return variables.SE3{
		Rot: randSO3(r),
		Trans: [3]scalar.Real{
			scalar.Real(r.Float64()*4 - 2),
			scalar.Real(r.Float64()*4 - 2),
			scalar.Real(r.Float64()*4 - 2),
		},
	}
}

func randVec(r *rand.Rand, n int) variables.VectorVarN {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = r.Float64()*4 - 2
	}
	return variables.NewVectorVarN(vals)
}

func randImuBias(r *rand.Rand) variables.ImuBias {
	return variables.ImuBias{
		Gyro:  [3]scalar.Real{scalar.Real(r.Float64()*0.2 - 0.1), scalar.Real(r.Float64()*0.2 - 0.1), scalar.Real(r.Float64()*0.2 - 0.1)},
		Accel: [3]scalar.Real{scalar.Real(r.Float64()*0.2 - 0.1), scalar.Real(r.Float64()*0.2 - 0.1), scalar.Real(r.Float64()*0.2 - 0.1)},
	}
}

func TestLogExpRoundTripSO2(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		v := randSO2(r)
		tau := v.Log()
		back := v.Exp(tau).(variables.SO2)
		require.InDelta(t, float64(v.Theta), float64(back.Theta), 1e-8)
	}
}

func TestLogExpRoundTripSO3(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 10; i++ {
		v := randSO3(r)
		tau := v.Log()
		back := v.Exp(tau).(variables.SO3)
		requireSO3Close(t, v, back, 1e-8)
	}
}

func requireSO3Close(t *testing.T, a, b variables.SO3, tol float64) {
	t.Helper()
	ax, ay, az, aw := float64(a.X), float64(a.Y), float64(a.Z), float64(a.W)
	bx, by, bz, bw := float64(b.X), float64(b.Y), float64(b.Z), float64(b.W)
	// Quaternions double-cover SO3; allow the antipodal sign.
	d1 := math.Abs(ax-bx) + math.Abs(ay-by) + math.Abs(az-bz) + math.Abs(aw-bw)
	d2 := math.Abs(ax+bx) + math.Abs(ay+by) + math.Abs(az+bz) + math.Abs(aw+bw)
	require.True(t, d1 < tol || d2 < tol, "quaternions differ: %+v vs %+v", a, b)
}

func TestLogExpRoundTripSE2(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		v := randSE2(r)
		tau := v.Log()
		back := v.Exp(tau).(variables.SE2)
		require.InDelta(t, float64(v.Rot.Theta), float64(back.Rot.Theta), 1e-6)
		require.InDelta(t, float64(v.Trans[0]), float64(back.Trans[0]), 1e-6)
		require.InDelta(t, float64(v.Trans[1]), float64(back.Trans[1]), 1e-6)
	}
}

func TestLogExpRoundTripSE3(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 10; i++ {
		v := randSE3(r)
		tau := v.Log()
		back := v.Exp(tau).(variables.SE3)
		requireSO3Close(t, v.Rot, back.Rot, 1e-6)
		for j := 0; j < 3; j++ {
			require.InDelta(t, float64(v.Trans[j]), float64(back.Trans[j]), 1e-6)
		}
	}
}

func TestLogExpRoundTripImuBias(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	for i := 0; i < 10; i++ {
		v := randImuBias(r)
		tau := v.Log()
		back := v.Exp(tau).(variables.ImuBias)
		for j := 0; j < 3; j++ {
			require.InDelta(t, float64(v.Gyro[j]), float64(back.Gyro[j]), 1e-9)
			require.InDelta(t, float64(v.Accel[j]), float64(back.Accel[j]), 1e-9)
		}
	}
}

func TestComposeInverseIsIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	so2 := randSO2(r)
	require.InDelta(t, 0, float64(so2.Compose(so2.Inverse()).(variables.SO2).Theta), 1e-8)

	so3 := randSO3(r)
	id := so3.Compose(so3.Inverse()).(variables.SO3)
	requireSO3Close(t, variables.IdentitySO3, id, 1e-8)

	se2 := randSE2(r)
	id2 := se2.Compose(se2.Inverse()).(variables.SE2)
	require.InDelta(t, 0, float64(id2.Rot.Theta), 1e-8)
	require.InDelta(t, 0, float64(id2.Trans[0]), 1e-8)
	require.InDelta(t, 0, float64(id2.Trans[1]), 1e-8)

	se3 := randSE3(r)
	id3 := se3.Compose(se3.Inverse()).(variables.SE3)
	requireSO3Close(t, variables.IdentitySO3, id3.Rot, 1e-8)
	for j := 0; j < 3; j++ {
		require.InDelta(t, 0, float64(id3.Trans[j]), 1e-8)
	}

	vec := randVec(r, 4)
	idv := vec.Compose(vec.Inverse()).(variables.VectorVarN)
	for _, x := range idv.Vals {
		require.InDelta(t, 0, float64(x), 1e-12)
	}

	bias := randImuBias(r)
	idb := bias.Compose(bias.Inverse()).(variables.ImuBias)
	for j := 0; j < 3; j++ {
		require.InDelta(t, 0, float64(idb.Gyro[j]), 1e-12)
		require.InDelta(t, 0, float64(idb.Accel[j]), 1e-12)
	}
}

func TestValuesTypeMismatch(t *testing.T) {
	vs := variables.NewValues()
	key := variables.NewKey('x', 0)
	err := vs.Set(key, variables.NewVectorVarN([]float64{1, 2}))
	require.Error(t, err)

	key2 := variables.NewKey('x', 1)
	require.NoError(t, vs.Set(key2, variables.SE3{Rot: variables.IdentitySO3}))
}

func TestKeyRoundTrip(t *testing.T) {
	k := variables.NewKey('x', 42)
	require.Equal(t, byte('x'), k.Tag())
	require.Equal(t, uint64(42), k.Index())
	require.Equal(t, "x42", k.String())
}
