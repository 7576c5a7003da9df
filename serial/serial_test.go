package serial_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/robust"
	"github.com/go-factorgo/factorgo/scalar"
	"github.com/go-factorgo/factorgo/serial"
	"github.com/go-factorgo/factorgo/variables"
)

func TestVariableRoundTrip(t *testing.T) {
	v := variables.SE3{Rot: variables.IdentitySO3, Trans: [3]scalar.Real{1, 2, 3}}
	raw, err := serial.MarshalVariable(v)
	require.NoError(t, err)

	back, err := serial.UnmarshalVariable(raw)
	require.NoError(t, err)
	require.Equal(t, v, back)
}

func TestValuesRoundTrip(t *testing.T) {
	vs := variables.NewValues()
	require.NoError(t, vs.Set(variables.NewKey('a', 0), variables.NewSO2(0.4)))
	require.NoError(t, vs.Set(variables.NewKey('v', 0), variables.NewVectorVarN([]float64{1, 2, 3})))

	raw, err := serial.MarshalValues(vs)
	require.NoError(t, err)

	back, err := serial.UnmarshalValues(raw)
	require.NoError(t, err)
	require.Equal(t, vs.Len(), back.Len())

	got, err := back.Get(variables.NewKey('a', 0))
	require.NoError(t, err)
	require.InDelta(t, 0.4, got.(variables.SO2).Theta, 1e-12)
}

func TestFactorRoundTrip(t *testing.T) {
	n := noise.FromSigma(0.2, 1)
	f, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0.1)}, []variables.Key{variables.NewKey('a', 0)}, n, robust.Huber{Delta: 1.5})
	require.NoError(t, err)

	raw, err := serial.MarshalFactor(f)
	require.NoError(t, err)

	back, err := serial.UnmarshalFactor(raw)
	require.NoError(t, err)
	require.Equal(t, f.Keys, back.Keys)
	require.IsType(t, robust.Huber{}, back.Robust)
}

func TestGraphRoundTrip(t *testing.T) {
	g := graph.New()
	n := noise.FromSigma(0.1, 1)
	f1, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0)}, []variables.Key{variables.NewKey('a', 0)}, n, nil)
	require.NoError(t, err)
	g.Add(f1)
	f2, err := factor.New(residual.Between{Delta: variables.NewSO2(0.5)}, []variables.Key{variables.NewKey('a', 0), variables.NewKey('a', 1)}, n, nil)
	require.NoError(t, err)
	g.Add(f2)

	raw, err := serial.MarshalGraph(g)
	require.NoError(t, err)

	back, err := serial.UnmarshalGraph(raw)
	require.NoError(t, err)
	require.Equal(t, g.Len(), back.Len())
}
