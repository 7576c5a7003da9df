package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/residual"
	"github.com/go-factorgo/factorgo/variables"
)

func TestNewGraphIsEmpty(t *testing.T) {
	g := graph.New()
	require.Equal(t, 0, g.Len())
	require.Empty(t, g.Factors())
}

func TestAddAppendsInInsertionOrder(t *testing.T) {
	g := graph.New()
	n := noise.FromSigma(1, 1)

	f0, err := factor.New(residual.Prior{Anchor: variables.NewSO2(0)}, []variables.Key{variables.NewKey('a', 0)}, n, nil)
	require.NoError(t, err)
	f1, err := factor.New(residual.Prior{Anchor: variables.NewSO2(1)}, []variables.Key{variables.NewKey('a', 1)}, n, nil)
	require.NoError(t, err)

	g.Add(f0)
	g.Add(f1)

	require.Equal(t, 2, g.Len())
	got := g.Factors()
	require.Same(t, f0, got[0])
	require.Same(t, f1, got[1])
}
