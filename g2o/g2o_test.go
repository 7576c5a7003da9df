package g2o_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-factorgo/factorgo/g2o"
	"github.com/go-factorgo/factorgo/variables"
)

const sampleSE2 = `# a tiny three-pose loop
VERTEX_SE2 0 0.0 0.0 0.0
VERTEX_SE2 1 1.0 0.0 0.0
VERTEX_SE2 2 1.0 1.0 1.57
EDGE_SE2 0 1 1.0 0.0 0.0 10.0 0.0 0.0 10.0 0.0 10.0
EDGE_SE2 1 2 0.0 1.0 1.57 10.0 0.0 0.0 10.0 0.0 10.0
`

func TestLoadSE2ParsesVerticesAndEdges(t *testing.T) {
	g, v, err := g2o.Load(strings.NewReader(sampleSE2))
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	require.Equal(t, 3, v.Len())

	got, err := v.Get(variables.NewKey('p', 2))
	require.NoError(t, err)
	pose := got.(variables.SE2)
	require.InDelta(t, 1.0, pose.Trans[0], 1e-9)
	require.InDelta(t, 1.0, pose.Trans[1], 1e-9)
}

func TestSaveRoundTripsVerticesAndEdges(t *testing.T) {
	g, v, err := g2o.Load(strings.NewReader(sampleSE2))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, g2o.Save(&buf, g, v))

	g2, v2, err := g2o.Load(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Equal(t, g.Len(), g2.Len())
	require.Equal(t, v.Len(), v2.Len())
}

const badVertex = `VERTEX_SE2 0 0.0 0.0
`

func TestLoadMalformedVertexReturnsError(t *testing.T) {
	_, _, err := g2o.Load(strings.NewReader(badVertex))
	require.Error(t, err)
}
