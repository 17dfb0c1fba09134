package ctsim

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestTopology(t *testing.T) (*TopologyReader, *Graph) {
	t.Helper()
	tr := NewTopologyReader(quietLogger(), nil)
	tr.SetFileName(filepath.Join("testdata", "topology.yaml"))
	tr.SetAppFile(filepath.Join("testdata", "applications.yaml"))
	g, err := tr.Read()
	require.NoError(t, err)
	return tr, g
}

func TestRoutesFollowLeastDelay(t *testing.T) {
	_, g := readTestTopology(t)
	rt := CreateRoutingTables(g)
	entries := rt.Populate()

	// C1, C2 and E1 form a triangle; every other node has no link
	assert.Equal(t, 6, entries)

	c1 := g.NodeByName("C1")
	c2 := g.NodeByName("C2")
	assert.Equal(t, map[string]string{"C2": "C2", "E1": "E1"}, c1.Routes)
	assert.Equal(t, map[string]string{"C1": "C1", "E1": "C1"}, c2.Routes)
	assert.Empty(t, g.NodeByName("A1").Routes)

	path, delay := rt.Route("C2", "E1")
	assert.Equal(t, []string{"C2", "C1", "E1"}, path)
	assert.InDelta(t, 0.007, delay, 1e-12)
}

func TestRouteEdgeCases(t *testing.T) {
	_, g := readTestTopology(t)
	rt := CreateRoutingTables(g)

	path, delay := rt.Route("C1", "C1")
	assert.Equal(t, []string{"C1"}, path)
	assert.Zero(t, delay)

	path, delay = rt.Route("C1", "S1[0]")
	assert.Nil(t, path)
	assert.True(t, math.IsInf(delay, 1))

	path, _ = rt.Route("C1", "nowhere")
	assert.Nil(t, path)
}

func TestRouteUsesFirstDeclaredDelay(t *testing.T) {
	td := CreateTopoDesc()
	td.AddNode(LayerCore, CreateHostServer("C1").ConnectTo("C2", "10Gbps", "2ms"))
	td.AddNode(LayerCore, CreateHostServer("C2").ConnectTo("C1", "1Gbps", "9ms"))
	_, g := readDesc(t, td)

	rt := CreateRoutingTables(g)
	assert.Equal(t, 2, rt.Populate())
	for _, pair := range [][2]string{{"C1", "C2"}, {"C2", "C1"}} {
		path, delay := rt.Route(pair[0], pair[1])
		assert.Equal(t, []string{pair[0], pair[1]}, path)
		assert.InDelta(t, 0.002, delay, 1e-12)
	}
}
