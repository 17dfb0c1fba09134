package ctsim

import (
	"path/filepath"
	"testing"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallApplicationsFromManifest(t *testing.T) {
	tr, g := readTestTopology(t)

	apps, err := tr.InstallApplications()
	require.NoError(t, err)
	assert.Len(t, apps, 7)

	assert.Len(t, g.NodeByName("C1").Apps, 1)
	assert.Len(t, g.NodeByName("C2").Apps, 1)
	assert.Len(t, g.NodeByName("E1").Apps, 1)
	assert.Len(t, g.NodeByName("A1").Apps, 1)
	for idx := 0; idx < 3; idx++ {
		node := g.NodeByName(ClusterMemberName("H1", idx))
		require.Len(t, node.Apps, 1)
		assert.Equal(t, "heartbeat", node.Apps[0].Name)
		assert.Equal(t, PeriodicApp, node.Apps[0].Kind)
		assert.Same(t, node, node.Apps[0].Node)
	}
	assert.Empty(t, g.NodeByName("S1[0]").Apps)
	assert.Empty(t, tr.Diagnostics()[1:])
}

func TestInstallWithoutManifest(t *testing.T) {
	tr := NewTopologyReader(quietLogger(), nil)
	tr.SetFileName(filepath.Join("testdata", "topology.yaml"))
	_, err := tr.Read()
	require.NoError(t, err)

	apps, err := tr.InstallApplications()
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestInstallMissingManifest(t *testing.T) {
	tr, _ := readTestTopology(t)
	tr.SetAppFile(filepath.Join(t.TempDir(), "absent.yaml"))

	apps, err := tr.InstallApplications()
	assert.Nil(t, apps)
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
}

func TestInstallSkipsBadEntries(t *testing.T) {
	tr, g := readTestTopology(t)
	before := len(tr.Diagnostics())

	manifest := &AppManifest{Applications: []AppDesc{
		{Name: "ok", InstallOn: []string{"C1", "nowhere", "C1"}, Start: 1},
		{Name: "", InstallOn: []string{"C1"}},
		{Name: "tickless", Kind: "periodic", InstallOn: []string{"C1"}},
		{Name: "backwards", InstallOn: []string{"C1"}, Start: 5, Stop: 2},
		{Name: "odd", Kind: "batch", InstallOn: []string{"C1"}},
		{Name: "homeless"},
	}}
	apps := tr.installManifest(manifest)

	require.Len(t, apps, 1)
	assert.Equal(t, "ok", apps[0].Name)
	assert.Len(t, g.NodeByName("C1").Apps, 1)

	diags := tr.Diagnostics()[before:]
	assert.Equal(t, 1, countDiags[*ReferenceError](diags))
	assert.Equal(t, 5, countDiags[*SchemaError](diags))
}

func TestReadAppManifestJSON(t *testing.T) {
	dict := []byte(`{"applications": [{"name": "pinger", "kind": "periodic", "install_on": ["C1"], "start": 1, "interval": 0.5}]}`)
	manifest, err := ReadAppManifest("inline.json", false, dict)
	require.NoError(t, err)
	require.Len(t, manifest.Applications, 1)
	ad := manifest.Applications[0]
	assert.Equal(t, "pinger", ad.Name)
	assert.Equal(t, []string{"C1"}, ad.InstallOn)
	assert.NoError(t, ad.check())
}

// appFixture is one powered node with an event manager to run its applications on
func appFixture(t *testing.T) (*evtm.EventManager, *SimNode, *appEnv) {
	t.Helper()
	g := createGraph()
	node := g.addNode("C1", "C1", RoleCoreCloud, LayerCore)
	tm := CreateTraceManager("apps", true)
	tm.AddName(node.ID, node.Name, node.Role.String())
	env := &appEnv{tm: tm, metrics: NewMetrics(), logger: quietLogger()}
	return evtm.New(), node, env
}

func TestServiceAppStartsAndStops(t *testing.T) {
	evtMgr, node, env := appFixture(t)
	RoleCoreCloud.PowerOn(node, vrtime.SecondsToTime(0.0), env.tm)
	app := createApp(&AppDesc{Name: "svc", InstallOn: []string{"C1"}, Start: 0.5, Stop: 3.0}, node)
	node.Apps = append(node.Apps, app)

	assert.Equal(t, 1, node.StartAllApps(evtMgr, env))
	evtMgr.Run(5.0)

	assert.True(t, app.Started)
	assert.True(t, app.Stopped)
	assert.InDelta(t, 0.5, app.StartedAt, 1e-9)
	assert.Zero(t, app.Ticks)

	ops := make([]string, 0)
	for _, trace := range env.tm.Ordered() {
		ops = append(ops, trace.TraceType)
	}
	assert.Equal(t, []string{"power-on", "app-start", "app-stop"}, ops)
}

func TestPeriodicAppTicksUntilStop(t *testing.T) {
	evtMgr, node, env := appFixture(t)
	RoleCoreCloud.PowerOn(node, vrtime.SecondsToTime(0.0), env.tm)
	app := createApp(&AppDesc{Name: "hb", Kind: "periodic", InstallOn: []string{"C1"},
		Start: 1.0, Stop: 5.5, Interval: 1.0, Jitter: 0.25}, node)
	node.Apps = append(node.Apps, app)

	node.StartAllApps(evtMgr, env)
	evtMgr.Run(10.0)

	// start in [1, 1.25), ticks one second apart, the last before 5.5
	assert.GreaterOrEqual(t, app.StartedAt, 1.0)
	assert.Less(t, app.StartedAt, 1.25)
	assert.Equal(t, 4, app.Ticks)
	assert.True(t, app.Stopped)
}

func TestAppsWaitForPower(t *testing.T) {
	evtMgr, node, env := appFixture(t)
	app := createApp(&AppDesc{Name: "svc", InstallOn: []string{"C1"}}, node)
	node.Apps = append(node.Apps, app)

	assert.Zero(t, node.StartAllApps(evtMgr, env))
	evtMgr.Run(1.0)
	assert.False(t, app.Started)
	assert.Zero(t, env.tm.Len())
}
