package persist_test

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/metrics"
	"github.com/holochain/holo-persist/persist"
)

func TestManager_CasHandleBypassesStagingAndCommit(t *testing.T) {
	m := newManager(t, 1<<20)

	require.NoError(t, m.Cas().Add([]byte("direct")))
	got, ok, err := m.Cas().Fetch(addr(t, "direct"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("direct"), got)

	// Visible from a brand-new cursor with no commit required, since Cas()
	// writes straight to the primary.
	k, err := m.CreateCursor()
	require.NoError(t, err)
	defer k.Close()
	got, ok, err = k.Fetch(addr(t, "direct"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("direct"), got)
}

func TestManager_CasHandleCachesRepeatedFetch(t *testing.T) {
	m := newManager(t, 1<<20)
	require.NoError(t, m.Cas().Add([]byte("cached")))

	// Two fetches: the first populates the LRU cache, the second is served
	// from it. Either way the content returned must be identical.
	got1, ok, err := m.Cas().Fetch(addr(t, "cached"))
	require.NoError(t, err)
	require.True(t, ok)
	got2, ok, err := m.Cas().Fetch(addr(t, "cached"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, got1, got2)
}

func TestManager_EavHandleBypassesStagingAndCommit(t *testing.T) {
	m := newManager(t, 1<<20)

	e := addr(t, "entity")
	v := addr(t, "value")
	_, err := m.Eav().AddEAVI(eav.New(e, eav.WithPayload("rel"), v, m.Clock()))
	require.NoError(t, err)

	got, err := m.Eav().FetchEAVI(eav.Query[eav.DemoAttribute]{Entity: ptr(e)})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

// tombstoneAttribute is a second, independent attribute universe,
// demonstrating that Manager[A] is meant to be instantiated more than once
// per process with different A, per the original test suite's
// tombstone_manager alongside its application-attribute manager.
type tombstoneAttribute struct {
	reason string
}

func (a tombstoneAttribute) String() string { return "tombstone:" + a.reason }

func parseTombstoneAttribute(s string) (tombstoneAttribute, error) {
	return tombstoneAttribute{reason: s[len("tombstone:"):]}, nil
}

func TestManager_IndependentAttributeUniverses(t *testing.T) {
	appManager, err := persist.NewManager(persist.Config[eav.DemoAttribute]{
		PrimaryPath:           filepath.Join(t.TempDir(), "app.db"),
		PrimaryInitialMapSize: 1 << 20,
		StagingInitialMapSize: 1 << 20,
		Parse:                 eav.ParseDemoAttribute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, appManager.Close()) })

	tombstoneManager, err := persist.NewManager(persist.Config[tombstoneAttribute]{
		PrimaryPath:           filepath.Join(t.TempDir(), "tombstone.db"),
		PrimaryInitialMapSize: 1 << 20,
		StagingInitialMapSize: 1 << 20,
		Parse:                 parseTombstoneAttribute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tombstoneManager.Close()) })

	e := addr(t, "entity")
	v := addr(t, "value")

	appCursor, err := appManager.CreateCursor()
	require.NoError(t, err)
	_, err = appCursor.AddEAVIValue(e, eav.WithPayload("rel"), v)
	require.NoError(t, err)
	require.NoError(t, appCursor.Commit())

	tombstoneCursor, err := tombstoneManager.CreateCursor()
	require.NoError(t, err)
	_, err = tombstoneCursor.AddEAVIValue(e, tombstoneAttribute{reason: "deleted"}, v)
	require.NoError(t, err)
	require.NoError(t, tombstoneCursor.Commit())

	appResult, err := appManager.Eav().FetchEAVI(eav.Query[eav.DemoAttribute]{Entity: ptr(e)})
	require.NoError(t, err)
	require.Len(t, appResult, 1)

	tombstoneResult, err := tombstoneManager.Eav().FetchEAVI(eav.Query[tombstoneAttribute]{Entity: ptr(e)})
	require.NoError(t, err)
	require.Len(t, tombstoneResult, 1)
	require.Equal(t, "deleted", tombstoneResult[0].Attribute.reason)
}

func TestManager_RejectsMissingParse(t *testing.T) {
	_, err := persist.NewManager(persist.Config[eav.DemoAttribute]{
		PrimaryPath:           filepath.Join(t.TempDir(), "primary.db"),
		PrimaryInitialMapSize: 1 << 20,
	})
	require.Error(t, err)
}

func TestManager_RejectsOnDiskStagingWithoutPrefix(t *testing.T) {
	_, err := persist.NewManager(persist.Config[eav.DemoAttribute]{
		PrimaryPath:           filepath.Join(t.TempDir(), "primary.db"),
		PrimaryInitialMapSize: 1 << 20,
		StagingMode:           persist.StagingOnDisk,
		Parse:                 eav.ParseDemoAttribute,
	})
	require.Error(t, err)
}

func TestManager_MetricsRecordCommits(t *testing.T) {
	m, err := persist.NewManager(persist.Config[eav.DemoAttribute]{
		PrimaryPath:           filepath.Join(t.TempDir(), "primary.db"),
		PrimaryInitialMapSize: 1 << 20,
		StagingInitialMapSize: 1 << 20,
		Parse:                 eav.ParseDemoAttribute,
		Metrics:               metrics.NewRecorder(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })

	k, err := m.CreateCursor()
	require.NoError(t, err)
	require.NoError(t, k.Add([]byte("metered")))
	require.NoError(t, k.Commit())

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var commits float64
	for _, f := range families {
		if f.GetName() == "persist_commits_total" {
			commits = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.GreaterOrEqual(t, commits, 1.0)
}
