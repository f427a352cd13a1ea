package boltstore_test

import (
	"path/filepath"
	"testing"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/storage/boltstore"
	"github.com/stretchr/testify/require"
)

func openEnv(t *testing.T, initial uint64) *boltstore.Env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "primary.db")
	env, err := boltstore.OpenEnv(path, initial, 2.0, boltstore.FlagNone)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, env.Close()) })
	return env
}

func TestCas_AddFetchRoundTrip(t *testing.T) {
	env := openEnv(t, 1<<20)
	c := boltstore.NewCas(env)

	content := []byte("hello bolt")
	require.NoError(t, c.Add(content))

	addr, err := address.Compute(content, address.SHA256)
	require.NoError(t, err)

	got, ok, err := c.Fetch(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, content, got)
}

func TestCas_OversizedBlobGrowsCapacityAndSucceeds(t *testing.T) {
	env := openEnv(t, 1<<20) // 1 MiB initial
	c := boltstore.NewCas(env)

	big := make([]byte, 10<<20) // 10 MiB, matches the reference scenario
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, c.Add(big))

	addr, err := address.Compute(big, address.SHA256)
	require.NoError(t, err)
	got, ok, err := c.Fetch(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big, got)

	used, cap := env.Info()
	require.Greater(t, cap, uint64(1<<20))
	require.GreaterOrEqual(t, cap, used)
}

func TestEav_AddFetchAndReinsertionPriorRecord(t *testing.T) {
	env := openEnv(t, 1<<20)
	e := boltstore.NewEav[eav.DemoAttribute](env, eav.ParseDemoAttribute)

	entity, _ := address.Compute([]byte("ent"), address.SHA256)
	value, _ := address.Compute([]byte("val"), address.SHA256)

	r1 := eav.NewWithIndex(entity, eav.WithPayload("color"), value, 1)
	prior, err := e.AddEAVI(r1)
	require.NoError(t, err)
	require.Nil(t, prior)

	r2 := eav.NewWithIndex(entity, eav.WithPayload("color"), value, 2)
	prior, err = e.AddEAVI(r2)
	require.NoError(t, err)
	require.NotNil(t, prior)
	require.True(t, prior.Equal(r1))

	all, err := e.FetchEAVI(eav.Query[eav.DemoAttribute]{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEav_ManyRecordsExceedingMapSizeSucceed(t *testing.T) {
	env := openEnv(t, 1<<10) // tiny initial capacity
	e := boltstore.NewEav[eav.DemoAttribute](env, eav.ParseDemoAttribute)

	entity, _ := address.Compute([]byte("ent"), address.SHA256)
	value, _ := address.Compute([]byte("val"), address.SHA256)

	for i := int64(0); i < 200; i++ {
		_, err := e.AddEAVI(eav.NewWithIndex(entity, eav.WithPayload("tag"), value, i))
		require.NoError(t, err)
	}

	all, err := e.FetchEAVI(eav.Query[eav.DemoAttribute]{})
	require.NoError(t, err)
	require.Len(t, all, 200)
}

func TestEav_RangeQuery(t *testing.T) {
	env := openEnv(t, 1<<20)
	e := boltstore.NewEav[eav.DemoAttribute](env, eav.ParseDemoAttribute)

	entity, _ := address.Compute([]byte("ent"), address.SHA256)
	value, _ := address.Compute([]byte("val"), address.SHA256)

	for i := int64(0); i < 10; i++ {
		_, err := e.AddEAVI(eav.NewWithIndex(entity, eav.WithoutPayload, value, i))
		require.NoError(t, err)
	}

	low, high := int64(2), int64(5)
	got, err := e.FetchEAVI(eav.Query[eav.DemoAttribute]{Index: eav.IndexRangeFilter(&low, &high)})
	require.NoError(t, err)
	require.Len(t, got, 4)
}
