package persist_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/internal/clock"
	"github.com/holochain/holo-persist/persist"
	"github.com/holochain/holo-persist/storage/memstore"
)

func TestNonTransactionalCursor_WritesAreImmediatelyDurable(t *testing.T) {
	cas := memstore.NewCas(1<<20, 2.0)
	eavStore := memstore.NewEav[eav.DemoAttribute](1<<20, 2.0)
	clk := clock.New()

	c := persist.NewNonTransactionalCursor[eav.DemoAttribute](cas, eavStore)
	require.NoError(t, c.Add([]byte("direct")))

	got, ok, err := c.Fetch(addr(t, "direct"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("direct"), got)

	e := addr(t, "entity")
	v := addr(t, "value")
	_, err = c.AddEAVI(eav.New(e, eav.WithPayload("rel"), v, clk))
	require.NoError(t, err)

	// Commit and Close are both no-ops: there is no staging to drain or
	// discard, and the cursor remains fully usable afterward.
	require.NoError(t, c.Commit())
	require.NoError(t, c.Close())

	results, err := c.FetchEAVI(eav.Query[eav.DemoAttribute]{Entity: ptr(e)})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
