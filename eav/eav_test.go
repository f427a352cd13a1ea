package eav_test

import (
	"testing"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/internal/clock"
	"github.com/stretchr/testify/require"
)

func addr(t *testing.T, s string) address.Address {
	t.Helper()
	a, err := address.Compute([]byte(s), address.SHA256)
	require.NoError(t, err)
	return a
}

func TestRecord_Less_OrdersByIndexThenTriple(t *testing.T) {
	e := addr(t, "entity")
	v := addr(t, "value")

	low := eav.NewWithIndex(e, eav.WithoutPayload, v, 1)
	high := eav.NewWithIndex(e, eav.WithoutPayload, v, 2)
	require.True(t, low.Less(high))
	require.False(t, high.Less(low))
}

func TestRecord_Less_TieBreaksByEntityThenAttrThenValue(t *testing.T) {
	v := addr(t, "value")
	a := addr(t, "a-entity")
	b := addr(t, "b-entity")

	r1 := eav.NewWithIndex(a, eav.WithoutPayload, v, 5)
	r2 := eav.NewWithIndex(b, eav.WithoutPayload, v, 5)
	require.True(t, r1.Less(r2))
}

func TestRecord_New_UsesMonotonicClock(t *testing.T) {
	clk := clock.New()
	e := addr(t, "e")
	v := addr(t, "v")
	r1 := eav.New(e, eav.WithoutPayload, v, clk)
	r2 := eav.New(e, eav.WithoutPayload, v, clk)
	require.Less(t, r1.Index, r2.Index)
}

func TestDemoAttribute_RoundTrip(t *testing.T) {
	cases := []eav.DemoAttribute{
		eav.WithoutPayload,
		eav.WithPayload("foo"),
		eav.WithPayload(""),
	}
	for _, c := range cases {
		s := c.String()
		parsed, err := eav.ParseDemoAttribute(s)
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}
}

func TestParseDemoAttribute_RejectsGarbage(t *testing.T) {
	_, err := eav.ParseDemoAttribute("nope")
	require.Error(t, err)

	_, err = eav.ParseDemoAttribute("totally-unrecognized-format")
	require.Error(t, err)
}

func TestEvaluate_MatchPhaseFilters(t *testing.T) {
	entity := addr(t, "ent")
	other := addr(t, "other-ent")
	value := addr(t, "val")

	r1 := eav.NewWithIndex(entity, eav.WithPayload("color"), value, 1)
	r2 := eav.NewWithIndex(other, eav.WithPayload("color"), value, 2)
	records := []eav.Record[eav.DemoAttribute]{r1, r2}

	q := eav.Query[eav.DemoAttribute]{Entity: &entity, Index: eav.NoIndexFilter()}
	got := eav.Evaluate(records, q)
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(r1))
}

func TestEvaluate_LatestByAttribute(t *testing.T) {
	entity := addr(t, "ent")
	v1 := addr(t, "v1")
	v2 := addr(t, "v2")

	r1 := eav.NewWithIndex(entity, eav.WithPayload("color"), v1, 1)
	r2 := eav.NewWithIndex(entity, eav.WithPayload("color"), v2, 2)
	records := []eav.Record[eav.DemoAttribute]{r1, r2}

	q := eav.Query[eav.DemoAttribute]{Index: eav.LatestByAttribute()}
	got := eav.Evaluate(records, q)
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(r2))
}

func TestEvaluate_Range(t *testing.T) {
	entity := addr(t, "ent")
	value := addr(t, "val")

	var records []eav.Record[eav.DemoAttribute]
	for i := int64(0); i < 10; i++ {
		records = append(records, eav.NewWithIndex(entity, eav.WithoutPayload, value, i))
	}

	low, high := int64(3), int64(6)
	q := eav.Query[eav.DemoAttribute]{Index: eav.IndexRangeFilter(&low, &high)}
	got := eav.Evaluate(records, q)
	require.Len(t, got, 4)
	for i, r := range got {
		require.Equal(t, low+int64(i), r.Index)
	}
}

func TestEvaluate_EmptyOnNoMatch(t *testing.T) {
	entity := addr(t, "ent")
	value := addr(t, "val")
	missing := addr(t, "missing")

	records := []eav.Record[eav.DemoAttribute]{
		eav.NewWithIndex(entity, eav.WithoutPayload, value, 1),
	}
	q := eav.Query[eav.DemoAttribute]{Entity: &missing}
	got := eav.Evaluate(records, q)
	require.Empty(t, got)
}
