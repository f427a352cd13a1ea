package address_test

import (
	"testing"

	"github.com/holochain/holo-persist/address"
	"github.com/stretchr/testify/require"
)

func TestCompute_Deterministic(t *testing.T) {
	a1, err := address.Compute([]byte("hello"), address.SHA256)
	require.NoError(t, err)
	a2, err := address.Compute([]byte("hello"), address.SHA256)
	require.NoError(t, err)
	require.True(t, a1.Equal(a2))
}

func TestCompute_DifferentContentDifferentAddress(t *testing.T) {
	a1, err := address.Compute([]byte("hello"), address.SHA256)
	require.NoError(t, err)
	a2, err := address.Compute([]byte("world"), address.SHA256)
	require.NoError(t, err)
	require.False(t, a1.Equal(a2))
}

func TestCompute_AlgorithmsDiffer(t *testing.T) {
	a1, err := address.Compute([]byte("hello"), address.SHA256)
	require.NoError(t, err)
	a2, err := address.Compute([]byte("hello"), address.Blake2b256)
	require.NoError(t, err)
	require.False(t, a1.Equal(a2))
}

func TestBytesRoundTrip(t *testing.T) {
	a1, err := address.Compute([]byte("round trip me"), address.SHA256)
	require.NoError(t, err)

	a2, err := address.FromBytes(a1.Bytes())
	require.NoError(t, err)
	require.True(t, a1.Equal(a2))
	require.Equal(t, 0, a1.Compare(a2))
}

func TestFromBytes_RejectsGarbage(t *testing.T) {
	_, err := address.FromBytes([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestCompare_TotalOrder(t *testing.T) {
	a, err := address.Compute([]byte("a"), address.SHA256)
	require.NoError(t, err)
	b, err := address.Compute([]byte("b"), address.SHA256)
	require.NoError(t, err)

	require.Equal(t, -a.Compare(b), b.Compare(a))
}

func TestString_NonEmpty(t *testing.T) {
	a, err := address.Compute([]byte("stringify"), address.SHA256)
	require.NoError(t, err)
	require.NotEmpty(t, a.String())

	var zero address.Address
	require.Empty(t, zero.String())
	require.True(t, zero.IsZero())
}

func TestFromCIDString_RoundTrips(t *testing.T) {
	a1, err := address.Compute([]byte("cid round trip"), address.SHA256)
	require.NoError(t, err)

	a2, err := address.FromCIDString(a1.String())
	require.NoError(t, err)
	require.True(t, a1.Equal(a2))
}

func TestFromHex_RoundTrips(t *testing.T) {
	a1, err := address.Compute([]byte("hex round trip"), address.SHA256)
	require.NoError(t, err)

	a2, err := address.FromHex(a1.Hex())
	require.NoError(t, err)
	require.True(t, a1.Equal(a2))
}
