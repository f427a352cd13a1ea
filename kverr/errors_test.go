package kverr_test

import (
	"testing"

	"github.com/holochain/holo-persist/kverr"
	"github.com/stretchr/testify/require"
)

func TestKindOf_Nil(t *testing.T) {
	require.Equal(t, kverr.Unknown, kverr.KindOf(nil))
}

func TestKindOf_PlainError(t *testing.T) {
	require.Equal(t, kverr.Unknown, kverr.KindOf(errDummy("boom")))
}

func TestWrap_PreservesKindAndCause(t *testing.T) {
	cause := errDummy("disk exploded")
	err := kverr.Wrap(kverr.BackendIO, cause, "writing page")

	require.Equal(t, kverr.BackendIO, kverr.KindOf(err))
	require.True(t, kverr.Is(err, kverr.BackendIO))
	require.False(t, kverr.Is(err, kverr.Corruption))
	require.Contains(t, err.Error(), "disk exploded")
	require.Contains(t, err.Error(), "writing page")
}

func TestNew_NoCause(t *testing.T) {
	err := kverr.New(kverr.InvalidArgument, "bad attribute string")
	require.Equal(t, kverr.InvalidArgument, kverr.KindOf(err))
	require.Nil(t, err.Unwrap())
}

func TestWrapf_FormatsMessage(t *testing.T) {
	err := kverr.Wrapf(kverr.Corruption, errDummy("tag mismatch"), "decoding record %d", 7)
	require.Equal(t, kverr.Corruption, kverr.KindOf(err))
	require.Contains(t, err.Error(), "decoding record 7")
}

type errDummy string

func (e errDummy) Error() string { return string(e) }
