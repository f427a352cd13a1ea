// Package address defines the content-addressing primitive used throughout
// the store: a comparable, totally ordered identifier derived from a blob's
// bytes.
package address

import (
	"bytes"
	"encoding/hex"

	"github.com/holochain/holo-persist/kverr"
	"github.com/ipfs/go-cid"
	"github.com/minio/sha256-simd"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
)

// Algorithm selects the digest function used by Compute.
type Algorithm int

const (
	// SHA256 is the default algorithm, computed with the SIMD-accelerated
	// minio/sha256-simd implementation.
	SHA256 Algorithm = iota
	// Blake2b256 is an alternate, faster-on-some-hardware digest.
	Blake2b256
)

// Address is an opaque, stable, totally ordered identifier for a blob of
// content. The zero value is not a valid address.
type Address struct {
	mh multihash.Multihash
}

// Compute derives the Address of content using the given algorithm.
func Compute(content []byte, algo Algorithm) (Address, error) {
	var sum []byte
	var code uint64

	switch algo {
	case SHA256:
		h := sha256.Sum256(content)
		sum = h[:]
		code = multihash.SHA2_256
	case Blake2b256:
		h := blake2b.Sum256(content)
		sum = h[:]
		code = multihash.BLAKE2B_MIN + 31
	default:
		return Address{}, kverr.New(kverr.InvalidArgument, "unknown address algorithm")
	}

	mh, err := multihash.Encode(sum, code)
	if err != nil {
		return Address{}, kverr.Wrap(kverr.Internal, err, "encoding multihash")
	}
	return Address{mh: mh}, nil
}

// FromCIDString parses s (as produced by Address.String) back into an
// Address, unwrapping the CID to recover its underlying multihash.
func FromCIDString(s string) (Address, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return Address{}, kverr.Wrap(kverr.InvalidArgument, err, "decoding address CID string")
	}
	return FromBytes(c.Hash())
}

// FromHex parses s (as produced by Address.Hex) back into an Address.
func FromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, kverr.Wrap(kverr.InvalidArgument, err, "decoding address hex string")
	}
	return FromBytes(b)
}

// FromBytes reinterprets a raw multihash-encoded byte slice as an Address,
// validating that it decodes cleanly. Used when reading addresses back out
// of a backend.
func FromBytes(b []byte) (Address, error) {
	mh := make(multihash.Multihash, len(b))
	copy(mh, b)
	if _, err := multihash.Decode(mh); err != nil {
		return Address{}, kverr.Wrap(kverr.Corruption, err, "decoding address bytes")
	}
	return Address{mh: mh}, nil
}

// Bytes returns the raw multihash-encoded byte representation, suitable as a
// backend key. The returned slice must not be mutated.
func (a Address) Bytes() []byte { return []byte(a.mh) }

// IsZero reports whether a is the zero value.
func (a Address) IsZero() bool { return len(a.mh) == 0 }

// Equal reports byte-exact equality.
func (a Address) Equal(other Address) bool { return bytes.Equal(a.mh, other.mh) }

// Compare gives the total byte-lexicographic order required by the record
// and query total-ordering rules.
func (a Address) Compare(other Address) int { return bytes.Compare(a.mh, other.mh) }

// String renders the address as a CID string (base32, CIDv1, raw codec),
// giving a stable, URL-safe textual form for logs and the CLI.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	c := cid.NewCidV1(cid.Raw, a.mh)
	return c.String()
}

// Hex renders the raw multihash bytes as hex, used by backends that prefer a
// simple fixed-width key encoding in logs.
func (a Address) Hex() string { return hex.EncodeToString(a.mh) }
