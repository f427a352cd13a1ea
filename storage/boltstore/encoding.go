package boltstore

import (
	"encoding/binary"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/eav"
	"github.com/holochain/holo-persist/kverr"
)

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLenPrefixed(buf, b []byte) []byte {
	buf = appendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readLenPrefixed(b []byte) (value, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, kverr.New(kverr.Corruption, "truncated length-prefixed field")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, kverr.New(kverr.Corruption, "truncated length-prefixed field body")
	}
	return b[:n], b[n:], nil
}

// primaryKey encodes a record's bbolt key in the primary ("eav") bucket:
// the 8-byte big-endian index first, so bbolt's natural byte-sorted
// iteration order matches ascending index order, followed by
// length-prefixed entity/attribute/value bytes to keep the key globally
// unique even for records sharing an index.
func primaryKey[A eav.Attribute](r eav.Record[A]) []byte {
	buf := appendUint64(nil, uint64(r.Index))
	buf = appendLenPrefixed(buf, r.Entity.Bytes())
	buf = appendLenPrefixed(buf, []byte(r.Attribute.String()))
	buf = appendLenPrefixed(buf, r.Value.Bytes())
	return buf
}

// tripleKey encodes the (entity, attribute, value) identity used by the
// secondary "eav_triple" bucket to detect re-insertion of the same fact in
// O(log n), independent of index.
func tripleKey[A eav.Attribute](entity address.Address, attribute A, value address.Address) []byte {
	buf := appendLenPrefixed(nil, entity.Bytes())
	buf = appendLenPrefixed(buf, []byte(attribute.String()))
	buf = appendLenPrefixed(buf, value.Bytes())
	return buf
}

// encodeRecord encodes a record's value for the primary bucket. The key
// already carries the index, but the value is self-contained so decode
// never needs to re-derive fields from the key.
func encodeRecord[A eav.Attribute](r eav.Record[A]) []byte {
	buf := appendLenPrefixed(nil, r.Entity.Bytes())
	buf = appendLenPrefixed(buf, []byte(r.Attribute.String()))
	buf = appendLenPrefixed(buf, r.Value.Bytes())
	buf = appendUint64(buf, uint64(r.Index))
	return buf
}

func decodeRecord[A eav.Attribute](raw []byte, parse eav.ParseFunc[A]) (eav.Record[A], error) {
	var zero eav.Record[A]

	eb, rest, err := readLenPrefixed(raw)
	if err != nil {
		return zero, err
	}
	ab, rest, err := readLenPrefixed(rest)
	if err != nil {
		return zero, err
	}
	vb, rest, err := readLenPrefixed(rest)
	if err != nil {
		return zero, err
	}
	if len(rest) < 8 {
		return zero, kverr.New(kverr.Corruption, "truncated eav record index")
	}
	idx := int64(binary.BigEndian.Uint64(rest[:8]))

	entity, err := address.FromBytes(eb)
	if err != nil {
		return zero, err
	}
	value, err := address.FromBytes(vb)
	if err != nil {
		return zero, err
	}
	attr, err := parse(string(ab))
	if err != nil {
		return zero, kverr.Wrap(kverr.Corruption, err, "parsing stored attribute")
	}

	return eav.NewWithIndex(entity, attr, value, idx), nil
}
