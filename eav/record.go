// Package eav implements the entity-attribute-value-index record model: the
// record shape, its total order, and the query/filter evaluation engine.
package eav

import (
	"fmt"
	"strings"

	"github.com/holochain/holo-persist/address"
	"github.com/holochain/holo-persist/internal/clock"
	"github.com/holochain/holo-persist/kverr"
)

// Attribute is the open type parameter every EAV record is generic over. It
// must support equality (for exact-match filters and map keys), a stable
// string form (for ordering tie-breaks and storage encoding), and printing.
// The reverse direction, string -> A, cannot be expressed as a static
// constraint in Go generics, so callers supply a ParseFunc wherever decoding
// is needed.
type Attribute interface {
	comparable
	fmt.Stringer
}

// ParseFunc reconstructs an Attribute value from its String() form. Backends
// accept one at construction time since Go generics have no TryFrom-style
// constraint.
type ParseFunc[A Attribute] func(string) (A, error)

// Record is one entity-attribute-value-index fact.
type Record[A Attribute] struct {
	Entity    address.Address
	Attribute A
	Value     address.Address
	Index     int64
}

// New constructs a Record with a fresh, monotonically increasing index drawn
// from clk.
func New[A Attribute](entity address.Address, attribute A, value address.Address, clk *clock.Clock) Record[A] {
	return Record[A]{Entity: entity, Attribute: attribute, Value: value, Index: clk.Next()}
}

// NewWithIndex constructs a Record with an explicit index, used by tests and
// by callers replaying a known ordering.
func NewWithIndex[A Attribute](entity address.Address, attribute A, value address.Address, index int64) Record[A] {
	return Record[A]{Entity: entity, Attribute: attribute, Value: value, Index: index}
}

// triple returns the (entity, attribute-string, value) identity used to
// detect re-insertion of the same fact, independent of index.
func (r Record[A]) triple() string {
	var b strings.Builder
	b.Write(r.Entity.Bytes())
	b.WriteByte(0)
	b.WriteString(r.Attribute.String())
	b.WriteByte(0)
	b.Write(r.Value.Bytes())
	return b.String()
}

// TripleKey exposes the triple identity for backends that need a stable key
// to detect re-insertion of the same (entity, attribute, value) fact.
func (r Record[A]) TripleKey() string { return r.triple() }

// Less implements the total order required across the whole store: primarily
// by Index, with ties broken lexicographically by (entity, attribute string,
// value). This is deliberately stricter than a naive index-only comparator:
// two records sharing an explicitly-supplied index must still resolve to a
// single deterministic order.
func (r Record[A]) Less(other Record[A]) bool {
	if r.Index != other.Index {
		return r.Index < other.Index
	}
	if c := r.Entity.Compare(other.Entity); c != 0 {
		return c < 0
	}
	if rs, os := r.Attribute.String(), other.Attribute.String(); rs != os {
		return rs < os
	}
	return r.Value.Compare(other.Value) < 0
}

// Equal reports whether r and other are the same record (identical entity,
// attribute, value, and index).
func (r Record[A]) Equal(other Record[A]) bool {
	return r.Index == other.Index &&
		r.Entity.Equal(other.Entity) &&
		r.Attribute == other.Attribute &&
		r.Value.Equal(other.Value)
}

// DemoAttribute is the repository's built-in demonstration attribute type,
// carried forward from the reference implementation's own example attribute:
// either a bare marker or a marker carrying a small string payload.
type DemoAttribute struct {
	hasPayload bool
	payload    string
}

// WithoutPayload is the bare DemoAttribute marker.
var WithoutPayload = DemoAttribute{}

// WithPayload constructs a DemoAttribute carrying payload.
func WithPayload(payload string) DemoAttribute {
	return DemoAttribute{hasPayload: true, payload: payload}
}

// Payload returns the carried payload and whether one is present.
func (a DemoAttribute) Payload() (string, bool) { return a.payload, a.hasPayload }

func (a DemoAttribute) String() string {
	if !a.hasPayload {
		return "without-payload"
	}
	return "with-" + a.payload
}

// ParseDemoAttribute reconstructs a DemoAttribute from its String() form.
func ParseDemoAttribute(s string) (DemoAttribute, error) {
	if s == "without-payload" {
		return WithoutPayload, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) < 2 || parts[0] != "with" {
		return DemoAttribute{}, kverr.New(kverr.InvalidArgument, "could not parse attribute: "+s)
	}
	return WithPayload(parts[1]), nil
}
