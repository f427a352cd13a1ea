package eav

import (
	"sort"

	"github.com/holochain/holo-persist/address"
)

// IndexFilterKind selects which index-based narrowing a Query applies after
// the entity/attribute/value match phase.
type IndexFilterKind int

const (
	// IndexNone applies no index-based narrowing.
	IndexNone IndexFilterKind = iota
	// IndexLatestByAttribute groups matched records by attribute string and
	// keeps only the greatest-index record in each group.
	IndexLatestByAttribute
	// IndexRange keeps records whose index falls within [Low, High], either
	// bound optional.
	IndexRange
)

// IndexFilter is the index-phase narrowing applied to a Query's match set.
type IndexFilter struct {
	Kind IndexFilterKind
	Low  *int64
	High *int64
}

// NoIndexFilter applies no index-based narrowing.
func NoIndexFilter() IndexFilter { return IndexFilter{Kind: IndexNone} }

// LatestByAttribute keeps only the greatest-index record per attribute.
func LatestByAttribute() IndexFilter { return IndexFilter{Kind: IndexLatestByAttribute} }

// IndexRangeFilter keeps records with index in [low, high]. A nil bound is
// open on that side.
func IndexRangeFilter(low, high *int64) IndexFilter {
	return IndexFilter{Kind: IndexRange, Low: low, High: high}
}

// Query narrows an EAV match set by exact-match entity/attribute/value
// filters (nil meaning "any") plus an index-phase filter.
type Query[A Attribute] struct {
	Entity    *address.Address
	Attribute *A
	Value     *address.Address
	Index     IndexFilter
}

func (q Query[A]) matches(r Record[A]) bool {
	if q.Entity != nil && !q.Entity.Equal(r.Entity) {
		return false
	}
	if q.Attribute != nil && *q.Attribute != r.Attribute {
		return false
	}
	if q.Value != nil && !q.Value.Equal(r.Value) {
		return false
	}
	return true
}

// Evaluate runs the full match-then-index-filter pipeline against records,
// returning the result in the record total order.
func Evaluate[A Attribute](records []Record[A], q Query[A]) []Record[A] {
	matched := make([]Record[A], 0, len(records))
	for _, r := range records {
		if q.matches(r) {
			matched = append(matched, r)
		}
	}
	return evaluateIndexFilter(matched, q.Index)
}

func evaluateIndexFilter[A Attribute](matched []Record[A], filter IndexFilter) []Record[A] {
	switch filter.Kind {
	case IndexLatestByAttribute:
		matched = latestByAttribute(matched)
	case IndexRange:
		matched = filterRange(matched, filter.Low, filter.High)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Less(matched[j]) })
	return matched
}

func latestByAttribute[A Attribute](records []Record[A]) []Record[A] {
	best := make(map[string]Record[A], len(records))
	for _, r := range records {
		key := r.Attribute.String()
		cur, ok := best[key]
		if !ok || r.Index > cur.Index {
			best[key] = r
		}
	}
	out := make([]Record[A], 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	return out
}

func filterRange[A Attribute](records []Record[A], low, high *int64) []Record[A] {
	out := make([]Record[A], 0, len(records))
	for _, r := range records {
		if low != nil && r.Index < *low {
			continue
		}
		if high != nil && r.Index > *high {
			continue
		}
		out = append(out, r)
	}
	return out
}
