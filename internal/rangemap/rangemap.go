// Package rangemap maps half-open integer intervals to values.
//
// A Map in raw form is an ordered list of associations that may overlap.
// Canonicalize turns it into a disjoint partition of a domain where every
// piece maps to the set of values whose intervals cover it.
package rangemap

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Empty reports whether the interval contains no points.
func (r Interval) Empty() bool { return r.Start >= r.End }

// Contains reports whether point lies inside the interval.
func (r Interval) Contains(point int) bool {
	return point >= r.Start && point < r.End
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r Interval) Intersect(o Interval) Interval {
	return Interval{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
}

func (r Interval) String() string {
	if r.End == r.Start+1 && r.Start >= 0 && r.Start < 256 {
		c := byte(r.Start)
		if c > ' ' && c < 0x7f && c != '"' && c != '\\' {
			return fmt.Sprintf("%q", string(c))
		}
	}
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Entry is one association of a Map.
type Entry[V any] struct {
	Interval Interval
	Value    V
}

// Map is an ordered list of interval associations.
// The zero value is an empty map ready to use.
type Map[V any] struct {
	entries []Entry[V]
}

// Set appends an association. Empty intervals are ignored.
func (m *Map[V]) Set(r Interval, v V) {
	if r.Empty() {
		return
	}
	m.entries = append(m.entries, Entry[V]{Interval: r, Value: v})
}

// Add appends every association of other.
func (m *Map[V]) Add(other *Map[V]) {
	if other == nil {
		return
	}
	m.entries = append(m.entries, other.entries...)
}

// Lookup returns the value of the first interval containing point.
func (m *Map[V]) Lookup(point int) (V, bool) {
	for _, e := range m.entries {
		if e.Interval.Contains(point) {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// Entries returns the associations in insertion order. The slice must not
// be modified.
func (m *Map[V]) Entries() []Entry[V] {
	if m == nil {
		return nil
	}
	return m.entries
}

// Len returns the number of associations.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Clone returns a shallow copy of m.
func (m *Map[V]) Clone() *Map[V] {
	return &Map[V]{entries: slices.Clone(m.entries)}
}

func (m *Map[V]) String() string {
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		parts = append(parts, fmt.Sprintf("%v->%v", e.Interval, e.Value))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Canonicalize partitions [lo, hi) into disjoint intervals, each mapped to
// the sorted set of values of m whose intervals overlap it. Pieces covered
// by nothing map to an empty set. Parts of m outside [lo, hi) are ignored.
//
// The result holds at most 2n+1 pieces for n associations.
func Canonicalize[V cmp.Ordered](m *Map[V], lo, hi int) *Map[[]V] {
	result := &Map[[]V]{}
	result.Set(Interval{lo, hi}, nil)
	domain := Interval{lo, hi}

	for _, e := range m.Entries() {
		r := e.Interval.Intersect(domain)
		if r.Empty() {
			continue
		}
		next := &Map[[]V]{entries: make([]Entry[[]V], 0, len(result.entries)+2)}
		for _, piece := range result.entries {
			overlap := piece.Interval.Intersect(r)
			if overlap.Empty() {
				next.entries = append(next.entries, piece)
				continue
			}
			next.Set(Interval{piece.Interval.Start, overlap.Start}, piece.Value)
			next.Set(overlap, with(piece.Value, e.Value))
			next.Set(Interval{overlap.End, piece.Interval.End}, piece.Value)
		}
		result = next
	}
	return result
}

// with returns a new sorted set holding set plus v. set is never modified
// since several pieces may share it after a split.
func with[V cmp.Ordered](set []V, v V) []V {
	i, found := slices.BinarySearch(set, v)
	if found {
		return set
	}
	out := make([]V, 0, len(set)+1)
	out = append(out, set[:i]...)
	out = append(out, v)
	return append(out, set[i:]...)
}
