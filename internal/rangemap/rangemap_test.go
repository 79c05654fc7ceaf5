package rangemap

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetIgnoresEmptyIntervals(t *testing.T) {
	t.Parallel()
	var m Map[int]
	m.Set(Interval{5, 5}, 1)
	m.Set(Interval{7, 3}, 2)
	m.Set(Interval{0, 1}, 3)

	require.Equal(t, 1, m.Len())
	assert.Equal(t, Interval{0, 1}, m.Entries()[0].Interval)
}

func TestLookup(t *testing.T) {
	t.Parallel()
	var m Map[string]
	m.Set(Interval{'a', 'z' + 1}, "lower")
	m.Set(Interval{'0', '9' + 1}, "digit")
	m.Set(Interval{'a', 'b'}, "shadowed")

	tests := []struct {
		name  string
		point int
		want  string
		found bool
	}{
		{name: "first match wins", point: 'a', want: "lower", found: true},
		{name: "digit", point: '5', want: "digit", found: true},
		{name: "upper bound excluded", point: '9' + 1, found: false},
		{name: "outside", point: -1, found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Lookup(tt.point)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddConcatenates(t *testing.T) {
	t.Parallel()
	var a, b Map[int]
	a.Set(Interval{0, 2}, 1)
	b.Set(Interval{1, 3}, 2)
	b.Set(Interval{4, 6}, 3)
	a.Add(&b)
	a.Add(nil)

	require.Equal(t, 3, a.Len())
	assert.Equal(t, 2, b.Len(), "source map must not change")
	assert.Equal(t, 3, a.Entries()[2].Value)
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()
	var m Map[int]
	m.Set(Interval{10, 20}, 1)
	m.Set(Interval{15, 20}, 2)
	m.Set(Interval{5, 15}, 3)
	m.Set(Interval{21, 40}, 4)
	m.Set(Interval{15, 20}, 5)

	got := Canonicalize(&m, 0, 50)

	want := []Entry[[]int]{
		{Interval{0, 5}, nil},
		{Interval{5, 10}, []int{3}},
		{Interval{10, 15}, []int{1, 3}},
		{Interval{15, 20}, []int{1, 2, 5}},
		{Interval{20, 21}, nil},
		{Interval{21, 40}, []int{4}},
		{Interval{40, 50}, nil},
	}
	assert.Equal(t, want, got.Entries())
}

func TestCanonicalizeClipsToDomain(t *testing.T) {
	t.Parallel()
	var m Map[int]
	m.Set(Interval{-1, 0}, 7) // epsilon marker
	m.Set(Interval{250, 300}, 8)

	got := Canonicalize(&m, 0, 256)

	want := []Entry[[]int]{
		{Interval{0, 250}, nil},
		{Interval{250, 256}, []int{8}},
	}
	assert.Equal(t, want, got.Entries())
}

func TestCanonicalizeDuplicateValues(t *testing.T) {
	t.Parallel()
	var m Map[int]
	m.Set(Interval{0, 4}, 1)
	m.Set(Interval{2, 6}, 1)

	got := Canonicalize(&m, 0, 6)

	want := []Entry[[]int]{
		{Interval{0, 2}, []int{1}},
		{Interval{2, 4}, []int{1}},
		{Interval{4, 6}, []int{1}},
	}
	assert.Equal(t, want, got.Entries())
}

// Canonical output must be a disjoint cover of the domain, and every point
// must map to exactly the values whose input intervals contain it.
func TestCanonicalizePartitionProperty(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))
	const lo, hi = 0, 64

	for iter := 0; iter < 200; iter++ {
		var m Map[int]
		n := rng.Intn(8)
		for i := 0; i < n; i++ {
			a := rng.Intn(80) - 8
			b := a + rng.Intn(20)
			m.Set(Interval{a, b}, rng.Intn(5))
		}

		got := Canonicalize(&m, lo, hi)
		entries := got.Entries()
		require.NotEmpty(t, entries)
		require.LessOrEqual(t, len(entries), 2*n+1)

		next := lo
		for _, e := range entries {
			require.Equal(t, next, e.Interval.Start, "pieces must be contiguous")
			require.False(t, e.Interval.Empty())
			next = e.Interval.End
		}
		require.Equal(t, hi, next, "pieces must cover the domain")

		for p := lo; p < hi; p++ {
			var want []int
			for _, e := range m.Entries() {
				if e.Interval.Contains(p) && !slices.Contains(want, e.Value) {
					want = append(want, e.Value)
				}
			}
			slices.Sort(want)
			gotSet, ok := got.Lookup(p)
			require.True(t, ok)
			assert.Equal(t, want, gotSet, "point %d", p)
		}
	}
}

func TestIntervalString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"a"`, Interval{'a', 'b'}.String())
	assert.Equal(t, "[0,256)", Interval{0, 256}.String())
	assert.Equal(t, "[-1,0)", Interval{-1, 0}.String())
	assert.Equal(t, "[32,33)", Interval{' ', ' ' + 1}.String())
}
