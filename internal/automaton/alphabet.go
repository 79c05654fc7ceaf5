package automaton

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/gnolang/tlex/internal/rangemap"
)

// Classes maps every symbol of an alphabet [lo, hi) to an equivalence
// class. Two symbols share a class iff they trigger exactly the same set of
// (source, destination) transitions in the automaton the classes were
// computed for.
type Classes struct {
	lo       int
	class    []int // symbol-lo -> class
	examples []int // class -> first symbol seen in that class
}

// Class returns the class of symbol, or -1 outside the alphabet.
func (c *Classes) Class(symbol int) int {
	i := symbol - c.lo
	if i < 0 || i >= len(c.class) {
		return -1
	}
	return c.class[i]
}

// Len returns the number of classes.
func (c *Classes) Len() int { return len(c.examples) }

// Example returns a representative symbol of class id.
func (c *Classes) Example(id int) int { return c.examples[id] }

// Members returns every symbol of class id, ascending.
func (c *Classes) Members(id int) []int {
	var out []int
	for i, cl := range c.class {
		if cl == id {
			out = append(out, c.lo+i)
		}
	}
	return out
}

func (c *Classes) String() string {
	var b strings.Builder
	for id := range c.examples {
		fmt.Fprintf(&b, "%d: %s\n", id, symbolRanges(c.Members(id)))
	}
	return b.String()
}

// symbolRanges renders sorted symbols as compact ranges, e.g. "[48,58) "a"".
func symbolRanges(syms []int) string {
	var parts []string
	for i := 0; i < len(syms); {
		j := i
		for j+1 < len(syms) && syms[j+1] == syms[j]+1 {
			j++
		}
		parts = append(parts, rangemap.Interval{Start: syms[i], End: syms[j] + 1}.String())
		i = j + 1
	}
	return strings.Join(parts, " ")
}

// CompressAlphabet partitions [lo, hi) into equivalence classes and returns
// them together with a copy of a whose edges are rewritten into class
// space: every edge becomes one singleton interval [c, c+1) per distinct
// class its symbols fall into. Start state, final states and labels are
// unchanged. Epsilon edges are copied as they are.
func (a *Automaton) CompressAlphabet(lo, hi int) (*Classes, *Automaton) {
	n := hi - lo
	pairs := make([][]uint64, n)
	for s := 0; s < a.NumStates(); s++ {
		for _, e := range a.Edges(StateID(s)) {
			r := e.Interval.Intersect(rangemap.Interval{Start: lo, End: hi})
			if r.Empty() {
				continue
			}
			pair := uint64(s)<<32 | uint64(uint32(e.Value))
			for sym := r.Start; sym < r.End; sym++ {
				pairs[sym-lo] = append(pairs[sym-lo], pair)
			}
		}
	}

	classes := &Classes{lo: lo, class: make([]int, n)}
	numbering := make(map[string]int)
	for i, sig := range pairs {
		slices.Sort(sig)
		sig = slices.Compact(sig)
		buf := make([]byte, 0, len(sig)*4)
		for _, p := range sig {
			buf = binary.AppendUvarint(buf, p)
		}
		key := string(buf)
		id, ok := numbering[key]
		if !ok {
			id = len(classes.examples)
			numbering[key] = id
			classes.examples = append(classes.examples, lo+i)
		}
		classes.class[i] = id
	}

	out := New()
	for s := 0; s < a.NumStates(); s++ {
		out.AddState()
	}
	copy(out.final, a.final)
	for s := range a.labels {
		out.labels[s] = slices.Clone(a.labels[s])
	}
	out.start = a.start

	for s := 0; s < a.NumStates(); s++ {
		src := StateID(s)
		for _, e := range a.Edges(src) {
			if e.Interval == EpsilonInterval {
				out.AddEdge(src, e.Interval, e.Value)
				continue
			}
			r := e.Interval.Intersect(rangemap.Interval{Start: lo, End: hi})
			var emitted []int
			for sym := r.Start; sym < r.End; sym++ {
				c := classes.class[sym-lo]
				if slices.Contains(emitted, c) {
					continue
				}
				emitted = append(emitted, c)
				out.AddEdge(src, rangemap.Interval{Start: c, End: c + 1}, e.Value)
			}
		}
	}
	return classes, out
}
