// Package automaton implements finite automata whose edges are keyed by
// integer intervals, together with the classical constructions needed by a
// lexer generator: epsilon-closure, subset construction, renumbering,
// reachability and alphabet compression.
package automaton

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gnolang/tlex/internal/rangemap"
)

// StateID identifies a state. IDs are dense indices into the automaton's
// state arena, allocated by AddState.
type StateID int

// Epsilon is the pseudo-symbol used for non-consuming edges. It lies
// outside every real alphabet.
const Epsilon = -1

// EpsilonInterval is the interval carried by epsilon edges.
var EpsilonInterval = rangemap.Interval{Start: Epsilon, End: Epsilon + 1}

// LabelKind distinguishes ordinary action labels from capture markers.
type LabelKind uint8

const (
	Action       LabelKind = iota // N is a rule index
	CaptureStart                  // N is a capture group index
	CaptureEnd                    // N is a capture group index
)

func (k LabelKind) String() string {
	switch k {
	case Action:
		return "action"
	case CaptureStart:
		return "capture-start"
	case CaptureEnd:
		return "capture-end"
	default:
		return "unknown"
	}
}

// Label is a semantic marker attached to a state.
type Label struct {
	Kind LabelKind
	N    int
}

// ActionLabel returns the label fired when rule is accepted.
func ActionLabel(rule int) Label { return Label{Kind: Action, N: rule} }

// IsCapture reports whether l marks a capture boundary.
func IsCapture(l Label) bool { return l.Kind == CaptureStart || l.Kind == CaptureEnd }

func (l Label) String() string {
	switch l.Kind {
	case Action:
		return fmt.Sprintf("#%d", l.N)
	case CaptureStart:
		return fmt.Sprintf("(%d", l.N)
	case CaptureEnd:
		return fmt.Sprintf("%d)", l.N)
	default:
		return fmt.Sprintf("?%d", l.N)
	}
}

func compareLabels(a, b Label) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	return a.N - b.N
}

// Automaton is a directed graph with interval-labelled edges, one start
// state, a set of final states and a label set per state.
type Automaton struct {
	edges  []*rangemap.Map[StateID]
	labels [][]Label // sorted, no duplicates
	final  []bool
	start  StateID
}

// New returns an empty automaton.
func New() *Automaton {
	return &Automaton{}
}

// AddState allocates a fresh state with no edges and no labels.
func (a *Automaton) AddState() StateID {
	id := StateID(len(a.edges))
	a.edges = append(a.edges, &rangemap.Map[StateID]{})
	a.labels = append(a.labels, nil)
	a.final = append(a.final, false)
	return id
}

// NumStates returns the number of allocated states.
func (a *Automaton) NumStates() int { return len(a.edges) }

// AddEdge adds a transition from src to dst over r. Edges are not
// deduplicated; empty intervals are dropped.
func (a *Automaton) AddEdge(src StateID, r rangemap.Interval, dst StateID) {
	a.edges[src].Set(r, dst)
}

// AddEpsilon adds a non-consuming edge from src to dst.
func (a *Automaton) AddEpsilon(src, dst StateID) {
	a.AddEdge(src, EpsilonInterval, dst)
}

// Edges returns the outgoing transitions of s in insertion order.
func (a *Automaton) Edges(s StateID) []rangemap.Entry[StateID] {
	return a.edges[s].Entries()
}

// Step returns the destination of the first edge of s whose interval
// contains symbol.
func (a *Automaton) Step(s StateID, symbol int) (StateID, bool) {
	return a.edges[s].Lookup(symbol)
}

// LabelState adds l to the label set of s.
func (a *Automaton) LabelState(s StateID, l Label) {
	a.labels[s] = insertLabel(a.labels[s], l)
}

// SetLabels adds every label in ls to the label set of s.
func (a *Automaton) SetLabels(s StateID, ls []Label) {
	for _, l := range ls {
		a.LabelState(s, l)
	}
}

// Labels returns the sorted label set of s. The slice must not be modified.
func (a *Automaton) Labels(s StateID) []Label { return a.labels[s] }

// HasLabel reports whether s carries l.
func (a *Automaton) HasLabel(s StateID, l Label) bool {
	_, found := slices.BinarySearchFunc(a.labels[s], l, compareLabels)
	return found
}

// Actions returns the rule indices labelling s, ascending.
func (a *Automaton) Actions(s StateID) []int {
	var out []int
	for _, l := range a.labels[s] {
		if l.Kind == Action {
			out = append(out, l.N)
		}
	}
	return out
}

// SetStart marks s as the start state.
func (a *Automaton) SetStart(s StateID) { a.start = s }

// Start returns the start state.
func (a *Automaton) Start() StateID { return a.start }

// SetFinal marks or unmarks s as final.
func (a *Automaton) SetFinal(s StateID, final bool) { a.final[s] = final }

// IsFinal reports whether s is final.
func (a *Automaton) IsFinal(s StateID) bool { return a.final[s] }

// Finals returns the final states, ascending.
func (a *Automaton) Finals() []StateID {
	var out []StateID
	for s, f := range a.final {
		if f {
			out = append(out, StateID(s))
		}
	}
	return out
}

// CollectLabels returns the union of the label sets of states.
func (a *Automaton) CollectLabels(states []StateID) []Label {
	var out []Label
	for _, s := range states {
		for _, l := range a.labels[s] {
			out = insertLabel(out, l)
		}
	}
	return out
}

func (a *Automaton) String() string {
	var b strings.Builder
	b.WriteString("Edges:\n")
	for s := range a.edges {
		for _, e := range a.Edges(StateID(s)) {
			fmt.Fprintf(&b, "%d --%v--> %d\n", s, e.Interval, e.Value)
		}
	}
	fmt.Fprintf(&b, "Start: %d\n", a.start)
	fmt.Fprintf(&b, "Final: %v\n", a.Finals())
	b.WriteString("Labels:")
	for s, ls := range a.labels {
		if len(ls) > 0 {
			fmt.Fprintf(&b, " %d:%v", s, ls)
		}
	}
	return b.String()
}

func insertLabel(ls []Label, l Label) []Label {
	i, found := slices.BinarySearchFunc(ls, l, compareLabels)
	if found {
		return ls
	}
	return slices.Insert(ls, i, l)
}
