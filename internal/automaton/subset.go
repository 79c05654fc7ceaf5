package automaton

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/gnolang/tlex/internal/rangemap"
)

// ErrStateLimit is returned when subset construction would exceed the
// configured number of DFA states.
var ErrStateLimit = errors.New("DFA state limit exceeded during construction")

// EpsilonClosure returns every state reachable from states through zero or
// more epsilon edges, as a sorted set. Cyclic epsilon graphs are handled by
// iterating until no state is added.
func (a *Automaton) EpsilonClosure(states []StateID) []StateID {
	seen := make(map[StateID]bool, len(states))
	stack := make([]StateID, 0, len(states))
	for _, s := range states {
		if !seen[s] {
			seen[s] = true
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range a.Edges(s) {
			if e.Interval != EpsilonInterval || seen[e.Value] {
				continue
			}
			seen[e.Value] = true
			stack = append(stack, e.Value)
		}
	}

	out := make([]StateID, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// DFA is an automaton produced by subset construction. Each of its states
// stands for a set of states of the source automaton.
type DFA struct {
	*Automaton
	members [][]StateID
}

// Members returns the sorted set of source states aggregated by s.
func (d *DFA) Members(s StateID) []StateID { return d.members[s] }

// ConstructDFA converts a into an equivalent deterministic automaton over
// the alphabet [lo, hi) using subset construction.
//
// The result is complete: every state has an edge for every symbol of the
// alphabet. The empty set of source states is an ordinary non-final state
// that loops to itself; callers treat it as the reject state.
//
// If limit is positive and the DFA would need more than limit states,
// ConstructDFA returns ErrStateLimit.
func (a *Automaton) ConstructDFA(lo, hi, limit int) (*DFA, error) {
	dfa := &DFA{Automaton: New()}
	index := make(map[string]StateID)

	register := func(set []StateID) (StateID, bool, error) {
		key := setKey(set)
		if id, ok := index[key]; ok {
			return id, false, nil
		}
		if limit > 0 && dfa.NumStates() >= limit {
			return 0, false, fmt.Errorf("%w (limit %d)", ErrStateLimit, limit)
		}
		id := dfa.AddState()
		index[key] = id
		dfa.members = append(dfa.members, set)
		dfa.SetLabels(id, a.CollectLabels(set))
		for _, s := range set {
			if a.IsFinal(s) {
				dfa.SetFinal(id, true)
				break
			}
		}
		return id, true, nil
	}

	start, _, err := register(a.EpsilonClosure([]StateID{a.Start()}))
	if err != nil {
		return nil, err
	}
	dfa.SetStart(start)

	queue := []StateID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var out rangemap.Map[StateID]
		for _, s := range dfa.members[cur] {
			out.Add(a.edges[s])
		}
		for _, e := range rangemap.Canonicalize(&out, lo, hi).Entries() {
			next, fresh, err := register(a.EpsilonClosure(e.Value))
			if err != nil {
				return nil, err
			}
			if fresh {
				queue = append(queue, next)
			}
			dfa.AddEdge(cur, e.Interval, next)
		}
	}
	return dfa, nil
}

// setKey encodes a sorted state set as a map key.
func setKey(set []StateID) string {
	buf := make([]byte, 0, len(set)*2)
	for _, s := range set {
		buf = binary.AppendUvarint(buf, uint64(s))
	}
	return string(buf)
}

// Violation describes a DFA state whose label was not carried by one of
// the source states it aggregates.
type Violation struct {
	DFAState StateID
	NFAState StateID
	Label    Label
}

func (v Violation) String() string {
	return fmt.Sprintf("DFA state %d carries %v but member state %d does not", v.DFAState, v.Label, v.NFAState)
}

// VerifyLabelConsistency checks that for every label selected by check, a
// DFA state carrying it has every member state of nfa carrying it as well.
// It returns the first violation found in state order, or nil.
func (d *DFA) VerifyLabelConsistency(nfa *Automaton, check func(Label) bool) *Violation {
	for s := range d.members {
		for _, l := range d.Labels(StateID(s)) {
			if !check(l) {
				continue
			}
			for _, m := range d.members[s] {
				if !nfa.HasLabel(m, l) {
					return &Violation{DFAState: StateID(s), NFAState: m, Label: l}
				}
			}
		}
	}
	return nil
}
