package automaton

import "slices"

// Renumber returns an isomorphic automaton whose state ids follow a
// breadth-first walk from the start state, so the start state becomes 0.
// States unreachable from the start keep their relative order after the
// reachable ones.
func (a *Automaton) Renumber() *Automaton {
	n := a.NumStates()
	order := make([]StateID, 0, n)
	mapping := make([]StateID, n)
	for i := range mapping {
		mapping[i] = -1
	}
	visit := func(s StateID) {
		if mapping[s] < 0 {
			mapping[s] = StateID(len(order))
			order = append(order, s)
		}
	}

	if n > 0 {
		visit(a.start)
	}
	for i := 0; i < len(order); i++ {
		for _, e := range a.Edges(order[i]) {
			visit(e.Value)
		}
	}
	for s := 0; s < n; s++ {
		visit(StateID(s))
	}

	out := New()
	for range order {
		out.AddState()
	}
	for newID, old := range order {
		id := StateID(newID)
		out.labels[id] = slices.Clone(a.labels[old])
		out.final[id] = a.final[old]
		for _, e := range a.Edges(old) {
			out.AddEdge(id, e.Interval, mapping[e.Value])
		}
	}
	if n > 0 {
		out.start = mapping[a.start]
	}
	return out
}

// ReachableFrom returns the states reachable from s through one or more
// edges. s itself is included only if it lies on a cycle.
func (a *Automaton) ReachableFrom(s StateID) map[StateID]bool {
	reach := make(map[StateID]bool)
	queue := []StateID{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range a.Edges(cur) {
			if reach[e.Value] {
				continue
			}
			reach[e.Value] = true
			queue = append(queue, e.Value)
		}
	}
	return reach
}

// StatesReachingFinals returns, indexed by state, whether some final state
// is reachable from that state through at least one edge. A state outside
// this set can never extend the current match.
//
// It is computed with one backward walk from the final states, which gives
// the same answer as testing ReachableFrom for every state.
func (a *Automaton) StatesReachingFinals() []bool {
	n := a.NumStates()
	preds := make([][]StateID, n)
	for s := 0; s < n; s++ {
		for _, e := range a.Edges(StateID(s)) {
			preds[e.Value] = append(preds[e.Value], StateID(s))
		}
	}

	live := make([]bool, n)
	var queue []StateID
	for _, f := range a.Finals() {
		queue = append(queue, preds[f]...)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if live[s] {
			continue
		}
		live[s] = true
		queue = append(queue, preds[s]...)
	}
	return live
}
