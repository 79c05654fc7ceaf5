package lexer

import (
	"slices"

	"github.com/gnolang/tlex/internal/automaton"
)

// thread is one path through a rule's NFA fragment with the capture
// offsets recorded along it.
type thread struct {
	state automaton.StateID
	caps  []int // 2*group: start, 2*group+1: end, -1 if unset
}

// replay runs the NFA fragment of a single rule over the bytes of a token.
// Threads are kept in priority order; the first thread to reach a state
// owns it for the current step.
type replay struct {
	nfa  *automaton.Automaton
	mark []int
	gen  int
}

// captures recovers the capture spans of a token already accepted by rule.
// text is the token's bytes and base its offset in the scanned input.
//
// The DFA cannot tell which of several merged NFA paths the match took, so
// the spans are computed by following the rule's own NFA fragment with one
// set of capture slots per path. For repeated groups the last iteration is
// reported; groups that did not take part in the match are omitted.
func (l *Lexer) captures(rule int, text []byte, base int) []Capture {
	vm := &replay{nfa: l.nfa, mark: make([]int, l.nfa.NumStates())}
	slots := make([]int, 2*l.groups[rule])
	for i := range slots {
		slots[i] = -1
	}

	vm.gen++
	clist := vm.add(nil, l.entries[rule], slots, base)
	var nlist []thread
	for i, b := range text {
		vm.gen++
		nlist = nlist[:0]
		for _, th := range clist {
			for _, e := range l.nfa.Edges(th.state) {
				if e.Interval != automaton.EpsilonInterval && e.Interval.Contains(int(b)) {
					nlist = vm.add(nlist, e.Value, th.caps, base+i+1)
				}
			}
		}
		clist, nlist = nlist, clist
		if len(clist) == 0 {
			return nil
		}
	}

	for _, th := range clist {
		if th.state != l.exits[rule] {
			continue
		}
		var out []Capture
		for g := 0; g < l.groups[rule]; g++ {
			start, end := th.caps[2*g], th.caps[2*g+1]
			if start >= 0 && end >= 0 {
				out = append(out, Capture{Group: g, Start: start, End: end})
			}
		}
		return out
	}
	return nil
}

// add appends s and everything epsilon-reachable from it to list, applying
// capture labels as states are entered at offset pos.
func (vm *replay) add(list []thread, s automaton.StateID, caps []int, pos int) []thread {
	if vm.mark[s] == vm.gen {
		return list
	}
	vm.mark[s] = vm.gen

	for _, lb := range vm.nfa.Labels(s) {
		var slot int
		switch lb.Kind {
		case automaton.CaptureStart:
			slot = 2 * lb.N
		case automaton.CaptureEnd:
			slot = 2*lb.N + 1
		default:
			continue
		}
		caps = slices.Clone(caps)
		caps[slot] = pos
	}

	list = append(list, thread{state: s, caps: caps})
	for _, e := range vm.nfa.Edges(s) {
		if e.Interval == automaton.EpsilonInterval {
			list = vm.add(list, e.Value, caps, pos)
		}
	}
	return list
}
