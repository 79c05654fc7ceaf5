package regex

import "github.com/gnolang/tlex/internal/automaton"

// Build lowers n into a, returning the entry and exit state of the new
// fragment. The fragment is connected to the rest of a only through those
// two states.
func Build(a *automaton.Automaton, n *Node) (entry, exit automaton.StateID) {
	switch n.Kind {
	case KindEmpty:
		entry, exit = a.AddState(), a.AddState()
		a.AddEpsilon(entry, exit)

	case KindInterval:
		entry, exit = a.AddState(), a.AddState()
		a.AddEdge(entry, n.Range, exit)

	case KindConcat:
		var mid1, mid2 automaton.StateID
		entry, mid1 = Build(a, n.Left)
		mid2, exit = Build(a, n.Right)
		a.AddEpsilon(mid1, mid2)

	case KindAlt:
		entry = a.AddState()
		l1, l2 := Build(a, n.Left)
		r1, r2 := Build(a, n.Right)
		exit = a.AddState()
		a.AddEpsilon(entry, l1)
		a.AddEpsilon(entry, r1)
		a.AddEpsilon(l2, exit)
		a.AddEpsilon(r2, exit)

	case KindStar:
		loop := a.AddState()
		in, out := Build(a, n.Left)
		a.AddEpsilon(loop, in)
		a.AddEpsilon(out, loop)
		entry, exit = loop, loop

	case KindCapture:
		entry = a.AddState()
		a.LabelState(entry, automaton.Label{Kind: automaton.CaptureStart, N: n.Group})
		in, out := Build(a, n.Left)
		exit = a.AddState()
		a.LabelState(exit, automaton.Label{Kind: automaton.CaptureEnd, N: n.Group})
		a.AddEpsilon(entry, in)
		a.AddEpsilon(out, exit)

	default:
		panic("regex: unknown node kind " + n.Kind.String())
	}
	return entry, exit
}

// NFA returns a standalone automaton recognizing re. Its single final state
// carries the action label 0.
func (re *Regexp) NFA() *automaton.Automaton {
	a := automaton.New()
	entry, exit := Build(a, re.Root)
	a.SetStart(entry)
	a.SetFinal(exit, true)
	a.LabelState(exit, automaton.ActionLabel(0))
	return a
}
