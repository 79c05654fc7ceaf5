package automaton

import (
	"fmt"
	"io"
	"strings"

	"github.com/gnolang/tlex/internal/rangemap"
)

// EdgeLabeler renders an edge interval for GraphViz output.
type EdgeLabeler func(rangemap.Interval) string

// ClassLabeler renders edges of a class-compressed automaton.
func ClassLabeler(r rangemap.Interval) string {
	if r == EpsilonInterval {
		return "ε"
	}
	if r.End == r.Start+1 {
		return fmt.Sprintf("c%d", r.Start)
	}
	return fmt.Sprintf("c%d-c%d", r.Start, r.End-1)
}

func defaultLabeler(r rangemap.Interval) string {
	if r == EpsilonInterval {
		return "ε"
	}
	return r.String()
}

// WriteDot writes a digraph representing the automaton to w, in GraphViz
// syntax. States reachable from the start are emitted breadth-first. A nil
// label uses the interval notation of rangemap.
func (a *Automaton) WriteDot(w io.Writer, label EdgeLabeler) error {
	if label == nil {
		label = defaultLabeler
	}
	if _, err := fmt.Fprintln(w, "digraph {\n\trankdir=LR;"); err != nil {
		return err
	}
	if a.NumStates() == 0 {
		_, err := fmt.Fprintln(w, "}")
		return err
	}
	if _, err := fmt.Fprintf(w, "\tinitial [label=\"\", shape=point];\n\tinitial -> s%d;\n", a.start); err != nil {
		return err
	}

	seen := make(map[StateID]bool)
	q := []StateID{a.start}
	for len(q) > 0 {
		s := q[0]
		q = q[1:]
		if seen[s] {
			continue
		}
		seen[s] = true

		shape := "circle"
		if a.IsFinal(s) {
			shape = "doublecircle"
		}
		if _, err := fmt.Fprintf(w, "\ts%d [label=%q, shape=%s];\n", s, stateLabel(s, a.Labels(s)), shape); err != nil {
			return err
		}
		for _, e := range a.Edges(s) {
			if _, err := fmt.Fprintf(w, "\ts%d -> s%d [label=%q];\n", s, e.Value, label(e.Interval)); err != nil {
				return err
			}
			if !seen[e.Value] {
				q = append(q, e.Value)
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func stateLabel(s StateID, ls []Label) string {
	if len(ls) == 0 {
		return fmt.Sprint(s)
	}
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.String()
	}
	return fmt.Sprintf("%d\n%s", s, strings.Join(parts, " "))
}
