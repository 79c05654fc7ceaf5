// Package lexer compiles an ordered list of pattern rules into a
// class-compressed DFA and tokenizes byte input with it using longest-match
// semantics.
package lexer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/tlex/internal/automaton"
	"github.com/gnolang/tlex/internal/regex"
)

// Rule pairs a pattern with the action reported for its tokens.
type Rule struct {
	Action  string `json:"action" yaml:"action"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Skip    bool   `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// Stats describes the size of a compiled lexer.
type Stats struct {
	Rules      int `json:"rules"`
	NFAStates  int `json:"nfa_states"`
	DFAStates  int `json:"dfa_states"`
	DeadStates int `json:"dead_states"`
	Classes    int `json:"classes"`
}

// Lexer is a compiled rule set. It is immutable and safe for concurrent use.
type Lexer struct {
	rules []Rule
	cfg   *config

	nfa     *automaton.Automaton
	entries []automaton.StateID // NFA fragment entry per rule
	exits   []automaton.StateID // NFA fragment exit per rule
	bounds  []automaton.StateID // first NFA state of each rule's fragment
	groups  []int               // capture groups per rule

	dfa        *automaton.Automaton // renumbered, over raw bytes
	compressed *automaton.Automaton // dfa with edges over class ids
	classes    *automaton.Classes

	classOf    [256]int
	numClasses int
	table      []automaton.StateID // state*numClasses+class -> next state
	final      []bool
	live       []bool
	actions    [][]int

	conflict *CaptureConflictError
	stats    Stats
}

// Compile builds a lexer for rules. Rule order is significant: when several
// rules match the same longest input, the first one wins.
func Compile(rules []Rule, opts ...Option) (*Lexer, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	l := &Lexer{
		rules:   append([]Rule(nil), rules...),
		cfg:     cfg,
		nfa:     automaton.New(),
		entries: make([]automaton.StateID, len(rules)),
		exits:   make([]automaton.StateID, len(rules)),
		bounds:  make([]automaton.StateID, len(rules)),
		groups:  make([]int, len(rules)),
	}

	start := l.nfa.AddState()
	l.nfa.SetStart(start)
	for i, r := range rules {
		re, err := regex.Parse(r.Pattern)
		if err != nil {
			return nil, &RuleError{Index: i, Action: r.Action, Pattern: r.Pattern, Err: err}
		}
		l.bounds[i] = automaton.StateID(l.nfa.NumStates())
		entry, exit := regex.Build(l.nfa, re.Root)
		l.nfa.AddEpsilon(start, entry)
		l.nfa.SetFinal(exit, true)
		l.nfa.LabelState(exit, automaton.ActionLabel(i))
		l.entries[i], l.exits[i], l.groups[i] = entry, exit, re.Groups
	}

	dfa, err := l.nfa.ConstructDFA(0, 256, cfg.stateLimit)
	if err != nil {
		return nil, fmt.Errorf("construct DFA: %w", err)
	}

	if v := dfa.VerifyLabelConsistency(l.nfa, automaton.IsCapture); v != nil {
		rule := l.ruleOwning(dfa, *v)
		l.conflict = &CaptureConflictError{Rule: rule, Action: rules[rule].Action, Violation: *v}
		if cfg.strict {
			return nil, l.conflict
		}
		cfg.logger.Debug("capture labels merged across DFA state",
			zap.Int("rule", rule),
			zap.String("action", rules[rule].Action),
			zap.Stringer("violation", v))
	}

	l.dfa = dfa.Renumber()
	l.classes, l.compressed = l.dfa.CompressAlphabet(0, 256)
	l.buildTable()

	cfg.logger.Debug("compiled lexer",
		zap.Int("rules", l.stats.Rules),
		zap.Int("nfa_states", l.stats.NFAStates),
		zap.Int("dfa_states", l.stats.DFAStates),
		zap.Int("dead_states", l.stats.DeadStates),
		zap.Int("classes", l.stats.Classes))
	return l, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(rules []Rule, opts ...Option) *Lexer {
	l, err := Compile(rules, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Lexer) buildTable() {
	n := l.dfa.NumStates()
	l.numClasses = l.classes.Len()
	for b := range l.classOf {
		l.classOf[b] = l.classes.Class(b)
	}

	l.table = make([]automaton.StateID, n*l.numClasses)
	l.final = make([]bool, n)
	l.actions = make([][]int, n)
	for s := 0; s < n; s++ {
		id := automaton.StateID(s)
		for c := 0; c < l.numClasses; c++ {
			next, ok := l.compressed.Step(id, c)
			if !ok {
				// Subset construction yields a complete DFA.
				panic(fmt.Sprintf("lexer: state %d has no edge for class %d", s, c))
			}
			l.table[s*l.numClasses+c] = next
		}
		l.final[s] = l.dfa.IsFinal(id)
		l.actions[s] = l.dfa.Actions(id)
	}
	l.live = l.dfa.StatesReachingFinals()

	dead := 0
	for _, ok := range l.live {
		if !ok {
			dead++
		}
	}
	l.stats = Stats{
		Rules:      len(l.rules),
		NFAStates:  l.nfa.NumStates(),
		DFAStates:  n,
		DeadStates: dead,
		Classes:    l.numClasses,
	}
}

// ruleOwning finds the rule whose fragment holds the capture label of v.
func (l *Lexer) ruleOwning(dfa *automaton.DFA, v automaton.Violation) int {
	for _, m := range dfa.Members(v.DFAState) {
		if l.nfa.HasLabel(m, v.Label) {
			return l.ruleOf(m)
		}
	}
	return l.ruleOf(v.NFAState)
}

func (l *Lexer) ruleOf(s automaton.StateID) int {
	rule := 0
	for i, b := range l.bounds {
		if s >= b {
			rule = i
		}
	}
	return rule
}

// Rules returns a copy of the compiled rules.
func (l *Lexer) Rules() []Rule { return append([]Rule(nil), l.rules...) }

// Stats returns size information about the compiled automata.
func (l *Lexer) Stats() Stats { return l.stats }

// NFA returns the combined Thompson automaton of all rules.
func (l *Lexer) NFA() *automaton.Automaton { return l.nfa }

// DFA returns the renumbered DFA over raw bytes.
func (l *Lexer) DFA() *automaton.Automaton { return l.dfa }

// Compressed returns the DFA with edges rewritten to alphabet classes.
func (l *Lexer) Compressed() *automaton.Automaton { return l.compressed }

// Classes returns the alphabet classes of the compressed DFA.
func (l *Lexer) Classes() *automaton.Classes { return l.classes }

// CaptureConflict returns the first capture conflict found while compiling,
// or nil. Capture spans reported by Scan are correct regardless.
func (l *Lexer) CaptureConflict() error {
	if l.conflict == nil {
		return nil
	}
	return l.conflict
}
