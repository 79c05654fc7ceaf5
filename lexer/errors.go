package lexer

import (
	"errors"
	"fmt"

	"github.com/gnolang/tlex/internal/automaton"
)

var (
	// ErrNoRules is returned by Compile for an empty rule list.
	ErrNoRules = errors.New("lexer has no rules")
	// ErrLexical is matched by every *LexicalError.
	ErrLexical = errors.New("lexical error")
	// ErrOutOfRange is returned by Next for a position outside the input.
	ErrOutOfRange = errors.New("position out of range")
)

// RuleError reports a rule whose pattern could not be compiled.
type RuleError struct {
	Index   int
	Action  string
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// LexicalError reports input that no rule can tokenize.
type LexicalError struct {
	Offset     int  // offset of the byte that made every rule fail, or len(input)
	TokenStart int  // offset where the failing token attempt began
	EOF        bool // input ended inside a token that never matched
}

func (e *LexicalError) Error() string {
	if e.EOF {
		return fmt.Sprintf("lexical error: unexpected end of input at offset %d (token started at %d)", e.Offset, e.TokenStart)
	}
	return fmt.Sprintf("lexical error at offset %d: no rule matches (token started at %d)", e.Offset, e.TokenStart)
}

func (e *LexicalError) Is(target error) bool { return target == ErrLexical }

// CaptureConflictError reports a DFA state that merges NFA states inside
// and outside a capture group, so capture boundaries cannot be read from
// DFA labels alone.
type CaptureConflictError struct {
	Rule      int
	Action    string
	Violation automaton.Violation
}

func (e *CaptureConflictError) Error() string {
	return fmt.Sprintf("rule %d (%s): ambiguous capture placement: %v", e.Rule, e.Action, e.Violation)
}
