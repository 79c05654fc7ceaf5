package lexer

import (
	"fmt"
	"slices"
)

// Token is one longest match found by Scan.
type Token struct {
	Rule     int       `json:"rule"`
	Action   string    `json:"action"`
	Matched  []int     `json:"matched,omitempty"` // every rule accepting the span, ascending
	Start    int       `json:"start"`
	End      int       `json:"end"`
	Text     string    `json:"text"` // input[Start:End] as is; may be invalid UTF-8
	Captures []Capture `json:"captures,omitempty"`
}

// Capture is the span of one capture group inside a token. Offsets are
// relative to the scanned input.
type Capture struct {
	Group int `json:"group"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Scan tokenizes input. Tokens of skip rules are dropped unless the lexer
// was compiled with KeepSkipped.
//
// On a lexical error the tokens found before the error are returned along
// with a *LexicalError. The lexer itself is unaffected and may be reused.
func (l *Lexer) Scan(input []byte) ([]Token, error) {
	var toks []Token
	for pos := 0; pos < len(input); {
		tok, err := l.Next(input, pos)
		if err != nil {
			return toks, err
		}
		pos = tok.End
		if l.rules[tok.Rule].Skip && !l.cfg.keepSkipped {
			continue
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

// Next returns the longest token starting at offset pos of input.
//
// The DFA is driven until it enters a state from which no final state can
// be reached, or input runs out. The token ends after the last byte that
// left the DFA in a final state. Empty matches are never returned.
//
// pos must lie in [0, len(input)]; other values yield ErrOutOfRange.
func (l *Lexer) Next(input []byte, pos int) (Token, error) {
	if pos < 0 || pos > len(input) {
		return Token{}, fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, pos, len(input))
	}
	var (
		state    = l.dfa.Start()
		lastEnd  = -1
		lastSeen = state
		p        = pos
	)
	for ; p < len(input); p++ {
		state = l.table[int(state)*l.numClasses+l.classOf[input[p]]]
		if l.final[state] {
			lastEnd, lastSeen = p+1, state
		}
		if !l.live[state] {
			break
		}
	}

	if lastEnd < 0 {
		if p >= len(input) {
			return Token{}, &LexicalError{Offset: len(input), TokenStart: pos, EOF: true}
		}
		return Token{}, &LexicalError{Offset: p, TokenStart: pos}
	}

	matched := slices.Clone(l.actions[lastSeen])
	rule := matched[0]
	tok := Token{
		Rule:    rule,
		Action:  l.rules[rule].Action,
		Matched: matched,
		Start:   pos,
		End:     lastEnd,
		Text:    string(input[pos:lastEnd]),
	}
	if l.groups[rule] > 0 {
		tok.Captures = l.captures(rule, input[pos:lastEnd], pos)
	}
	return tok, nil
}
