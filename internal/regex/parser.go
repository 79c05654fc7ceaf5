// Package regex parses the lexer pattern language and lowers patterns into
// automaton fragments by Thompson construction.
//
// The language works on raw bytes:
//
//	c        literal byte (anything not listed below)
//	\xHH     byte given by two hex digits
//	.        any byte
//	[a-b]    byte range; [a] is a single byte
//	[^a-b]   any byte outside the range
//	(re)     capture group
//	{re}     non-capturing group
//	re*      zero or more
//	re?      zero or one
//	re|re    alternation
//
// The bytes * | ( ) { } ? are reserved and must be escaped as \xHH to be
// matched literally.
package regex

import (
	"errors"
	"fmt"

	"github.com/gnolang/tlex/internal/rangemap"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("pattern syntax error")

// SyntaxError reports a malformed pattern.
type SyntaxError struct {
	Pattern string
	Offset  int // byte offset in Pattern where the problem was found
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern %q: offset %d: %s", e.Pattern, e.Offset, e.Msg)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// end is returned by peek once the pattern is exhausted.
const end = -1

// Regexp is a parsed pattern.
type Regexp struct {
	Pattern string
	Root    *Node
	Groups  int // number of capture groups, numbered from 0
}

// Parse parses pattern into a syntax tree.
func Parse(pattern string) (*Regexp, error) {
	p := &parser{input: pattern}
	if len(pattern) == 0 {
		return nil, p.errorf("empty pattern")
	}
	root, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	if c := p.peek(); c != end {
		if c == ')' || c == '}' {
			return nil, p.errorf("unmatched %q", rune(c))
		}
		return nil, p.errorf("unexpected %q", rune(c))
	}
	return &Regexp{Pattern: pattern, Root: root, Groups: p.groups}, nil
}

// MustParse calls Parse, and panics if unable to parse the pattern.
func MustParse(pattern string) *Regexp {
	re, err := Parse(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

func (re *Regexp) String() string { return re.Root.String() }

type parser struct {
	input  string
	pos    int
	groups int
}

func (p *parser) peek() int {
	if p.pos >= len(p.input) {
		return end
	}
	return int(p.input[p.pos])
}

func (p *parser) next() int {
	c := p.peek()
	if c != end {
		p.pos++
	}
	return c
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pattern: p.input, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(want byte, what string) error {
	if p.peek() != int(want) {
		if p.peek() == end {
			return p.errorf("missing %q to close %s", rune(want), what)
		}
		return p.errorf("expected %q to close %s, found %q", rune(want), what, rune(p.peek()))
	}
	p.pos++
	return nil
}

// parseAlternation parses concat ('|' concat)*.
func (p *parser) parseAlternation() (*Node, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for p.peek() == '|' {
		p.pos++
		right, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		left = Alt(left, right)
	}
	return left, nil
}

// parseConcat parses a sequence of repeated terms. The sequence stops
// before any byte that cannot start a term.
func (p *parser) parseConcat() (*Node, error) {
	left, err := p.parseRepeat()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '*', ')', '}', '|', '?', end:
			return left, nil
		}
		right, err := p.parseRepeat()
		if err != nil {
			return nil, err
		}
		left = Concat(left, right)
	}
}

// parseRepeat parses a base term followed by any number of * or ?.
func (p *parser) parseRepeat() (*Node, error) {
	n, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			n = Star(n)
		case '?':
			p.pos++
			n = Alt(n, Empty())
		default:
			return n, nil
		}
	}
}

func (p *parser) parseBase() (*Node, error) {
	switch p.peek() {
	case '(':
		p.pos++
		group := p.groups
		p.groups++
		inner, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')', "capture group"); err != nil {
			return nil, err
		}
		return Capture(group, inner), nil

	case '{':
		p.pos++
		inner, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		if err := p.expect('}', "group"); err != nil {
			return nil, err
		}
		return inner, nil

	case '.':
		p.pos++
		return Char(rangemap.Interval{Start: 0, End: 256}), nil

	case '[':
		p.pos++
		return p.parseClass()

	default:
		b, err := p.parseByte()
		if err != nil {
			return nil, err
		}
		return Byte(b), nil
	}
}

// parseClass parses the remainder of a character class after '['.
func (p *parser) parseClass() (*Node, error) {
	negate := false
	if p.peek() == '^' {
		p.pos++
		negate = true
	}
	lo, err := p.parseByte()
	if err != nil {
		return nil, err
	}
	hi := lo
	if p.peek() == '-' {
		p.pos++
		if hi, err = p.parseByte(); err != nil {
			return nil, err
		}
		if hi < lo {
			return nil, p.errorf("invalid range %q-%q", rune(lo), rune(hi))
		}
	}
	if err := p.expect(']', "character class"); err != nil {
		return nil, err
	}

	if !negate {
		return Char(rangemap.Interval{Start: int(lo), End: int(hi) + 1}), nil
	}
	below := rangemap.Interval{Start: 0, End: int(lo)}
	above := rangemap.Interval{Start: int(hi) + 1, End: 256}
	switch {
	case below.Empty():
		return Char(above), nil
	case above.Empty():
		return Char(below), nil
	default:
		return Alt(Char(below), Char(above)), nil
	}
}

// parseByte parses a literal byte or a \xHH escape.
func (p *parser) parseByte() (byte, error) {
	c := p.peek()
	switch c {
	case end:
		return 0, p.errorf("unexpected end of pattern")
	case '*', '|', '(', ')', '{', '}', '?':
		return 0, p.errorf("unexpected %q, expected a literal byte", rune(c))
	case '\\':
		start := p.pos
		p.pos++
		if p.next() != 'x' {
			p.pos = start
			return 0, p.errorf(`malformed escape, expected \xHH`)
		}
		h1, ok1 := hexDigit(p.next())
		h2, ok2 := hexDigit(p.next())
		if !ok1 || !ok2 {
			p.pos = start
			return 0, p.errorf(`malformed escape, expected \xHH`)
		}
		return h1<<4 | h2, nil
	}
	p.pos++
	return byte(c), nil
}

func hexDigit(c int) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return byte(c - '0'), true
	case c >= 'a' && c <= 'f':
		return byte(c - 'a' + 10), true
	case c >= 'A' && c <= 'F':
		return byte(c - 'A' + 10), true
	}
	return 0, false
}
