package spec

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	plexer "github.com/alecthomas/participle/v2/lexer"

	"github.com/gnolang/tlex/lexer"
)

// The .tlex format:
//
//	# comment
//	lexer calc;
//	macro digit = `[0-9]`;
//	rule NUMBER = `{digit}{digit}*`;
//	rule WS = `[ ]` skip;
//
// Patterns are written between backquotes and taken verbatim.

type dslFile struct {
	Name    string      `parser:"('lexer' @Ident ';')?"`
	Entries []*dslEntry `parser:"@@*"`
}

type dslEntry struct {
	Macro *dslMacro `parser:"  'macro' @@"`
	Rule  *dslRule  `parser:"| 'rule' @@"`
}

type dslMacro struct {
	Pos     plexer.Position
	Name    string `parser:"@Ident '='"`
	Pattern string `parser:"@Pattern ';'"`
}

type dslRule struct {
	Pos     plexer.Position
	Action  string `parser:"@Ident '='"`
	Pattern string `parser:"@Pattern"`
	Skip    bool   `parser:"@'skip'? ';'"`
}

var dslLexer = plexer.MustSimple([]plexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Pattern", Pattern: "`[^`]*`"},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[=;]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var dslParser = participle.MustBuild[dslFile](
	participle.Lexer(dslLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Map(func(tok plexer.Token) (plexer.Token, error) {
		tok.Value = strings.TrimSuffix(strings.TrimPrefix(tok.Value, "`"), "`")
		return tok, nil
	}, "Pattern"),
)

// ParseDSL parses a rule specification in the .tlex format. filename is
// only used in error positions.
func ParseDSL(filename string, data []byte) (*RuleSet, error) {
	file, err := dslParser.ParseBytes(filename, data)
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rs := &RuleSet{Name: file.Name}
	for _, e := range file.Entries {
		switch {
		case e.Macro != nil:
			if rs.Macros == nil {
				rs.Macros = make(map[string]string)
			}
			if _, dup := rs.Macros[e.Macro.Name]; dup {
				return nil, fmt.Errorf("%w: %s: macro %q redefined", ErrInvalid, e.Macro.Pos, e.Macro.Name)
			}
			rs.Macros[e.Macro.Name] = e.Macro.Pattern
		case e.Rule != nil:
			rs.Rules = append(rs.Rules, lexer.Rule{
				Action:  e.Rule.Action,
				Pattern: e.Rule.Pattern,
				Skip:    e.Rule.Skip,
			})
		}
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}
