// Package spec loads rule specifications for the lexer generator, either
// from YAML or from the .tlex text format, and expands their macros.
package spec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/tlex/lexer"
)

// DefaultFile is the rule specification used when none is given.
const DefaultFile = ".tlex.yaml"

// maxExpansionDepth bounds macro substitution; deeper nesting is treated
// as a recursive macro.
const maxExpansionDepth = 32

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("invalid rule specification")
	// ErrUnknownFormat is returned by Load for an unrecognised extension.
	ErrUnknownFormat = errors.New("unknown rule specification format")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RuleSet is a named, ordered list of rules plus the macros their patterns
// may reference as {name}.
type RuleSet struct {
	Name   string            `yaml:"name"`
	Macros map[string]string `yaml:"macros,omitempty"`
	Rules  []lexer.Rule      `yaml:"rules"`
}

// Load reads a rule specification, choosing the format from the file
// extension: .yaml and .yml are YAML, .tlex is the text format.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rs *RuleSet
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		rs, err = ParseYAML(data)
	case ".tlex":
		rs, err = ParseDSL(path, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if rs.Name == "" {
		rs.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return rs, nil
}

// ParseYAML decodes and validates a YAML rule specification. Unknown keys
// are rejected.
func ParseYAML(data []byte) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// YAML encodes rs in the format read by ParseYAML.
func (rs *RuleSet) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rs); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks that every rule has an action and a pattern and that
// macro names are identifiers.
func (rs *RuleSet) Validate() error {
	for name := range rs.Macros {
		if !identRe.MatchString(name) {
			return fmt.Errorf("%w: macro name %q is not an identifier", ErrInvalid, name)
		}
	}
	for i, r := range rs.Rules {
		if r.Action == "" {
			return fmt.Errorf("%w: rule %d has no action", ErrInvalid, i)
		}
		if r.Pattern == "" {
			return fmt.Errorf("%w: rule %d (%s) has no pattern", ErrInvalid, i, r.Action)
		}
	}
	return nil
}

// Expand returns the rules with every {name} macro reference replaced by
// the macro's pattern wrapped in a non-capturing group. Macros may refer to
// other macros. References to undefined names are left as they are.
func (rs *RuleSet) Expand() ([]lexer.Rule, error) {
	names := make([]string, 0, len(rs.Macros))
	for name := range rs.Macros {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]lexer.Rule, len(rs.Rules))
	for i, r := range rs.Rules {
		pattern, err := rs.expand(r.Pattern, names)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Action, err)
		}
		out[i] = lexer.Rule{Action: r.Action, Pattern: pattern, Skip: r.Skip}
	}
	return out, nil
}

func (rs *RuleSet) expand(pattern string, names []string) (string, error) {
	for depth := 0; depth < maxExpansionDepth; depth++ {
		changed := false
		for _, name := range names {
			ref := "{" + name + "}"
			if strings.Contains(pattern, ref) {
				pattern = strings.ReplaceAll(pattern, ref, "{"+rs.Macros[name]+"}")
				changed = true
			}
		}
		if !changed {
			return pattern, nil
		}
	}
	return "", fmt.Errorf("%w: macro expansion exceeds depth %d", ErrInvalid, maxExpansionDepth)
}

// Default returns the starter rule set written by "tlex init".
func Default() *RuleSet {
	return &RuleSet{
		Name: "tlex",
		Macros: map[string]string{
			"digit":  `[0-9]`,
			"letter": `{[a-z]|[A-Z]|_}`,
		},
		Rules: []lexer.Rule{
			{Action: "KW_IF", Pattern: `if`},
			{Action: "KW_ELSE", Pattern: `else`},
			{Action: "IDENT", Pattern: `{letter}{{letter}|{digit}}*`},
			{Action: "NUMBER", Pattern: `{digit}{digit}*`},
			{Action: "ASSIGN", Pattern: `=`},
			{Action: "WS", Pattern: `{[ ]|\x09|\x0a|\x0d}{[ ]|\x09|\x0a|\x0d}*`, Skip: true},
		},
	}
}
