package cmd

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/gnolang/tlex/engine"
	"github.com/gnolang/tlex/formatter"
	tt "github.com/gnolang/tlex/internal/types"
	"github.com/gnolang/tlex/lexer"
	"github.com/gnolang/tlex/spec"
)

// compileSpec loads the rule specification at path and compiles it. Pattern
// and capture errors are rendered to w before being returned. Each command
// compiles once, so the engine's lexer cache is not consulted twice here.
func compileSpec(logger *zap.Logger, w io.Writer, path string, cfg engine.Config) (*engine.Compiled, error) {
	rs, err := spec.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	eng, err := engine.New(logger, cfg)
	if err != nil {
		return nil, err
	}
	c, err := eng.Lexer(rs)
	if err != nil {
		reportCompileError(w, path, err)
		return nil, err
	}
	return c, nil
}

func reportCompileError(w io.Writer, path string, err error) {
	var (
		ruleErr  *lexer.RuleError
		conflict *lexer.CaptureConflictError
	)
	switch {
	case errors.As(err, &ruleErr):
		issue, src := formatter.PatternIssue(path, ruleErr)
		fmt.Fprint(w, formatter.GenerateFormattedIssue([]tt.Issue{issue}, src))
	case errors.As(err, &conflict):
		issue := formatter.ConflictIssue(path, conflict)
		issue.Severity = tt.SeverityError
		fmt.Fprint(w, formatter.GenerateFormattedIssue([]tt.Issue{issue}, nil))
	}
}
