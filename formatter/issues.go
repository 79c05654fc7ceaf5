package formatter

import (
	"errors"
	"fmt"

	"github.com/gnolang/tlex/internal/regex"
	tt "github.com/gnolang/tlex/internal/types"
	"github.com/gnolang/tlex/lexer"
)

// rule set
const (
	LexicalError    = "lexical-error"
	PatternSyntax   = "pattern-syntax"
	CaptureConflict = "capture-conflict"
	IOError         = "io-error"
)

// LexicalIssue describes a scan failure in src. The underline covers the
// failing token attempt, from its first byte to the offending one.
func LexicalIssue(filename string, src *tt.SourceCode, err *lexer.LexicalError) tt.Issue {
	end := src.Position(filename, err.Offset)
	start := src.Position(filename, err.TokenStart)
	if start.Line != end.Line {
		start = src.Position(filename, end.Offset-(end.Column-1))
	}

	issue := tt.Issue{
		Rule:     LexicalError,
		Category: "scan",
		Filename: filename,
		Severity: tt.SeverityError,
		Start:    start,
		End:      end,
	}
	if err.EOF {
		issue.Message = "input ended before any rule matched"
	} else {
		issue.Message = fmt.Sprintf("no rule matches byte %q here", src.ByteAt(err.Offset))
	}
	if err.TokenStart != err.Offset {
		ts := src.Position(filename, err.TokenStart)
		issue.Note = fmt.Sprintf("token started at %d:%d", ts.Line, ts.Column)
	}
	return issue
}

// PatternIssue describes a rule whose pattern does not parse. The pattern
// itself is the snippet; it is returned with the issue.
func PatternIssue(specFile string, err *lexer.RuleError) (tt.Issue, *tt.SourceCode) {
	src := tt.NewSourceCode([]byte(err.Pattern))
	issue := tt.Issue{
		Rule:     PatternSyntax,
		Category: "compile",
		Filename: specFile,
		Message:  err.Err.Error(),
		Note:     fmt.Sprintf("in rule %d (%s)", err.Index, err.Action),
		Severity: tt.SeverityError,
	}

	var se *regex.SyntaxError
	if errors.As(err, &se) {
		issue.Message = se.Msg
		issue.Start = src.Position(specFile, se.Offset)
		issue.End = issue.Start
	} else {
		issue.Start = src.Position(specFile, 0)
		issue.End = src.Position(specFile, len(err.Pattern))
	}
	return issue, src
}

// ConflictIssue reports a capture conflict. It is informational: scanning
// recovers capture spans exactly, and any rule that starts with a capture
// group produces one.
func ConflictIssue(specFile string, err *lexer.CaptureConflictError) tt.Issue {
	return tt.Issue{
		Rule:     CaptureConflict,
		Category: "compile",
		Filename: specFile,
		Message:  err.Error(),
		Note:     "capture spans are still computed exactly while scanning",
		Severity: tt.SeverityInfo,
	}
}
