package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	tt "github.com/gnolang/tlex/internal/types"
)

const tabWidth = 8

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

const issueTemplate = `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn}}` +
	`{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .Padding}}` +
	`{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines}}` +
	`{{note .Note .Padding}}` + "\n"

var issueTmpl = template.Must(template.New("issue").Funcs(template.FuncMap{
	"header":              header,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
	"note":                note,
}).Parse(issueTemplate))

// GenerateFormattedIssue formats issues found in one source into a
// human-readable string.
func GenerateFormattedIssue(issues []tt.Issue, snippet *tt.SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		builder.WriteString(buildIssue(issue, snippet))
	}
	return builder.String()
}

type IssueData struct {
	Severity        string
	Rule            string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Note            string
	SnippetLines    []string
}

func buildIssue(issue tt.Issue, snippet *tt.SourceCode) string {
	maxLineNumWidth := calculateMaxLineNumWidth(issue.End.Line)
	var lines []string
	if snippet != nil {
		lines = snippet.Lines
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Rule:            issue.Rule,
		Filename:        issue.Filename,
		StartLine:       issue.Start.Line,
		StartColumn:     issue.Start.Column,
		EndLine:         issue.End.Line,
		EndColumn:       issue.End.Column,
		Message:         issue.Message,
		Note:            issue.Note,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		SnippetLines:    lines,
	}

	var buf bytes.Buffer
	if err := issueTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// utils functions used in the text template

func header(rule string, severity string, maxLineNumWidth int, filename string, startLine int, startColumn int) string {
	var endString string
	switch severity {
	case "ERROR":
		endString = errorStyle.Sprint("error: ")
	case "WARNING":
		endString = warningStyle.Sprint("warning: ")
	default:
		endString = messageStyle.Sprint("info: ")
	}
	endString += ruleStyle.Sprint(rule) + "\n"

	padding := strings.Repeat(" ", maxLineNumWidth)
	endString += lineStyle.Sprintf("%s--> ", padding)
	if startLine > 0 {
		endString += fileStyle.Sprintf("%s:%d:%d", filename, startLine, startColumn) + "\n"
	} else {
		endString += fileStyle.Sprint(filename) + "\n"
	}
	return endString
}

func codeSnippet(snippetLines []string, startLine int, endLine int, maxLineNumWidth int, padding string) string {
	endString := lineStyle.Sprintf("%s|", padding) + "\n"
	for i := startLine; i <= endLine; i++ {
		if i-1 < 0 || i-1 >= len(snippetLines) {
			continue
		}
		lineNum := fmt.Sprintf("%*d", maxLineNumWidth, i)
		endString += lineStyle.Sprintf("%s | ", lineNum) + printable(snippetLines[i-1]) + "\n"
	}
	return endString
}

func underlineAndMessage(message string, padding string, startLine int, endLine int, startColumn int, endColumn int, snippetLines []string) string {
	endString := lineStyle.Sprintf("%s| ", padding)

	if !isValidLineRange(startLine, endLine, snippetLines) {
		return endString + messageStyle.Sprint(message) + "\n"
	}

	underlineStart := 0
	if startLine == endLine {
		underlineStart = calculateVisualColumn(snippetLines[startLine-1], startColumn)
	}
	underlineEnd := calculateVisualColumn(snippetLines[endLine-1], endColumn)
	underlineLength := underlineEnd - underlineStart + 1
	if underlineLength < 1 {
		underlineLength = 1
	}

	endString += strings.Repeat(" ", underlineStart)
	endString += messageStyle.Sprint(strings.Repeat("~", underlineLength)) + "\n"
	endString += lineStyle.Sprintf("%s= ", padding)
	endString += messageStyle.Sprint(message) + "\n"
	return endString
}

func note(note string, padding string) string {
	if note == "" {
		return ""
	}
	return lineStyle.Sprintf("%s= ", padding) + noteStyle.Sprint("note: ") + note + "\n"
}

func isValidLineRange(startLine int, endLine int, snippetLines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		startLine <= len(snippetLines) &&
		endLine <= len(snippetLines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(fmt.Sprintf("%d", endLine))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
// A column past the end of the line continues counting one cell per byte.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 >= column {
			return visualColumn
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn + column - 1 - len(line)
}

// printable replaces control characters other than tab so that the
// underline stays aligned with the snippet.
func printable(line string) string {
	return strings.Map(func(r rune) rune {
		if r != '\t' && unicode.IsControl(r) {
			return '.'
		}
		return r
	}, line)
}
