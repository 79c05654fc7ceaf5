package types

import "go/token"

// Severity ranks an Issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a problem found in a rule specification or in scanned
// input.
type Issue struct {
	Rule     string
	Category string
	Filename string
	Message  string
	Note     string
	Severity Severity
	Start    token.Position
	End      token.Position
}
