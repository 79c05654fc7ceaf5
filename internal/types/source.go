package types

import (
	"go/token"
	"os"
	"sort"
	"strings"
)

// SourceCode stores the content of an input file split into lines.
type SourceCode struct {
	Lines      []string
	lineStarts []int
}

// NewSourceCode splits content into lines. Line terminators are not kept.
func NewSourceCode(content []byte) *SourceCode {
	src := &SourceCode{Lines: strings.Split(string(content), "\n")}
	src.lineStarts = make([]int, len(src.Lines))
	off := 0
	for i, line := range src.Lines {
		src.lineStarts[i] = off
		off += len(line) + 1
	}
	return src
}

// ReadSourceCode reads the content of a file and returns it as a SourceCode.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewSourceCode(content), nil
}

// Position converts a byte offset into a 1-based line and column. Offsets
// past the end are clamped to the position just after the last byte.
func (s *SourceCode) Position(filename string, offset int) token.Position {
	if offset < 0 {
		offset = 0
	}
	line := sort.Search(len(s.lineStarts), func(i int) bool { return s.lineStarts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	col := offset - s.lineStarts[line]
	if col > len(s.Lines[line]) {
		col = len(s.Lines[line])
	}
	return token.Position{
		Filename: filename,
		Offset:   s.lineStarts[line] + col,
		Line:     line + 1,
		Column:   col + 1,
	}
}

// ByteAt returns the byte at offset, or 0 past the end.
func (s *SourceCode) ByteAt(offset int) byte {
	pos := s.Position("", offset)
	line := s.Lines[pos.Line-1]
	switch {
	case pos.Offset != offset:
		return 0
	case pos.Column-1 < len(line):
		return line[pos.Column-1]
	case pos.Line < len(s.Lines):
		return '\n'
	default:
		return 0
	}
}
