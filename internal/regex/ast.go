package regex

import (
	"fmt"

	"github.com/gnolang/tlex/internal/rangemap"
)

// Kind identifies the operator of a Node.
type Kind uint8

const (
	KindEmpty    Kind = iota // matches the empty string
	KindInterval             // matches one symbol of Range
	KindConcat               // Left then Right
	KindAlt                  // Left or Right
	KindStar                 // zero or more Left
	KindCapture              // Left, recorded as capture group Group
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindInterval:
		return "Interval"
	case KindConcat:
		return "Concat"
	case KindAlt:
		return "Alt"
	case KindStar:
		return "Star"
	case KindCapture:
		return "Capture"
	default:
		return "Unknown"
	}
}

// Node is an immutable regular expression syntax tree node.
type Node struct {
	Kind  Kind
	Range rangemap.Interval // KindInterval
	Left  *Node             // operand of Concat, Alt, Star and Capture
	Right *Node             // second operand of Concat and Alt
	Group int               // KindCapture
}

// Empty returns a node matching the empty string.
func Empty() *Node { return &Node{Kind: KindEmpty} }

// Char returns a node matching a single symbol in r.
func Char(r rangemap.Interval) *Node { return &Node{Kind: KindInterval, Range: r} }

// Byte returns a node matching exactly b.
func Byte(b byte) *Node { return Char(rangemap.Interval{Start: int(b), End: int(b) + 1}) }

// Concat returns a node matching left followed by right.
func Concat(left, right *Node) *Node { return &Node{Kind: KindConcat, Left: left, Right: right} }

// Alt returns a node matching left or right.
func Alt(left, right *Node) *Node { return &Node{Kind: KindAlt, Left: left, Right: right} }

// Star returns a node matching zero or more repetitions of n.
func Star(n *Node) *Node { return &Node{Kind: KindStar, Left: n} }

// Capture returns a node matching n and recording it as group.
func Capture(group int, n *Node) *Node { return &Node{Kind: KindCapture, Left: n, Group: group} }

func (n *Node) String() string {
	switch n.Kind {
	case KindEmpty:
		return "empty"
	case KindInterval:
		return n.Range.String()
	case KindConcat, KindAlt:
		return fmt.Sprintf("%s(%s,%s)", n.Kind, n.Left, n.Right)
	case KindStar:
		return fmt.Sprintf("Star(%s)", n.Left)
	case KindCapture:
		return fmt.Sprintf("Capture%d(%s)", n.Group, n.Left)
	default:
		return "?"
	}
}
