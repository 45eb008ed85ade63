package readtable

import (
	"errors"
	"strings"
)

type Kind int

var (
	ErrPushBackFull = errors.New("pushback buffer full")
	ErrPushBackEOF  = errors.New("cannot push back end of input")
	ErrSourceFault  = errors.New("source read failed")
	ErrUnterminated = errors.New("unterminated sequence")
)

const (
	KindAtom Kind = iota
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindSequence:
		return "sequence"
	}
	return "unknown"
}

// Node is a value produced by a ReadTable: either an atom holding the text
// of the consumed codepoints or an ordered sequence of nodes.
type Node struct {
	Kind
	Text string
	List []*Node
}

func Atom(s string) *Node {
	return &Node{
		Kind: KindAtom,
		Text: s,
		List: nil,
	}
}

func Sequence(children ...*Node) *Node {
	if children == nil {
		children = make([]*Node, 0)
	}
	return &Node{
		Kind: KindSequence,
		Text: "",
		List: children,
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Text: n.Text}
	if n.List != nil {
		c.List = make([]*Node, len(n.List))
		for i, child := range n.List {
			c.List[i] = child.Clone()
		}
	}
	return c
}

// Equal reports whether n and o hold the same value. Two nil nodes are equal.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}

	switch n.Kind {
	case KindAtom:
		return n.Text == o.Text
	case KindSequence:
		if len(n.List) != len(o.List) {
			return false
		}
		for i := range n.List {
			if !n.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}

	return false
}

func (n *Node) String() string {
	var sb strings.Builder
	n.appendToBuilder(&sb)
	return sb.String()
}

func (n *Node) appendToBuilder(sb *strings.Builder) {
	if n == nil {
		return
	}

	switch n.Kind {
	case KindSequence:
		sb.WriteRune('(')
		for i, c := range n.List {
			c.appendToBuilder(sb)
			if i < len(n.List)-1 {
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune(')')
	case KindAtom:
		sb.WriteString(n.Text)
	}
}
