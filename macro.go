package readtable

import (
	"io"
	"slices"
)

// Macro is invoked by a ReadTable when it reads the codepoint the macro is
// bound to. s is the table's source, positioned right after that codepoint.
//
// Apply returns a non-nil node to produce a value, nil and a nil error to
// produce nothing and let the table keep scanning, or io.EOF to signal the
// end of input. Any other error aborts the Read that invoked the macro.
type Macro interface {
	Apply(s Source, t *ReadTable) (n *Node, err error)
}

// MacroFunc adapts an ordinary function to the Macro interface.
type MacroFunc func(s Source, t *ReadTable) (*Node, error)

func (f MacroFunc) Apply(s Source, t *ReadTable) (*Node, error) {
	return f(s, t)
}

// SingleChar produces a copy of its Token every time it is applied. It holds
// no state and may be shared between tables.
type SingleChar struct {
	Token *Node
}

func NewSingleChar(token string) *SingleChar {
	return &SingleChar{Token: Atom(token)}
}

func (m *SingleChar) Apply(Source, *ReadTable) (*Node, error) {
	return m.Token.Clone(), nil
}

// Accumulator collects the values read after it into a sequence until a
// value equal to Stop is read. The stop value itself is dropped.
type Accumulator struct {
	Stop *Node
}

func NewAccumulator(stop string) *Accumulator {
	return &Accumulator{Stop: Atom(stop)}
}

// Apply returns the collected sequence. If input runs out before the stop
// value the partial sequence is returned, along with ErrUnterminated when
// the table is strict.
func (m *Accumulator) Apply(_ Source, t *ReadTable) (n *Node, err error) {
	if t.IsFinished() {
		return nil, nil
	}

	n = Sequence()
	for !t.IsFinished() {
		var child *Node
		child, err = t.Read()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			// keep what a failing nested macro managed to collect
			if child != nil {
				n.List = append(n.List, child)
			}
			return
		}
		if m.Stop.Equal(child) {
			return n, nil
		}

		n.List = append(n.List, child)
	}

	if t.Strict() {
		err = ErrUnterminated
	}
	return
}

// Observer is the handle returned by LineCounter.Register.
type Observer struct {
	fn func(line int)
}

// LineCounter counts the codepoints it is bound to, normally '\n'. It never
// produces a value. A LineCounter holds state and belongs to one table.
type LineCounter struct {
	line      int
	observers []*Observer
}

func NewLineCounter() *LineCounter {
	return &LineCounter{line: 1}
}

func (m *LineCounter) Line() int {
	return m.line
}

// Register adds fn to the observers notified with the new line number each
// time the counter advances. Observers run in registration order.
func (m *LineCounter) Register(fn func(line int)) *Observer {
	o := &Observer{fn: fn}
	m.observers = append(m.observers, o)
	return o
}

// Unregister removes o. Removing an observer that is not registered does
// nothing.
func (m *LineCounter) Unregister(o *Observer) {
	for i, c := range m.observers {
		if c == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// Reset puts the counter back on line 1 and drops all observers.
func (m *LineCounter) Reset() {
	m.line = 1
	m.observers = nil
}

func (m *LineCounter) Apply(Source, *ReadTable) (*Node, error) {
	m.line++
	// observers may unregister themselves while being notified
	for _, o := range slices.Clone(m.observers) {
		o.fn(m.line)
	}
	return nil, nil
}
