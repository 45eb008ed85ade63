package readtable

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
)

// ReadTable reads values from a Source, dispatching bound codepoints to
// their Macro before any whitespace test is made.
//
// A ReadTable is not safe for concurrent use. Macros invoked by Read may call
// Read recursively.
type ReadTable struct {
	src      Source
	finished bool
	macros   map[rune]Macro

	isSpace    func(r rune) bool
	bufferSize int
	strict     bool
	log        *slog.Logger
}

// Option configures a ReadTable.
type Option func(t *ReadTable)

// WithLogger makes the table log swallowed source problems to l. The default
// logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(t *ReadTable) {
		if l != nil {
			t.log = l
		}
	}
}

// WithStrict makes Read report source faults as ErrSourceFault and makes
// accumulators report missing stop tokens as ErrUnterminated instead of
// silently treating both as the end of input.
func WithStrict() Option {
	return func(t *ReadTable) {
		t.strict = true
	}
}

// WithWhitespace replaces unicode.IsSpace as the whitespace test.
func WithWhitespace(fn func(r rune) bool) Option {
	return func(t *ReadTable) {
		if fn != nil {
			t.isSpace = fn
		}
	}
}

// WithBufferSize sets the pushback capacity of the Source built by New and
// NewString. It has no effect on NewFromSource.
func WithBufferSize(n int) Option {
	return func(t *ReadTable) {
		t.bufferSize = n
	}
}

func newTable(opts []Option) *ReadTable {
	t := &ReadTable{
		macros:     make(map[rune]Macro),
		isSpace:    unicode.IsSpace,
		bufferSize: DefaultBufferSize,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func New(r io.Reader, opts ...Option) *ReadTable {
	t := newTable(opts)
	t.src = NewSource(r, t.bufferSize)
	return t
}

func NewString(s string, opts ...Option) *ReadTable {
	return New(strings.NewReader(s), opts...)
}

// NewFromSource builds a table that reads from src. The table owns src from
// then on.
func NewFromSource(src Source, opts ...Option) *ReadTable {
	t := newTable(opts)
	t.src = src
	return t
}

// AddMacro binds m to r, replacing any previous binding of r.
func (t *ReadTable) AddMacro(r rune, m Macro) {
	t.macros[r] = m
}

// Macro returns the macro bound to r.
func (t *ReadTable) Macro(r rune) (m Macro, ok bool) {
	m, ok = t.macros[r]
	return
}

// Strict reports whether the table was built WithStrict.
func (t *ReadTable) Strict() bool {
	return t.strict
}

// Err returns the source fault that ended input, if the source reports one.
func (t *ReadTable) Err() error {
	if e, ok := t.src.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

func (t *ReadTable) next() rune {
	r := t.src.Next()
	if r == EOF {
		if !t.finished {
			if err := t.Err(); err != nil {
				t.log.Warn("source fault treated as end of input", "error", err)
			}
		}
		t.finished = true
	}
	return r
}

func (t *ReadTable) unread(r rune) {
	if err := t.src.PushBack(r); err != nil {
		t.log.Debug("pushback failed", "rune", string(r), "error", err)
	}
}

// IsFinished reports whether input is exhausted. It never consumes a
// codepoint, and once it reports true it always does.
func (t *ReadTable) IsFinished() bool {
	if !t.finished {
		r := t.next()
		if r != EOF {
			t.unread(r)
		}
	}
	return t.finished
}

func (t *ReadTable) endOfInput() error {
	if t.strict {
		if err := t.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrSourceFault, err)
		}
	}
	return io.EOF
}

// Read returns the next value. When input is exhausted it returns nil and
// io.EOF, or an ErrSourceFault in strict mode if the source failed. Read
// never returns a nil node with a nil error.
func (t *ReadTable) Read() (n *Node, err error) {
	for {
		if t.IsFinished() {
			return nil, t.endOfInput()
		}

		r := t.next()
		if r == EOF {
			continue
		}

		if m, ok := t.macros[r]; ok {
			n, err = m.Apply(t.src, t)
			if err == io.EOF {
				return nil, t.endOfInput()
			}
			if err != nil || n != nil {
				return
			}
			continue
		}

		if t.isSpace(r) {
			continue
		}

		t.unread(r)
		return t.readAtom(), nil
	}
}

func (t *ReadTable) isDelimiter(r rune) bool {
	if _, ok := t.macros[r]; ok {
		return true
	}
	return t.isSpace(r)
}

func (t *ReadTable) readAtom() *Node {
	var sb strings.Builder
	for {
		r := t.next()
		if r == EOF {
			break
		}
		if t.isDelimiter(r) {
			// the delimiter belongs to the next Read
			t.unread(r)
			break
		}
		sb.WriteRune(r)
	}
	return Atom(sb.String())
}
