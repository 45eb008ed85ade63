package readtable

import (
	"bufio"
	"io"
)

// EOF is the codepoint returned by a Source once input is exhausted.
const EOF rune = -1

// DefaultBufferSize is the pushback capacity of sources built by New.
const DefaultBufferSize = 50

// Source yields codepoints for a ReadTable.
//
// Once Next returns EOF the source is exhausted and keeps returning EOF,
// apart from codepoints pushed back afterwards. PushBack returns r to the
// front of the stream so the next call to Next yields it again.
type Source interface {
	Next() rune
	PushBack(r rune) error
}

type source struct {
	r    io.RuneReader
	back []rune // pushed back codepoints, top at the end
	size int
	done bool
	err  error
}

// NewSource wraps r in a Source able to hold size pushed back codepoints.
// Read errors other than io.EOF end the stream like io.EOF does; the first
// one is kept and reported by Err.
func NewSource(r io.Reader, size int) Source {
	if size < 1 {
		size = 1
	}
	rr, ok := r.(io.RuneReader)
	if !ok {
		rr = bufio.NewReader(r)
	}
	return &source{
		r:    rr,
		back: make([]rune, 0, size),
		size: size,
	}
}

func (s *source) Next() rune {
	if n := len(s.back); n > 0 {
		r := s.back[n-1]
		s.back = s.back[:n-1]
		return r
	}
	if s.done {
		return EOF
	}

	r, _, err := s.r.ReadRune()
	if err != nil {
		s.done = true
		if err != io.EOF {
			s.err = err
		}
		return EOF
	}
	return r
}

func (s *source) PushBack(r rune) error {
	if r == EOF {
		return ErrPushBackEOF
	}
	if len(s.back) >= s.size {
		return ErrPushBackFull
	}
	s.back = append(s.back, r)
	return nil
}

// Err returns the read error that ended the stream, or nil if the stream
// ended normally or has not ended.
func (s *source) Err() error {
	return s.err
}
