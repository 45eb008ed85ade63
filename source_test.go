package readtable

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePushBack(t *testing.T) {
	s := NewSource(strings.NewReader("abc"), 2)

	assert.Equal(t, 'a', s.Next())
	assert.Equal(t, 'b', s.Next())
	require.NoError(t, s.PushBack('b'))
	require.NoError(t, s.PushBack('a'))
	assert.ErrorIs(t, s.PushBack('z'), ErrPushBackFull)

	assert.Equal(t, 'a', s.Next())
	assert.Equal(t, 'b', s.Next())
	assert.Equal(t, 'c', s.Next())
	assert.Equal(t, EOF, s.Next())
	assert.Equal(t, EOF, s.Next())

	assert.ErrorIs(t, s.PushBack(EOF), ErrPushBackEOF)
	require.NoError(t, s.PushBack('c'))
	assert.Equal(t, 'c', s.Next())
	assert.Equal(t, EOF, s.Next())
}

func TestSourceDefaultBuffer(t *testing.T) {
	s := NewSource(strings.NewReader(""), DefaultBufferSize)
	for i := 0; i < DefaultBufferSize; i++ {
		require.NoError(t, s.PushBack('x'))
	}
	assert.ErrorIs(t, s.PushBack('x'), ErrPushBackFull)
}

func TestZeroBufferSize(t *testing.T) {
	// a zero-size request still leaves room for the single pushback Read needs
	r := NewString(" foo bar", WithBufferSize(0))
	n, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "foo", n.Text)
	n, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, "bar", n.Text)
}

// refusingSource never accepts a pushed back codepoint.
type refusingSource struct {
	Source
}

func (refusingSource) PushBack(rune) error {
	return ErrPushBackFull
}

func TestSwallowedPushBack(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewFromSource(
		refusingSource{NewSource(strings.NewReader(" foo bar"), DefaultBufferSize)},
		WithLogger(log),
	)

	var got []string
	require.NotPanics(t, func() {
		for {
			n, err := r.Read()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			require.NotNil(t, n)
			got = append(got, n.Text)
		}
	})

	// every probe and delimiter pushback is lost, so codepoints drop out
	assert.Equal(t, []string{"oo", "r"}, got)
	assert.True(t, r.IsFinished())
	assert.Contains(t, logs.String(), "pushback failed")
}
