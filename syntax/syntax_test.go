package syntax

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alttpo/readtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentSyntax = `
strict: true
whitespace: ascii
bufferSize: 8
macros:
  - char: "("
    kind: accumulator
    token: ")"
  - char: ")"
    kind: single
  - char: newline
    kind: lines
  - char: ";"
    kind: lua
    script: |
      return function(r)
        while true do
          local c = r.next()
          if c == nil then return nil end
          if c == "\n" then
            r.unread(c)
            return nil
          end
        end
      end
`

func readAll(t *testing.T, r *readtable.ReadTable) []string {
	var got []string
	for {
		n, err := r.Read()
		if err == io.EOF {
			return got
		}
		require.NoError(t, err)
		got = append(got, n.String())
	}
}

func TestParseAndInstall(t *testing.T) {
	cfg, err := Parse([]byte(commentSyntax))
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 8, cfg.BufferSize)
	require.Len(t, cfg.Macros, 4)
	assert.Len(t, cfg.Options(), 3)

	r := readtable.NewString("(a ; ignored (\n b)\n; tail\nc", cfg.Options()...)
	b, err := cfg.Install(r)
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.Lines)
	require.NotNil(t, b.Lua)
	assert.Equal(t, []string{"(a b)", "c"}, readAll(t, r))
	assert.Equal(t, 4, b.Lines.Line())
}

func TestLisp(t *testing.T) {
	r := readtable.NewString("(foo (eggs (scrambed (stuff) suggests) but) and spam)\n", Lisp.Options()...)
	b, err := Lisp.Install(r)
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Lua)
	assert.Equal(t, []string{"(foo (eggs (scrambed (stuff) suggests) but) and spam)"}, readAll(t, r))
	assert.Equal(t, 2, b.Lines.Line())
}

func TestSingleDefaultsToChar(t *testing.T) {
	cfg := &Config{Macros: []MacroConfig{{Char: "space", Kind: KindSingle}}}
	r := readtable.NewString("a b")
	_, err := cfg.Install(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", " ", "b"}, readAll(t, r))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "long char",
			doc:  "macros: [{char: ab, kind: single}]",
			want: ErrBadChar,
		},
		{
			name: "empty char",
			doc:  "macros: [{char: '', kind: single}]",
			want: ErrBadChar,
		},
		{
			name: "unknown kind",
			doc:  "macros: [{char: x, kind: reverse}]",
			want: ErrUnknownKind,
		},
		{
			name: "missing stop token",
			doc:  "macros: [{char: '[', kind: accumulator}]",
			want: ErrNoStopToken,
		},
		{
			name: "unknown whitespace",
			doc:  "whitespace: ebcdic",
			want: ErrUnknownWhitespace,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Parse([]byte("macros: {"))
	assert.Error(t, err)
}

func TestInstallBadScript(t *testing.T) {
	for _, script := range []string{"return 1", "local x = 1", "this is not lua"} {
		cfg := &Config{Macros: []MacroConfig{{Char: ";", Kind: KindLua, Script: script}}}
		b, err := cfg.Install(readtable.NewString(""))
		assert.Error(t, err, script)
		assert.Nil(t, b)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syntax.yaml")
	require.NoError(t, os.WriteFile(path, []byte(commentSyntax), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Macros, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
