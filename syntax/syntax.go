// Package syntax loads read table configurations from YAML documents.
//
//	strict: false
//	whitespace: unicode   # unicode | ascii
//	bufferSize: 50
//	macros:
//	  - char: "("
//	    kind: accumulator
//	    token: ")"
//	  - char: ")"
//	    kind: single
//	  - char: newline
//	    kind: lines
//	  - char: ";"
//	    kind: lua
//	    script: |
//	      return function(r) ... end
package syntax

import (
	"errors"
	"fmt"
	"os"

	"github.com/alttpo/readtable"
	rtlua "github.com/alttpo/readtable/lua"
	"github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownKind       = errors.New("unknown macro kind")
	ErrUnknownWhitespace = errors.New("unknown whitespace class")
	ErrBadChar           = errors.New("macro char must be a single character")
	ErrBadScript         = errors.New("lua script must return a function")
	ErrNoStopToken       = errors.New("accumulator needs a stop token")
)

const (
	KindSingle      = "single"
	KindAccumulator = "accumulator"
	KindLines       = "lines"
	KindLua         = "lua"
)

type Config struct {
	Strict     bool          `yaml:"strict"`
	Whitespace string        `yaml:"whitespace"`
	BufferSize int           `yaml:"bufferSize"`
	Macros     []MacroConfig `yaml:"macros"`
}

type MacroConfig struct {
	Char   string `yaml:"char"`
	Kind   string `yaml:"kind"`
	Token  string `yaml:"token"`
	Script string `yaml:"script"`
}

// Lisp binds parentheses to lists and counts lines on '\n'.
var Lisp = Config{
	Macros: []MacroConfig{
		{Char: "(", Kind: KindAccumulator, Token: ")"},
		{Char: ")", Kind: KindSingle},
		{Char: "newline", Kind: KindLines},
	},
}

var charNames = map[string]rune{
	"newline": '\n',
	"tab":     '\t',
	"space":   ' ',
	"return":  '\r',
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.whitespace(); err != nil {
		return err
	}
	for i, m := range c.Macros {
		if _, err := m.char(); err != nil {
			return fmt.Errorf("macros[%d]: %w", i, err)
		}
		switch m.Kind {
		case KindAccumulator:
			if m.Token == "" {
				return fmt.Errorf("macros[%d]: %w", i, ErrNoStopToken)
			}
		case KindSingle, KindLines, KindLua:
		default:
			return fmt.Errorf("macros[%d]: %w %q", i, ErrUnknownKind, m.Kind)
		}
	}
	return nil
}

func isASCIISpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f' || r == '\r'
}

func (c *Config) whitespace() (func(rune) bool, error) {
	switch c.Whitespace {
	case "", "unicode":
		return nil, nil
	case "ascii":
		return isASCIISpace, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownWhitespace, c.Whitespace)
}

func (m MacroConfig) char() (rune, error) {
	if r, ok := charNames[m.Char]; ok {
		return r, nil
	}
	r, err := rtlua.Char(m.Char)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadChar, m.Char)
	}
	return r, nil
}

// Options returns the table options the configuration asks for.
func (c *Config) Options() []readtable.Option {
	var opts []readtable.Option
	if c.Strict {
		opts = append(opts, readtable.WithStrict())
	}
	if fn, _ := c.whitespace(); fn != nil {
		opts = append(opts, readtable.WithWhitespace(fn))
	}
	if c.BufferSize > 0 {
		opts = append(opts, readtable.WithBufferSize(c.BufferSize))
	}
	return opts
}

// Bindings holds the stateful pieces created by Install.
type Bindings struct {
	// Lines is the counter of the last "lines" macro, or nil.
	Lines *readtable.LineCounter
	// Lua is created on the first "lua" macro. Close releases it.
	Lua *lua.LState
}

func (b *Bindings) Close() {
	if b.Lua != nil {
		b.Lua.Close()
		b.Lua = nil
	}
}

// Install binds every configured macro on t, in order.
func (c *Config) Install(t *readtable.ReadTable) (b *Bindings, err error) {
	if err = c.Validate(); err != nil {
		return nil, err
	}

	b = &Bindings{}
	defer func() {
		if err != nil {
			b.Close()
			b = nil
		}
	}()

	for i, mc := range c.Macros {
		var r rune
		r, err = mc.char()
		if err != nil {
			err = fmt.Errorf("macros[%d]: %w", i, err)
			return
		}
		var m readtable.Macro
		m, err = b.macro(r, mc)
		if err != nil {
			err = fmt.Errorf("macros[%d]: %w", i, err)
			return
		}
		t.AddMacro(r, m)
	}
	return
}

func (b *Bindings) macro(r rune, mc MacroConfig) (readtable.Macro, error) {
	switch mc.Kind {
	case KindSingle:
		tok := mc.Token
		if tok == "" {
			tok = string(r)
		}
		return readtable.NewSingleChar(tok), nil
	case KindAccumulator:
		return readtable.NewAccumulator(mc.Token), nil
	case KindLines:
		b.Lines = readtable.NewLineCounter()
		return b.Lines, nil
	case KindLua:
		if b.Lua == nil {
			b.Lua = lua.NewState(lua.Options{})
		}
		top := b.Lua.GetTop()
		if err := b.Lua.DoString(mc.Script); err != nil {
			return nil, err
		}
		if b.Lua.GetTop() == top {
			return nil, ErrBadScript
		}
		fn := b.Lua.Get(-1)
		b.Lua.SetTop(top)
		if fn.Type() != lua.LTFunction {
			return nil, ErrBadScript
		}
		return &rtlua.Macro{L: b.Lua, Fn: fn}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, mc.Kind)
}
