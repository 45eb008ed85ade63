// Package lua lets Lua scripts run by github.com/yuin/gopher-lua define
// reader macros and consume the values a ReadTable produces.
//
// Nodes map to tables of the form {token="abc"} for atoms and
// {list={...}} for sequences.
package lua

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/alttpo/readtable"
	"github.com/yuin/gopher-lua"
)

var (
	ErrUnsupportedValue = errors.New("unsupported lua value")
	ErrNotOneChar       = errors.New("expected exactly one character")
)

// ModuleName is the global under which Install publishes its functions.
const ModuleName = "readtable"

func ToLValue(L *lua.LState, n *readtable.Node) lua.LValue {
	if n == nil {
		return lua.LNil
	}

	t := L.NewTable()
	switch n.Kind {
	case readtable.KindAtom:
		t.RawSetString("token", lua.LString(n.Text))
	case readtable.KindSequence:
		list := L.NewTable()
		for _, c := range n.List {
			list.Append(ToLValue(L, c))
		}
		t.RawSetString("list", list)
	}
	return t
}

// FromLValue converts a value returned by a Lua macro. nil means no value.
// Strings and numbers become atoms; tables are read in the ToLValue forms,
// and any other table is read as an array of values.
func FromLValue(v lua.LValue) (n *readtable.Node, err error) {
	if v == nil {
		return nil, nil
	}

	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTString, lua.LTNumber:
		return readtable.Atom(v.String()), nil
	case lua.LTTable:
		t := v.(*lua.LTable)
		if tok, ok := t.RawGetString("token").(lua.LString); ok {
			return readtable.Atom(string(tok)), nil
		}
		list, ok := t.RawGetString("list").(*lua.LTable)
		if !ok {
			list = t
		}
		n = readtable.Sequence()
		for i := 1; i <= list.Len(); i++ {
			var c *readtable.Node
			c, err = FromLValue(list.RawGetInt(i))
			if err != nil {
				return nil, err
			}
			if c != nil {
				n.List = append(n.List, c)
			}
		}
		return n, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Type())
}

// Macro is a reader macro implemented by a Lua function. The function is
// called with a reader table offering read(), finished(), next() and
// unread(c), and its return value is converted with FromLValue.
type Macro struct {
	L  *lua.LState
	Fn lua.LValue
}

func (m *Macro) Apply(s readtable.Source, t *readtable.ReadTable) (n *readtable.Node, err error) {
	var failed readFailure
	reader := newReader(m.L, s, t, &failed)

	err = m.L.CallByParam(
		lua.P{
			Fn:      m.Fn,
			NRet:    1,
			Protect: true,
		},
		reader,
	)
	if err != nil {
		if failed.err != nil {
			return failed.n, failed.err
		}
		return nil, err
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)
	return FromLValue(ret)
}

// readFailure keeps a failed read() so Apply can return the partial value
// and the original error instead of the Lua error raised for it.
type readFailure struct {
	n   *readtable.Node
	err error
}

func newReader(L *lua.LState, s readtable.Source, t *readtable.ReadTable, failed *readFailure) *lua.LTable {
	r := L.NewTable()

	r.RawSetString("read", L.NewFunction(func(L *lua.LState) int {
		n, err := t.Read()
		if err == io.EOF {
			L.Push(lua.LNil)
			return 1
		}
		if err != nil {
			failed.n, failed.err = n, err
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(ToLValue(L, n))
		return 1
	}))

	r.RawSetString("finished", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(t.IsFinished()))
		return 1
	}))

	r.RawSetString("next", L.NewFunction(func(L *lua.LState) int {
		c := s.Next()
		if c == readtable.EOF {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(string(c)))
		return 1
	}))

	// the character is the last argument so both r.unread(c) and
	// r:unread(c) work
	r.RawSetString("unread", L.NewFunction(func(L *lua.LState) int {
		c := checkChar(L, L.GetTop())
		L.Push(lua.LBool(s.PushBack(c) == nil))
		return 1
	}))

	return r
}

func checkChar(L *lua.LState, n int) rune {
	s := L.CheckString(n)
	c, err := Char(s)
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return c
}

// Char returns the only rune of s.
func Char(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrNotOneChar, s)
	}
	c, _ := utf8.DecodeRuneInString(s)
	return c, nil
}

// Install publishes the readtable module for scripts run on L, bound to t:
//
//	readtable.bind(c, fn)        bind fn as a Macro to c
//	readtable.single(c [, tok])  bind a SingleChar producing tok (default c)
//	readtable.list(open, stop)   bind an Accumulator to open and a SingleChar to stop
func Install(L *lua.LState, t *readtable.ReadTable) {
	mod := L.NewTable()

	mod.RawSetString("bind", L.NewFunction(func(L *lua.LState) int {
		c := checkChar(L, 1)
		fn := L.CheckFunction(2)
		t.AddMacro(c, &Macro{L: L, Fn: fn})
		return 0
	}))

	mod.RawSetString("single", L.NewFunction(func(L *lua.LState) int {
		c := checkChar(L, 1)
		tok := L.OptString(2, string(c))
		t.AddMacro(c, readtable.NewSingleChar(tok))
		return 0
	}))

	mod.RawSetString("list", L.NewFunction(func(L *lua.LState) int {
		open := checkChar(L, 1)
		stop := checkChar(L, 2)
		t.AddMacro(open, readtable.NewAccumulator(string(stop)))
		t.AddMacro(stop, readtable.NewSingleChar(string(stop)))
		return 0
	}))

	L.SetGlobal(ModuleName, mod)
}
