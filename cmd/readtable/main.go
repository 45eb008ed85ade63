package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alttpo/readtable"
	rtlua "github.com/alttpo/readtable/lua"
	"github.com/alttpo/readtable/syntax"
	"github.com/spf13/cobra"
	"github.com/yuin/gopher-lua"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cobra.CheckErr(NewCmd().ExecuteContext(context.Background()))
}

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "readtable [flags] [file ...]",
		Short:         "readtable prints the values read from files or stdin",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: doRead,
	}
	cmd.Flags().StringP("syntax", "s", "", "`<path>` to a YAML syntax file (default: lisp)")
	cmd.Flags().StringP("lua", "l", "", "`<path>` to a Lua script run with the readtable module installed")
	cmd.Flags().Bool("strict", false, "fail on source faults and unterminated sequences")
	cmd.Flags().BoolP("lines", "n", false, "prefix every value with the line it ended on")
	cmd.Flags().String("log-file", "", "`<path>` of the log file, stderr if empty")
	cmd.Flags().String("log-level", "WARN", "DEBUG,INFO,WARN,ERROR")
	return cmd
}

func newLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	file, _ := cmd.Flags().GetString("log-file")
	levelName, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, nil, err
	}

	var w io.Writer = cmd.ErrOrStderr()
	closer := func() {}
	if file != "" {
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			LocalTime:  true,
		}
		w = lj
		closer = func() { lj.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

type input struct {
	name string
	r    io.Reader
}

func openInputs(cmd *cobra.Command, args []string) ([]input, func(), error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	inputs := make([]input, 0, len(args))
	for _, name := range args {
		if name == "-" {
			inputs = append(inputs, input{name: "<stdin>", r: cmd.InOrStdin()})
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		inputs = append(inputs, input{name: name, r: f})
	}
	return inputs, closeAll, nil
}

func doRead(cmd *cobra.Command, args []string) error {
	log, logCloser, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logCloser()

	cfg := &syntax.Lisp
	if path, _ := cmd.Flags().GetString("syntax"); path != "" {
		if cfg, err = syntax.Load(path); err != nil {
			return err
		}
	}
	script, _ := cmd.Flags().GetString("lua")
	strict, _ := cmd.Flags().GetBool("strict")
	showLines, _ := cmd.Flags().GetBool("lines")

	inputs, closeInputs, err := openInputs(cmd, args)
	if err != nil {
		return err
	}
	defer closeInputs()

	for _, in := range inputs {
		opts := append(cfg.Options(), readtable.WithLogger(log.With("input", in.name)))
		if strict {
			opts = append(opts, readtable.WithStrict())
		}
		if err = readInput(cmd, in, cfg, script, showLines, opts); err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
	}
	return nil
}

func readInput(cmd *cobra.Command, in input, cfg *syntax.Config, script string, showLines bool, opts []readtable.Option) error {
	t := readtable.New(in.r, opts...)

	b, err := cfg.Install(t)
	if err != nil {
		return err
	}
	defer b.Close()

	if script != "" {
		L := lua.NewState(lua.Options{})
		defer L.Close()
		rtlua.Install(L, t)
		if err = L.DoFile(script); err != nil {
			return err
		}
	}

	lines := b.Lines
	if showLines && lines == nil {
		lines = countLines(t)
	}

	out := cmd.OutOrStdout()
	for {
		n, err := t.Read()
		if err == io.EOF {
			return nil
		}
		if n != nil {
			if showLines {
				fmt.Fprintf(out, "%d\t%s\n", lines.Line(), n.String())
			} else {
				fmt.Fprintln(out, n.String())
			}
		}
		if err != nil {
			return err
		}
	}
}

// countLines binds a LineCounter to '\n', keeping any macro the syntax
// already bound there: the counter runs first, then the original macro.
func countLines(t *readtable.ReadTable) *readtable.LineCounter {
	prev, ok := t.Macro('\n')
	if counter, isCounter := prev.(*readtable.LineCounter); ok && isCounter {
		return counter
	}

	lines := readtable.NewLineCounter()
	if !ok {
		t.AddMacro('\n', lines)
		return lines
	}
	t.AddMacro('\n', readtable.MacroFunc(func(s readtable.Source, t *readtable.ReadTable) (*readtable.Node, error) {
		lines.Apply(s, t)
		return prev.Apply(s, t)
	}))
	return lines
}
