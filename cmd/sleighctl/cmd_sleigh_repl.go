package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"sleigh/preprocess"
	"sleigh/sleighparser"
	"sleigh/spec"
	"sleigh/state"
)

// sleighReplCmd is an interactive front-end over a single loaded spec: each
// line is a hex byte string, matched against "instruction" and reported.
// It uses chzyer/readline for history and line editing (see DESIGN.md).
type sleighReplCmd struct {
	dir  string
	file string
}

func (*sleighReplCmd) Name() string     { return "repl" }
func (*sleighReplCmd) Synopsis() string { return "interactively match hex byte strings against a SLEIGH spec" }
func (*sleighReplCmd) Usage() string {
	return `sleighctl repl -dir DIR -file FILE:
  Load FILE once, then repeatedly read a hex byte string per line and
  report the matching "instruction" constructor.
`
}

func (c *sleighReplCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", ".", "directory the spec file and its includes live under")
	f.StringVar(&c.file, "file", "", "spec file to load")
}

func (c *sleighReplCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "💥 -file is required")
		return subcommands.ExitUsageError
	}

	text, err := preprocess.Preprocess(c.dir, c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	sp, err := sleighparser.Parse(text)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "sleigh> ",
		HistoryFile: "/tmp/sleighctl_history",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	runREPL(rl, sp)
	return subcommands.ExitSuccess
}

// runREPL re-reads a hex byte line at a time and reports the matched
// "instruction" constructor. A leading ":context NAME=VALUE" line updates
// a register field that persists across subsequent matches, within the
// same session's state.State.
func runREPL(rl *readline.Instance, sp *spec.Spec) {
	st := state.New(sp, nil)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		if rest, ok := strings.CutPrefix(line, ":context"); ok {
			name, value, ok := strings.Cut(strings.TrimSpace(rest), "=")
			if !ok {
				fmt.Fprintln(os.Stderr, "💥 usage: :context NAME=VALUE")
				continue
			}
			v, ok := new(big.Int).SetString(strings.TrimSpace(value), 0)
			if !ok {
				fmt.Fprintf(os.Stderr, "💥 invalid context value %q\n", value)
				continue
			}
			if err := st.SetContext(strings.TrimSpace(name), v); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}

		code, err := hex.DecodeString(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 invalid hex: %s\n", err)
			continue
		}
		ctor, err := st.WithCode(code).MatchConstructor("instruction")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if ctor == nil {
			fmt.Println("no match")
			continue
		}
		fmt.Printf("%s:%s\n", ctor.Header.Table, ctor.Header.Mnemonic)
	}
}
