package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/google/subcommands"

	"sleigh/preprocess"
	"sleigh/sleighparser"
	"sleigh/state"
)

// matchCmd decodes one instruction window against a spec: it builds a
// state.State over the given bytes, applies any -context assignments, and
// reports which constructor (if any) matched.
type matchCmd struct {
	dir      string
	file     string
	bytesHex string
	table    string
	contexts contextFlags
}

// contextFlags collects repeated -context NAME=VALUE flags.
type contextFlags []string

func (c *contextFlags) String() string { return strings.Join(*c, ",") }
func (c *contextFlags) Set(v string) error {
	*c = append(*c, v)
	return nil
}

func (*matchCmd) Name() string     { return "match" }
func (*matchCmd) Synopsis() string { return "match a byte window against a SLEIGH spec's constructors" }
func (*matchCmd) Usage() string {
	return `sleighctl match -dir DIR -file FILE -bytes HEX [-table TABLE] [-context NAME=VALUE ...]:
  Parse FILE, then report the first constructor (in declaration order) in
  TABLE (default "instruction") whose constraint matches the given bytes.
`
}

func (c *matchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", ".", "directory the spec file and its includes live under")
	f.StringVar(&c.file, "file", "", "spec file to parse")
	f.StringVar(&c.bytesHex, "bytes", "", "instruction bytes, as hex (e.g. 90aa)")
	f.StringVar(&c.table, "table", "instruction", "table to match against")
	f.Var(&c.contexts, "context", "NAME=VALUE context register field assignment (repeatable)")
}

func (c *matchCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" || c.bytesHex == "" {
		fmt.Fprintln(os.Stderr, "💥 -file and -bytes are required")
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

	code, err := hex.DecodeString(c.bytesHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 invalid -bytes: %s\n", err)
		return subcommands.ExitUsageError
	}

	st := state.New(sp, code)
	for _, assignment := range c.contexts {
		name, value, ok := strings.Cut(assignment, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "💥 invalid -context %q, expected NAME=VALUE\n", assignment)
			return subcommands.ExitUsageError
		}
		v, ok := new(big.Int).SetString(strings.TrimSpace(value), 0)
		if !ok {
			fmt.Fprintf(os.Stderr, "💥 invalid context value %q\n", value)
			return subcommands.ExitUsageError
		}
		if err := st.SetContext(strings.TrimSpace(name), v); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}

	ctor, err := st.MatchConstructor(c.table)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if ctor == nil {
		fmt.Printf("no constructor in table %q matched\n", c.table)
		return subcommands.ExitSuccess
	}
	fmt.Printf("matched %s:%s\n", ctor.Header.Table, ctor.Header.Mnemonic)
	return subcommands.ExitSuccess
}
