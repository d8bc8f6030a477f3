package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sleigh/preprocess"
	"sleigh/sleighlog"
	"sleigh/sleighparser"
)

// parseCmd preprocesses then parses a spec file and prints a summary of
// the resulting *spec.Spec, the cheapest way to sanity-check a spec file
// end to end without also decoding any bytes against it.
type parseCmd struct {
	dir  string
	file string
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "parse a SLEIGH spec file and summarize it" }
func (*parseCmd) Usage() string {
	return `sleighctl parse -dir DIR -file FILE:
  Preprocess and parse FILE (searched under DIR), printing a summary of its
  spaces, tokens, contexts, macros and constructors.
`
}

func (c *parseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", ".", "directory the spec file and its includes live under")
	f.StringVar(&c.file, "file", "", "spec file to parse")
}

func (c *parseCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := sleighlog.New("parse")
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "💥 -file is required")
		return subcommands.ExitUsageError
	}

	text, err := preprocess.Preprocess(c.dir, c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	log.Tracef("preprocessed %d bytes from %s", len(text), c.file)

	sp, err := sleighparser.Parse(text)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("endianness: %v, alignment: %d\n", sp.Endianness, sp.Alignment)
	fmt.Printf("spaces: %d, registers: %d, tokens: %d, contexts: %d\n",
		len(sp.Spaces), len(sp.Registers), len(sp.Tokens), len(sp.Contexts))
	fmt.Printf("pcodeops: %d, macros: %d, constructors: %d\n",
		len(sp.PCodeOps), len(sp.Macros), len(sp.Constructors))
	tables := map[string]int{}
	for _, c := range sp.Constructors {
		tables[c.Header.Table]++
	}
	for table, n := range tables {
		fmt.Printf("  table %q: %d constructor(s)\n", table, n)
	}
	return subcommands.ExitSuccess
}
