package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"sleigh/preprocess"
)

// preprocessCmd runs only the include/macro-expansion pass and prints the
// resulting text, useful for debugging a spec file's @if/@include tree
// without also parsing it.
type preprocessCmd struct {
	dir  string
	file string
}

func (*preprocessCmd) Name() string     { return "preprocess" }
func (*preprocessCmd) Synopsis() string { return "run the SLEIGH preprocessor and print the expanded text" }
func (*preprocessCmd) Usage() string {
	return `sleighctl preprocess -dir DIR -file FILE:
  Resolve @include/@define/@if directives in FILE (searched under DIR) and
  print the expanded source to stdout.
`
}

func (c *preprocessCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", ".", "directory the spec file and its includes live under")
	f.StringVar(&c.file, "file", "", "spec file to preprocess")
}

func (c *preprocessCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "💥 -file is required")
		return subcommands.ExitUsageError
	}
	text, err := preprocess.Preprocess(c.dir, c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Print(text)
	return subcommands.ExitSuccess
}
