// Command sleighctl is a thin CLI consumer of the sleigh library: it does
// not implement any disassembly semantics itself, only wires the library
// entry points to four subcommands (preprocess, parse, match, repl).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&preprocessCmd{}, "sleigh")
	subcommands.Register(&parseCmd{}, "sleigh")
	subcommands.Register(&matchCmd{}, "sleigh")
	subcommands.Register(&sleighReplCmd{}, "sleigh")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
