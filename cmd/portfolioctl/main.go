// Command portfolioctl runs the valuation engine from the command line
// against the same configuration and database as the server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&snapshotCmd{}, "valuation")
	commander.Register(&historyCmd{}, "valuation")
	commander.Register(&rebuildCmd{}, "valuation")
	commander.Register(&imageCmd{}, "items")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
