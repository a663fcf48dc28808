package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clktmr/kirq/tools/irqsim"
)

const usageString = `kirq is a tool for development against the kirq interrupt core.

Usage:

	%s <command> [arguments]

The commands are:

	sim      run a script against a simulated kernel
`

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "sim":
		irqsim.Main(flag.Args())
	default:
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
