// Package irqsim implements the sim command, which drives the interrupt core
// of a simulated kernel from a script.
package irqsim

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/clktmr/kirq/irq"
)

const usageString = `Interrupt core simulator.

Usage: %s [flags] [script]

Reads commands from script or stdin, one per line:

	start                         leave the origin phase, run threads
	thread <name> [-prio n]       create a suspended ASR thread
	register <irq> [-isr none|done|asr|post] [-asr thread] [-arg value]
	         [-req request] [-prio n]
	release <irq>
	dispatch <irq>...             fire interrupts, one after another
	storm <irq>... [-n count]     fire interrupts concurrently
	post <request> <prio> [arg]   queue a request for the irq daemon
	cancel <request>
	sync                          start and wait until all work ran
	dump                          print vectors and pending requests

`

var (
	flags = flag.NewFlagSet("sim", flag.ExitOnError)

	defaults = irq.DefaultConfig()
	vectors  = flags.Int("vectors", defaults.Vectors, "vector pool capacity")
	lines    = flags.Int("lines", defaults.Lines, "interrupt number space")
	queue    = flags.Int("queue", defaults.DaemonQueue, "maximum pending requests")
	nodaemon = flags.Bool("nodaemon", false, "run without irq daemon")
	digest   = flags.Bool("digest", false, "print the CRC-8 of the event trace")
	nocolor  = flags.Bool("nocolor", false, "disable colored output")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "sim")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	var in io.Reader = os.Stdin
	switch flags.NArg() {
	case 0:
	case 1:
		f, err := os.Open(flags.Arg(0))
		if err != nil {
			log.Fatalln(err)
		}
		defer f.Close()
		in = f
	default:
		flags.Usage()
		os.Exit(1)
	}

	if *nocolor {
		color.NoColor = true
	}

	cfg := irq.Config{
		Vectors:        *vectors,
		Lines:          *lines,
		Daemon:         !*nodaemon,
		DaemonPriority: defaults.DaemonPriority,
		DaemonQueue:    *queue,
	}
	if cfg.Vectors <= 0 || cfg.Lines <= 0 || cfg.DaemonQueue <= 0 {
		log.Fatalln("sim: table sizes must be positive")
	}

	s := New(cfg, color.Output)
	err := s.Run(in)
	if err == nil {
		err = s.sync()
	}
	s.Close()
	if err != nil {
		log.Fatalln("sim:", err)
	}

	if *digest {
		fmt.Printf("digest 0x%02x\n", s.Digest())
	}
}
