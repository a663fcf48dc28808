// Package testing provides utilities for writing tests against a simulated
// kernel.
package testing

import (
	"flag"
	"io"
	"os"
	"testing"
	"time"

	"github.com/clktmr/kirq/debug"
	"github.com/clktmr/kirq/irq"
	"github.com/clktmr/kirq/sim"
)

// TestMain should be used as TestMain for tests of kernel packages.
func TestMain(m *testing.M) {
	flag.Parse()

	// Halt diagnostics are expected in tests provoking them.
	if !testing.Verbose() {
		debug.Output = io.Discard
	}

	os.Exit(m.Run())
}

// NewKernel returns a kernel in its origin phase, which is closed when tb
// finishes.
func NewKernel(tb testing.TB, cfg irq.Config) *sim.Kernel {
	tb.Helper()
	k := sim.New(cfg)
	tb.Cleanup(k.Close)
	return k
}

// StartKernel is like NewKernel, but the kernel is already running.
func StartKernel(tb testing.TB, cfg irq.Config) *sim.Kernel {
	tb.Helper()
	k := NewKernel(tb, cfg)
	k.Start()
	return k
}

// WaitIdle fails the test if k doesn't become idle within a few seconds.
func WaitIdle(tb testing.TB, k *sim.Kernel) {
	tb.Helper()
	if !k.WaitIdle(5 * time.Second) {
		tb.Fatal("kernel didn't become idle")
	}
}

// Halts runs fn and returns the message it halted the kernel with. It fails
// the test if fn returns normally.
func Halts(tb testing.TB, fn func()) (message string) {
	tb.Helper()
	defer func() {
		r := recover()
		h, ok := r.(*debug.Halt)
		if !ok {
			if r != nil {
				panic(r)
			}
			tb.Fatal("expected kernel halt")
		}
		message = h.Message
	}()
	fn()
	return
}
