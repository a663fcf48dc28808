package sim_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/clktmr/kirq/irq"
	"github.com/clktmr/kirq/sched"
	"github.com/clktmr/kirq/sim"
)

func TestKernelLifecycle(t *testing.T) {
	k := sim.New(irq.DefaultConfig())
	if k.Sched.Phase() != sched.Origin {
		t.Fatal("expected origin phase")
	}
	if k.IRQ.Daemon() == sched.None {
		t.Fatal("no irq daemon")
	}

	var calls atomic.Int32
	asr := k.ASR("asr", 2, func() { calls.Add(1) })
	k.Start()

	if !k.WaitIdle(5 * time.Second) {
		t.Fatal("not idle after start")
	}
	if err := k.IRQ.Register(9, nil, asr, nil); err != nil {
		t.Fatal(err)
	}
	k.IRQ.Dispatch(9)
	if !k.WaitIdle(5 * time.Second) {
		t.Fatal("not idle after dispatch")
	}
	if calls.Load() != 1 {
		t.Fatalf("asr ran %d times", calls.Load())
	}

	k.Close()
	k.Close()
}
