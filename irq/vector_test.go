package irq_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/clktmr/kirq/irq"
	"github.com/clktmr/kirq/sched"
	kirqtesting "github.com/clktmr/kirq/testing"
	"golang.org/x/sync/errgroup"
)

func counter(calls *int) irq.ISR {
	return func(arg any) irq.Result {
		*calls++
		return irq.Done
	}
}

func TestDispatchRunsHandlerOnce(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())

	for n := range irq.IRQ(k.IRQ.Config().Lines) {
		var got []any
		isr := func(arg any) irq.Result {
			got = append(got, arg)
			return irq.Done
		}
		if err := k.IRQ.Register(n, isr, sched.None, fmt.Sprint("arg", n)); err != nil {
			t.Fatal(n, err)
		}
		k.IRQ.Dispatch(n)
		if len(got) != 1 || got[0] != fmt.Sprint("arg", n) {
			t.Fatalf("irq %d: handler calls %v", n, got)
		}
		if err := k.IRQ.Release(n); err != nil {
			t.Fatal(n, err)
		}
	}
}

func TestRegisterUpdatesInPlace(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())
	asr := k.ASR("asr", 3, nil)

	var first, second int
	if err := k.IRQ.Register(12, counter(&first), sched.None, "a"); err != nil {
		t.Fatal(err)
	}
	before, _ := k.IRQ.Vector(12)

	if err := k.IRQ.Register(12, counter(&second), asr, "b"); err != nil {
		t.Fatal(err)
	}
	after, _ := k.IRQ.Vector(12)

	if before.Slot != after.Slot {
		t.Fatalf("update moved vector from slot %d to %d", before.Slot, after.Slot)
	}
	if n := len(k.IRQ.Vectors()); n != 1 {
		t.Fatalf("%d vectors allocated", n)
	}
	if after.Arg != "b" || after.ASR != asr || after.State != irq.Ready {
		t.Fatalf("vector not updated: %+v", after)
	}

	k.IRQ.Dispatch(12)
	if first != 0 || second != 1 {
		t.Fatalf("calls first %d second %d", first, second)
	}
}

func TestPoolExhaustion(t *testing.T) {
	cfg := irq.DefaultConfig()
	cfg.Vectors = 4
	k := kirqtesting.NewKernel(t, cfg)

	calls := make([]int, cfg.Vectors)
	for i := range cfg.Vectors {
		if err := k.IRQ.Register(irq.IRQ(10+i), counter(&calls[i]), sched.None, nil); err != nil {
			t.Fatal(err)
		}
	}

	var extra int
	if err := k.IRQ.Register(30, counter(&extra), sched.None, nil); !errors.Is(err, irq.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	if _, ok := k.IRQ.Vector(30); ok {
		t.Fatal("failed registration left a vector")
	}

	for i := range cfg.Vectors {
		k.IRQ.Dispatch(irq.IRQ(10 + i))
		if calls[i] != 1 {
			t.Errorf("irq %d: %d calls", 10+i, calls[i])
		}
	}
	k.IRQ.Dispatch(30)
	if extra != 0 {
		t.Error("unregistered handler ran")
	}

	// A released vector is reused.
	if err := k.IRQ.Release(11); err != nil {
		t.Fatal(err)
	}
	if err := k.IRQ.Register(30, counter(&extra), sched.None, nil); err != nil {
		t.Fatal(err)
	}
	if info, _ := k.IRQ.Vector(30); info.Slot != 1 {
		t.Fatalf("expected slot 1, got %d", info.Slot)
	}
}

func TestReleaseWhileLocked(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())

	var releaseErr, registerErr error
	var state irq.VectorState
	isr := func(arg any) irq.Result {
		info, _ := k.IRQ.Vector(5)
		state = info.State
		releaseErr = k.IRQ.Release(5)
		registerErr = k.IRQ.Register(5, nil, sched.None, nil)
		return irq.Done
	}
	if err := k.IRQ.Register(5, isr, sched.None, nil); err != nil {
		t.Fatal(err)
	}

	k.IRQ.Dispatch(5)
	if state != irq.ReadyLocked {
		t.Errorf("state during dispatch %v", state)
	}
	if !errors.Is(releaseErr, irq.ErrLocked) {
		t.Errorf("release during dispatch: %v", releaseErr)
	}
	if !errors.Is(registerErr, irq.ErrLocked) {
		t.Errorf("register during dispatch: %v", registerErr)
	}

	if info, _ := k.IRQ.Vector(5); info.State != irq.Ready {
		t.Fatalf("state after dispatch %v", info.State)
	}
	if err := k.IRQ.Release(5); err != nil {
		t.Fatal("release after dispatch:", err)
	}
	if _, ok := k.IRQ.Vector(5); ok {
		t.Fatal("vector still mapped")
	}
}

func TestReleaseUnmapped(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())
	if err := k.IRQ.Release(3); !errors.Is(err, irq.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	if err := k.IRQ.Release(1000); !errors.Is(err, irq.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	if err := k.IRQ.Register(1000, nil, sched.None, nil); !errors.Is(err, irq.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
}

func TestDispatchUnmapped(t *testing.T) {
	k := kirqtesting.StartKernel(t, irq.DefaultConfig())
	asr := k.ASR("asr", 3, nil)

	var calls int
	k.IRQ.Register(1, counter(&calls), asr, nil)

	k.IRQ.Dispatch(2)
	k.IRQ.Dispatch(1000)
	kirqtesting.WaitIdle(t, k)

	if calls != 0 {
		t.Error("handler of another irq ran")
	}
	if n := k.Sched.Wakeups(asr); n != 0 {
		t.Errorf("asr woken %d times", n)
	}
	if n := k.Sched.Wakeups(k.IRQ.Daemon()); n != 0 {
		t.Errorf("daemon woken %d times", n)
	}
}

func TestHandlerRunsUnmasked(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())

	var masked bool
	var inner, outer int
	k.IRQ.Register(4, counter(&inner), sched.None, nil)
	k.IRQ.Register(3, func(arg any) irq.Result {
		outer++
		masked = k.Core.Masked()
		// A line of equal priority fires while the handler runs.
		k.IRQ.Dispatch(4)
		return irq.Done
	}, sched.None, nil)

	k.IRQ.Dispatch(3)
	if masked {
		t.Error("handler ran masked")
	}
	if outer != 1 || inner != 1 {
		t.Fatalf("outer %d inner %d", outer, inner)
	}
}

func TestRefireWhileLockedIsDropped(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())

	calls := 0
	k.IRQ.Register(6, func(arg any) irq.Result {
		calls++
		if calls == 1 {
			k.IRQ.Dispatch(6)
		}
		return irq.Done
	}, sched.None, nil)

	k.IRQ.Dispatch(6)
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	k.IRQ.Dispatch(6)
	if calls != 2 {
		t.Fatalf("handler ran %d times after unlock", calls)
	}
}

func TestASRWakeup(t *testing.T) {
	k := kirqtesting.StartKernel(t, irq.DefaultConfig())
	runs := make(chan struct{}, 16)
	asr := k.ASR("asr", 3, func() { runs <- struct{}{} })
	kirqtesting.WaitIdle(t, k)

	result := irq.Done
	k.IRQ.Register(7, func(arg any) irq.Result { return result }, asr, nil)

	k.IRQ.Dispatch(7)
	kirqtesting.WaitIdle(t, k)
	if n := k.Sched.Wakeups(asr); n != 0 {
		t.Fatalf("Done woke asr %d times", n)
	}

	result = irq.CallASR
	k.IRQ.Dispatch(7)
	kirqtesting.WaitIdle(t, k)
	if n := k.Sched.Wakeups(asr); n != 1 {
		t.Fatalf("CallASR woke asr %d times", n)
	}

	// Without ISR the asr is always woken.
	k.IRQ.Register(7, nil, asr, nil)
	k.IRQ.Dispatch(7)
	kirqtesting.WaitIdle(t, k)
	if n := k.Sched.Wakeups(asr); n != 2 {
		t.Fatalf("asr woken %d times", n)
	}
	if len(runs) != 2 {
		t.Fatalf("asr ran %d times", len(runs))
	}
}

func TestDaemonSubstitutedForASR(t *testing.T) {
	k := kirqtesting.NewKernel(t, irq.DefaultConfig())
	k.IRQ.Register(8, nil, sched.None, nil)
	info, _ := k.IRQ.Vector(8)
	if info.ASR != k.IRQ.Daemon() || info.ASR == sched.None {
		t.Fatalf("asr %d, daemon %d", info.ASR, k.IRQ.Daemon())
	}

	cfg := irq.DefaultConfig()
	cfg.Daemon = false
	k = kirqtesting.NewKernel(t, cfg)
	k.IRQ.Register(8, nil, sched.None, nil)
	info, _ = k.IRQ.Vector(8)
	if info.ASR != sched.None {
		t.Fatalf("asr %d without daemon", info.ASR)
	}
	k.IRQ.Dispatch(8)
}

func TestConcurrentLines(t *testing.T) {
	k := kirqtesting.StartKernel(t, irq.DefaultConfig())

	const lines, rounds = 8, 500
	calls := make([]int, lines)
	for i := range lines {
		k.IRQ.Register(irq.IRQ(i), counter(&calls[i]), sched.None, nil)
	}

	var g errgroup.Group
	for i := range lines {
		g.Go(func() error {
			for range rounds {
				k.IRQ.Dispatch(irq.IRQ(i))
			}
			return nil
		})
	}
	g.Go(func() error {
		for r := range rounds {
			i := r % lines
			err := k.IRQ.Register(irq.IRQ(i), counter(&calls[i]), sched.None, nil)
			if err != nil && !errors.Is(err, irq.ErrLocked) {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for i, n := range calls {
		if n != rounds {
			t.Errorf("line %d: %d calls, expected %d", i, n, rounds)
		}
	}
}
