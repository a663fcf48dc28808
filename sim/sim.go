// Package sim assembles a kernel running on the host: a simulated core, the
// scheduler and the interrupt core, wired the way board support code wires
// them on the target.
package sim

import (
	"time"

	"github.com/clktmr/kirq/cpu"
	"github.com/clktmr/kirq/irq"
	"github.com/clktmr/kirq/sched"
)

type Kernel struct {
	Core  *cpu.Core
	Sched *sched.Scheduler
	IRQ   *irq.Controller

	asrs []sched.ID
	quit chan struct{}
}

// New brings a kernel up to the end of its origin phase. Threads don't run
// before Start.
func New(cfg irq.Config) *Kernel {
	k := &Kernel{
		Core: &cpu.Core{},
		quit: make(chan struct{}),
	}
	k.Sched = sched.New(k.Core)
	k.IRQ = irq.New(k.Core, k.Sched, cfg)
	k.IRQ.Init()
	return k
}

func (k *Kernel) Start() {
	k.Sched.Start()
}

// ASR creates a suspended thread that calls fn each time it is readied and
// suspends itself again afterwards.
func (k *Kernel) ASR(name string, priority int, fn func()) sched.ID {
	id, err := k.Sched.Create(name, priority, sched.Suspended, func(self sched.ID) {
		for {
			select {
			case <-k.quit:
				return
			default:
			}
			if fn != nil {
				fn()
			}
			st := k.Core.Enter()
			k.Sched.SetUnready(self, sched.Suspended, 0)
			k.Core.Leave(st)
			k.Sched.Block(self)
		}
	})
	if err != nil {
		panic(err)
	}

	st := k.Core.Enter()
	k.asrs = append(k.asrs, id)
	k.Core.Leave(st)
	return id
}

// Idle reports whether no request is pending and neither the irq daemon nor
// any ASR is ready to run.
func (k *Kernel) Idle() bool {
	if k.IRQ.Pending() != 0 {
		return false
	}
	daemon := k.IRQ.Daemon()
	st := k.Core.Enter()
	threads := append([]sched.ID{daemon}, k.asrs...)
	k.Core.Leave(st)

	for _, id := range threads {
		if id != sched.None && k.Sched.State(id) == sched.Ready {
			return false
		}
	}
	return true
}

// WaitIdle polls until the kernel is idle. It reports false if timeout
// expires first.
func (k *Kernel) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !k.Idle() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// Close stops the irq daemon and all ASRs.
func (k *Kernel) Close() {
	k.IRQ.Shutdown()

	st := k.Core.Enter()
	select {
	case <-k.quit:
	default:
		close(k.quit)
	}
	for _, id := range k.asrs {
		k.Sched.SetReady(id, sched.Suspended)
	}
	k.Core.Leave(st)
}
