package irq

import (
	"github.com/clktmr/kirq/cpu"
	"github.com/clktmr/kirq/debug"
	"github.com/clktmr/kirq/sched"
)

// The kernel's controller, set up by Init.
var kernel *Controller

// Init sets up the kernel's interrupt core during bring-up. Calling it twice
// or after the scheduler started halts the kernel.
func Init(mask cpu.Masker, s *sched.Scheduler, cfg Config) {
	if kernel != nil {
		debug.Panic("irq: module initialized twice")
	}
	c := New(mask, s, cfg)
	c.Init()
	kernel = c
}

// Kernel returns the controller set up by Init or nil.
func Kernel() *Controller { return kernel }

func Register(irqn IRQ, isr ISR, asr sched.ID, arg any) error {
	if kernel == nil {
		return ErrFault
	}
	return kernel.Register(irqn, isr, asr, arg)
}

func Release(irqn IRQ) error {
	if kernel == nil {
		return ErrFault
	}
	return kernel.Release(irqn)
}

// Dispatch is the entry of the trap path.
func Dispatch(irqn IRQ) {
	if c := kernel; c != nil {
		c.Dispatch(irqn)
	}
}

func Post(r *Request, priority Priority, entry Entry, arg any) error {
	if kernel == nil {
		return ErrFault
	}
	return kernel.Post(r, priority, entry, arg)
}

func Cancel(r *Request) error {
	if kernel == nil {
		return ErrNotQueued
	}
	return kernel.Cancel(r)
}
