// Package irq maps hardware interrupt numbers to registered vectors and runs
// them.
//
// A vector binds an interrupt number to a low-level handler (ISR), which runs
// in interrupt context, and an associated service routine (ASR), a thread
// woken afterwards to do the heavier part of the work in thread context. When
// no dedicated ASR is given, vectors wake the irq daemon instead, a kernel
// thread that runs Requests posted to it in priority order.
//
// All state is mutated inside masked regions only. Dispatch re-opens the mask
// while the handler runs, so a handler can be interrupted by other lines.
//
// On the target, board startup code sets up the kernel's controller during
// bring-up, before the scheduler starts:
//
//	s := sched.New(cpu.Target{})
//	irq.Init(cpu.Target{}, s, irq.DefaultConfig())
//	s.Start()
//
// The trap handlers for TrapLines dispatch into that controller.
package irq

import (
	"errors"

	"github.com/clktmr/kirq/cpu"
	"github.com/clktmr/kirq/debug"
	"github.com/clktmr/kirq/prio"
	"github.com/clktmr/kirq/sched"
)

var (
	ErrFault         = errors.New("irq: fault")
	ErrLocked        = errors.New("irq: vector locked")
	ErrAlreadyQueued = errors.New("irq: request already queued")
	ErrNotQueued     = errors.New("irq: request not queued")
)

// IRQ is a raw hardware interrupt number.
type IRQ uint16

// Result is returned by an ISR to tell the dispatcher what to do next.
type Result uint8

const (
	// Done means the interrupt was handled completely.
	Done Result = 0
	// CallASR requests waking the vector's associated thread.
	CallASR Result = 1 << 0
)

// ISR is a low-level handler. It runs in interrupt context and must not
// block.
type ISR func(arg any) Result

// Config sizes the static tables.
type Config struct {
	Vectors int // maximum number of concurrently registered vectors
	Lines   int // size of the interrupt number space

	Daemon         bool // run the irq daemon and accept requests
	DaemonPriority int
	DaemonQueue    int // maximum number of pending requests
}

func DefaultConfig() Config {
	return Config{
		Vectors:        32,
		Lines:          64,
		Daemon:         true,
		DaemonPriority: 1,
		DaemonQueue:    32,
	}
}

// Controller owns the vector table and the deferred request queue of one
// kernel.
type Controller struct {
	mask  cpu.Masker
	sched *sched.Scheduler
	cfg   Config

	vt table

	initialized bool
	daemon      sched.ID
	queue       *prio.Queue[Priority]
	pending     []*Request // indexed by prio.Handle
	stopped     bool
	done        chan struct{}
}

// New allocates all tables of a controller. The irq daemon is created by
// Init.
func New(mask cpu.Masker, s *sched.Scheduler, cfg Config) *Controller {
	if cfg.Vectors <= 0 || cfg.Lines <= 0 || (cfg.Daemon && cfg.DaemonQueue <= 0) {
		debug.Panic("irq: invalid config", uint64(cfg.Vectors), uint64(cfg.Lines), uint64(cfg.DaemonQueue))
	}
	c := &Controller{
		mask:  mask,
		sched: s,
		cfg:   cfg,
		vt:    newTable(cfg.Vectors, cfg.Lines),
		done:  make(chan struct{}),
	}
	if cfg.Daemon {
		c.queue = prio.New[Priority](cfg.DaemonQueue)
		c.pending = make([]*Request, cfg.DaemonQueue)
	}
	return c
}

// Init finishes bring-up of the controller and creates the irq daemon if
// configured. It must be called exactly once, before the scheduler starts.
func (c *Controller) Init() {
	if c.sched.Phase() != sched.Origin {
		debug.Panic("irq: init after kernel start")
	}
	st := c.mask.Enter()
	if c.initialized {
		c.mask.Leave(st)
		debug.Panic("irq: initialized twice")
	}
	c.initialized = true
	c.mask.Leave(st)

	if !c.cfg.Daemon {
		return
	}
	id, err := c.sched.Create("irq daemon", c.cfg.DaemonPriority, sched.Suspended, c.daemonLoop)
	debug.AssertErrNil(err)

	st = c.mask.Enter()
	c.daemon = id
	c.mask.Leave(st)
}

// Daemon returns the irq daemon's thread, or sched.None if there is none.
func (c *Controller) Daemon() sched.ID {
	st := c.mask.Enter()
	defer c.mask.Leave(st)
	return c.daemon
}

func (c *Controller) Config() Config {
	return c.cfg
}
