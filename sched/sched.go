// Package sched keeps the kernel's thread table and implements the ready and
// suspend transitions the interrupt core relies on.
//
// The scheduling policy is out of scope here: every thread runs on its own
// goroutine and the Go runtime picks what runs next. What sched guarantees is
// the state machine of a thread. A suspended thread doesn't run until
// SetReady moves it back to Ready, and a wakeup is never lost between
// SetUnready and Block.
//
// SetReady and SetUnready must be called with interrupts masked, the same
// masked region that examined the state that led to the transition.
package sched

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/clktmr/kirq/cpu"
)

// ID is a non-owning handle of a thread in the thread table.
type ID uint16

// None refers to no thread.
const None ID = 0

type State uint8

const (
	Dormant State = iota
	Ready
	Suspended
)

func (s State) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Ready:
		return "ready"
	case Suspended:
		return "suspended"
	}
	return "invalid"
}

// Phase is the lifecycle phase of the kernel.
type Phase uint32

const (
	// Origin is the bring-up phase before any thread runs.
	Origin Phase = iota
	// Running is entered with Start.
	Running
)

var (
	ErrState    = errors.New("unexpected thread state")
	ErrNoThread = errors.New("no such thread")
)

type thread struct {
	name     string
	priority int
	state    State
	entry    func(ID)
	wake     note
	wakeups  uint64
	timer    *time.Timer
}

// Scheduler owns the thread table.
type Scheduler struct {
	mask    cpu.Masker
	phase   atomic.Uint32
	threads []*thread
}

// New returns a scheduler in the Origin phase.
func New(mask cpu.Masker) *Scheduler {
	return &Scheduler{mask: mask}
}

func (s *Scheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

// Start leaves the Origin phase and runs all threads created so far. Threads
// created later run immediately.
func (s *Scheduler) Start() {
	st := s.mask.Enter()
	if !s.phase.CompareAndSwap(uint32(Origin), uint32(Running)) {
		s.mask.Leave(st)
		return
	}
	n := len(s.threads)
	s.mask.Leave(st)

	for i := range n {
		go s.run(ID(i + 1))
	}
}

// Create adds a thread in the given initial state, which must be Ready or
// Suspended. A suspended thread doesn't enter entry before it is readied.
func (s *Scheduler) Create(name string, priority int, state State, entry func(ID)) (ID, error) {
	if state != Ready && state != Suspended {
		return None, ErrState
	}
	t := &thread{
		name:     name,
		priority: priority,
		state:    state,
		entry:    entry,
	}
	t.wake.init()

	st := s.mask.Enter()
	s.threads = append(s.threads, t)
	id := ID(len(s.threads))
	running := s.Phase() == Running
	s.mask.Leave(st)

	if running {
		go s.run(id)
	}
	return id, nil
}

func (s *Scheduler) thread(id ID) *thread {
	st := s.mask.Enter()
	defer s.mask.Leave(st)
	return s.threads[id-1]
}

func (s *Scheduler) run(id ID) {
	t := s.thread(id)
	s.Block(id)
	if t.entry != nil {
		t.entry(id)
	}
	st := s.mask.Enter()
	t.state = Dormant
	s.mask.Leave(st)
}

func (s *Scheduler) lookup(id ID) (*thread, error) {
	if id == None || int(id) > len(s.threads) {
		return nil, ErrNoThread
	}
	return s.threads[id-1], nil
}

// SetReady moves a thread from state expect to Ready and wakes it. It fails
// with ErrState and leaves the thread untouched if it isn't in state expect.
// Interrupts must be masked.
func (s *Scheduler) SetReady(id ID, expect State) (State, error) {
	t, err := s.lookup(id)
	if err != nil {
		return Dormant, err
	}
	if t.state != expect {
		return t.state, ErrState
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state = Ready
	t.wakeups++
	t.wake.Wakeup()
	return Ready, nil
}

// SetUnready moves a ready thread to state. A positive timeout readies the
// thread again when it expires, zero waits forever. The thread stops running
// once it calls Block after the masked region was left. Interrupts must be
// masked.
func (s *Scheduler) SetUnready(id ID, state State, timeout time.Duration) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	if t.state != Ready || state == Ready {
		return ErrState
	}
	t.state = state
	if timeout > 0 {
		t.timer = time.AfterFunc(timeout, func() {
			st := s.mask.Enter()
			s.SetReady(id, state)
			s.mask.Leave(st)
		})
	}
	return nil
}

// Block parks the calling thread as long as it isn't Ready. It must only be
// called by the thread id itself.
func (s *Scheduler) Block(id ID) {
	t := s.thread(id)
	for {
		st := s.mask.Enter()
		state := t.state
		s.mask.Leave(st)
		if state == Ready {
			return
		}
		t.wake.Sleep(-1)
	}
}

// State returns the current state of a thread.
func (s *Scheduler) State(id ID) State {
	st := s.mask.Enter()
	defer s.mask.Leave(st)
	t, err := s.lookup(id)
	if err != nil {
		return Dormant
	}
	return t.state
}

// Wakeups returns how often a thread was moved to Ready by SetReady.
func (s *Scheduler) Wakeups(id ID) uint64 {
	st := s.mask.Enter()
	defer s.mask.Leave(st)
	t, err := s.lookup(id)
	if err != nil {
		return 0
	}
	return t.wakeups
}

func (s *Scheduler) Name(id ID) string {
	st := s.mask.Enter()
	defer s.mask.Leave(st)
	t, err := s.lookup(id)
	if err != nil {
		return ""
	}
	return t.name
}

func (s *Scheduler) Priority(id ID) int {
	st := s.mask.Enter()
	defer s.mask.Leave(st)
	t, err := s.lookup(id)
	if err != nil {
		return 0
	}
	return t.priority
}

// Threads returns the number of threads in the table. Valid IDs range from 1
// to Threads().
func (s *Scheduler) Threads() int {
	st := s.mask.Enter()
	defer s.mask.Leave(st)
	return len(s.threads)
}
