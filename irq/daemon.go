package irq

import (
	"github.com/clktmr/kirq/prio"
	"github.com/clktmr/kirq/sched"
)

// Priority orders requests, lower values run first.
type Priority int32

// Entry is the callback of a Request. It runs on the irq daemon.
type Entry func(arg any)

type RequestState uint8

const (
	Idle RequestState = iota
	Queued
)

func (s RequestState) String() string {
	if s == Queued {
		return "queued"
	}
	return "idle"
}

// Request is a unit of deferred work. The zero value is an idle request. It
// is owned by the caller, which must not modify or reuse it while it's
// queued.
type Request struct {
	state    RequestState
	entry    Entry
	arg      any
	priority Priority
	handle   prio.Handle
}

// Post queues r to run entry(arg) on the irq daemon. Requests run by
// ascending priority, in posting order among equal priorities. Post fails
// with ErrAlreadyQueued if r is queued, and with ErrFault if the queue is
// full, entry is nil or no daemon is configured. Post can be called from an ISR.
func (c *Controller) Post(r *Request, priority Priority, entry Entry, arg any) error {
	if c.queue == nil || entry == nil {
		return ErrFault
	}

	st := c.mask.Enter()
	defer c.mask.Leave(st)

	if r.state == Queued {
		return ErrAlreadyQueued
	}
	h, err := c.queue.Push(priority)
	if err != nil {
		return ErrFault
	}
	*r = Request{
		state:    Queued,
		entry:    entry,
		arg:      arg,
		priority: priority,
		handle:   h,
	}
	c.pending[h] = r

	if c.daemon != sched.None {
		c.sched.SetReady(c.daemon, sched.Suspended)
	}
	return nil
}

// Cancel takes a queued request out of the queue and resets it to idle. A
// request that isn't queued, including one that already runs, fails with
// ErrNotQueued.
func (c *Controller) Cancel(r *Request) error {
	if c.queue == nil {
		return ErrNotQueued
	}

	st := c.mask.Enter()
	defer c.mask.Leave(st)

	if r.state != Queued || !c.queue.Queued(r.handle) || c.pending[r.handle] != r {
		return ErrNotQueued
	}
	c.queue.Remove(r.handle)
	c.pending[r.handle] = nil
	*r = Request{}
	return nil
}

// Queued reports whether r is waiting in the queue.
func (c *Controller) Queued(r *Request) bool {
	st := c.mask.Enter()
	defer c.mask.Leave(st)
	return r.state == Queued
}

// QueuedPriority returns the priority r was posted with. It reports false if
// r isn't queued.
func (c *Controller) QueuedPriority(r *Request) (Priority, bool) {
	st := c.mask.Enter()
	defer c.mask.Leave(st)
	if r.state != Queued {
		return 0, false
	}
	return r.priority, true
}

// Pending returns the number of queued requests.
func (c *Controller) Pending() int {
	if c.queue == nil {
		return 0
	}
	st := c.mask.Enter()
	defer c.mask.Leave(st)
	return c.queue.Len()
}

// daemonLoop is the irq daemon. It runs one request per iteration and
// suspends itself while the queue is empty.
func (c *Controller) daemonLoop(self sched.ID) {
	for {
		st := c.mask.Enter()
		if c.stopped {
			c.mask.Leave(st)
			close(c.done)
			return
		}

		h, ok := c.queue.Pop()
		if !ok {
			c.sched.SetUnready(self, sched.Suspended, 0)
			c.mask.Leave(st)
			c.sched.Block(self)
			continue
		}

		r := c.pending[h]
		c.pending[h] = nil
		entry, arg := r.entry, r.arg
		*r = Request{}
		c.mask.Leave(st)

		entry(arg)
	}
}

// Shutdown stops the irq daemon after the request it is running, if any.
// Queued requests are left in the queue. It is meant for tearing down
// simulated kernels; a real kernel never stops the daemon.
func (c *Controller) Shutdown() {
	st := c.mask.Enter()
	if c.daemon == sched.None || c.stopped {
		c.mask.Leave(st)
		return
	}
	c.stopped = true
	c.sched.SetReady(c.daemon, sched.Suspended)
	c.mask.Leave(st)

	if c.sched.Phase() == sched.Running {
		<-c.done
	}
}
