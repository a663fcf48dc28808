package irq

import "github.com/clktmr/kirq/sched"

// Register binds isr, asr and arg to the interrupt number irqn. If irqn
// already has a vector, it is updated in place, unless Dispatch is running it
// right now, which fails with ErrLocked. Otherwise the first unused vector of
// the pool is claimed; if there is none, Register fails with ErrFault and
// leaves the table untouched.
//
// Both isr and asr are optional. Without an asr the irq daemon is bound, if
// configured.
func (c *Controller) Register(irqn IRQ, isr ISR, asr sched.ID, arg any) error {
	if int(irqn) >= c.cfg.Lines {
		return ErrFault
	}

	st := c.mask.Enter()
	defer c.mask.Leave(st)

	v := c.vt.get(irqn)
	if v != nil {
		if v.prop&propLocked != 0 {
			return ErrLocked
		}
	} else if v = c.vt.alloc(irqn); v == nil {
		return ErrFault
	}

	if asr == sched.None && c.cfg.Daemon {
		asr = c.daemon
	}
	v.isr = isr
	v.asr = asr
	v.arg = arg
	return nil
}

// Release unbinds the vector of irqn and returns it to the pool. It fails
// with ErrLocked while Dispatch runs the vector and with ErrFault if irqn has
// no vector.
func (c *Controller) Release(irqn IRQ) error {
	st := c.mask.Enter()
	defer c.mask.Leave(st)

	v := c.vt.get(irqn)
	if v == nil || v.prop&propReady == 0 || v.irqn != irqn {
		return ErrFault
	}
	if v.prop&propLocked != 0 {
		return ErrLocked
	}
	c.vt.free(irqn)
	return nil
}
