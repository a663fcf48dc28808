package irq

import "github.com/clktmr/kirq/sched"

// Dispatch runs the vector of irqn. It is called by the trap path for every
// interrupt and never blocks.
//
// Interrupts without a ready vector are ignored, including one that fires
// again while its vector is still being dispatched. The ISR runs with the
// mask open, the vector stays locked against Register and Release meanwhile.
// If the ISR returns CallASR, or there is no ISR, the associated thread is
// readied in case it is suspended.
func (c *Controller) Dispatch(irqn IRQ) {
	st := c.mask.Enter()

	v := c.vt.get(irqn)
	if v == nil || v.prop != propReady {
		c.mask.Leave(st)
		return
	}
	v.prop |= propLocked

	ret := CallASR
	if v.isr != nil {
		isr, arg := v.isr, v.arg
		c.mask.Leave(st)
		ret = isr(arg)
		st = c.mask.Enter()
	}

	if ret&CallASR != 0 && v.asr != sched.None {
		// Not being suspended is fine, the ASR will see the work anyway.
		c.sched.SetReady(v.asr, sched.Suspended)
	}

	v.prop &^= propLocked
	c.mask.Leave(st)
}
