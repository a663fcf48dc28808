package irq

import "github.com/clktmr/kirq/sched"

// VectorState is the state of a vector descriptor.
type VectorState uint8

const (
	Unused VectorState = iota
	Ready
	// ReadyLocked is entered by Dispatch while it runs the vector.
	ReadyLocked
)

func (s VectorState) String() string {
	switch s {
	case Unused:
		return "unused"
	case Ready:
		return "ready"
	case ReadyLocked:
		return "locked"
	}
	return "invalid"
}

type property uint8

const (
	propReady property = 1 << iota
	propLocked
)

type vector struct {
	irqn IRQ
	prop property
	isr  ISR
	asr  sched.ID
	arg  any
}

func (v *vector) state() VectorState {
	switch {
	case v.prop&propReady == 0:
		return Unused
	case v.prop&propLocked != 0:
		return ReadyLocked
	}
	return Ready
}

// table is the vector pool plus the map from interrupt numbers to pool slots.
type table struct {
	vectors []vector
	lookup  []int32 // slot+1, 0 if the number has no vector
}

func newTable(vectors, lines int) table {
	return table{
		vectors: make([]vector, vectors),
		lookup:  make([]int32, lines),
	}
}

// get returns the vector irqn is mapped to or nil.
func (t *table) get(irqn IRQ) *vector {
	if int(irqn) >= len(t.lookup) {
		return nil
	}
	slot := t.lookup[irqn]
	if slot == 0 {
		return nil
	}
	return &t.vectors[slot-1]
}

func (t *table) slot(irqn IRQ) int {
	if int(irqn) >= len(t.lookup) {
		return -1
	}
	return int(t.lookup[irqn]) - 1
}

// alloc claims the first unused vector for irqn. It returns nil if the pool
// is exhausted.
func (t *table) alloc(irqn IRQ) *vector {
	for i := range t.vectors {
		v := &t.vectors[i]
		if v.prop&propReady == 0 {
			t.lookup[irqn] = int32(i + 1)
			*v = vector{irqn: irqn, prop: propReady}
			return v
		}
	}
	return nil
}

// free unmaps irqn and zeroes its vector.
func (t *table) free(irqn IRQ) {
	slot := t.lookup[irqn]
	t.lookup[irqn] = 0
	t.vectors[slot-1] = vector{}
}

// VectorInfo is a snapshot of a vector descriptor.
type VectorInfo struct {
	IRQ   IRQ
	Slot  int
	State VectorState
	ISR   bool // an ISR is registered
	ASR   sched.ID
	Arg   any
}

// Vector returns a snapshot of the vector irqn is mapped to. It reports false
// if irqn has no vector.
func (c *Controller) Vector(irqn IRQ) (info VectorInfo, ok bool) {
	st := c.mask.Enter()
	defer c.mask.Leave(st)

	v := c.vt.get(irqn)
	if v == nil {
		return info, false
	}
	return VectorInfo{
		IRQ:   v.irqn,
		Slot:  c.vt.slot(irqn),
		State: v.state(),
		ISR:   v.isr != nil,
		ASR:   v.asr,
		Arg:   v.arg,
	}, true
}

// Vectors returns snapshots of all registered vectors in pool order.
func (c *Controller) Vectors() []VectorInfo {
	st := c.mask.Enter()
	defer c.mask.Leave(st)

	var infos []VectorInfo
	for i := range c.vt.vectors {
		v := &c.vt.vectors[i]
		if v.prop&propReady == 0 {
			continue
		}
		infos = append(infos, VectorInfo{
			IRQ:   v.irqn,
			Slot:  i,
			State: v.state(),
			ISR:   v.isr != nil,
			ASR:   v.asr,
			Arg:   v.arg,
		})
	}
	return infos
}
