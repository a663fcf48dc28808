//go:build n64

package cpu

import "embedded/rtos"

// Lines are the CPU interrupt lines masked by Target.
var Lines = [...]rtos.IRQ{3, 4, 5, 6, 7}

var linePrio [len(Lines)]int

// Target masks the CPU interrupt lines one by one. The returned State holds a
// bit per line that was enabled before, so regions nest.
type Target struct{}

//go:nosplit
func (Target) Enter() (s State) {
	for i, irq := range Lines {
		en, prio, _ := irq.Status(0)
		if en {
			s |= 1 << i
			linePrio[i] = prio
			irq.Disable(0)
		}
	}
	return
}

//go:nosplit
func (Target) Leave(s State) {
	for i, irq := range Lines {
		if s&(1<<i) != 0 {
			irq.Enable(linePrio[i], 0)
		}
	}
}
