package irq

// TrapLines are the CPU interrupt lines the n64 trap path dispatches, each to
// the interrupt number of the same value. They are enabled at package
// initialization; board startup code must call Init with cpu.Target before
// the first one fires, interrupts arriving earlier are ignored.
var TrapLines = [...]IRQ{3, 4, 5, 6, 7}
