package irq_test

import (
	"fmt"

	"github.com/clktmr/kirq/irq"
	"github.com/clktmr/kirq/sched"
	"github.com/clktmr/kirq/sim"
)

// A receive interrupt reads a byte in interrupt context and defers the
// parsing to the irq daemon.
func Example() {
	k := sim.New(irq.DefaultConfig())
	defer k.Close()

	const uartRx irq.IRQ = 27
	done := make(chan struct{})

	var parse irq.Request
	rx := func(arg any) irq.Result {
		b := arg.(byte)
		k.IRQ.Post(&parse, 1, func(arg any) {
			fmt.Printf("received %q\n", arg)
			close(done)
		}, b)
		return irq.Done
	}
	if err := k.IRQ.Register(uartRx, rx, sched.None, byte('k')); err != nil {
		panic(err)
	}

	k.Start()
	k.IRQ.Dispatch(uartRx)
	<-done

	// Output: received 'k'
}
