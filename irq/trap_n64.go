//go:build n64

package irq

import (
	"embedded/rtos"

	_ "unsafe" // for linkname
)

func init() {
	for _, n := range TrapLines {
		rtos.IRQ(n).Enable(rtos.IntPrioLow, 0)
	}
}

//go:linkname rcpHandler IRQ3_Handler
//go:interrupthandler
func rcpHandler() { Dispatch(TrapLines[0]) }

//go:linkname cartHandler IRQ4_Handler
//go:interrupthandler
func cartHandler() { Dispatch(TrapLines[1]) }

//go:linkname prenmiHandler IRQ5_Handler
//go:interrupthandler
func prenmiHandler() { Dispatch(TrapLines[2]) }

//go:linkname rdbReadHandler IRQ6_Handler
//go:interrupthandler
func rdbReadHandler() { Dispatch(TrapLines[3]) }

//go:linkname rdbWriteHandler IRQ7_Handler
//go:interrupthandler
func rdbWriteHandler() { Dispatch(TrapLines[4]) }
