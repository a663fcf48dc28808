package debug

import (
	"io"
	"os"
	"runtime"
	"strconv"
)

// Output receives the diagnostic written by Panic.
var Output io.Writer = os.Stderr

// Halt is the value Panic panics with.
type Halt struct {
	Func    string
	File    string
	Line    int
	Message string
}

func (h *Halt) Error() string {
	return "kernel halted in " + h.Func + ": " + h.Message
}

// Panic writes a diagnostic for a fatal programmer error to Output and halts
// the kernel. Optional values are printed in hex, one per line. Panic never
// returns.
func Panic(message string, values ...uint64) {
	h := &Halt{Message: message, Func: "?", File: "?"}
	if pc, file, line, ok := runtime.Caller(1); ok {
		h.File, h.Line = file, line
		if fn := runtime.FuncForPC(pc); fn != nil {
			h.Func = fn.Name()
		}
	}

	var buf [16]byte
	write("kernel panic: ")
	write(message)
	write("\nfunc     ")
	write(h.Func)
	write("\nfile     ")
	write(h.File)
	write(":")
	write(strconv.Itoa(h.Line))
	for _, v := range values {
		write("\nvalue    0x")
		Output.Write(itoa(buf[:], v))
	}
	write("\n")

	panic(h)
}

func write(s string) {
	io.WriteString(Output, s)
}

func itoa(buf []byte, num uint64) []byte {
	for i := range 16 {
		char := byte(num>>(60-(4*i))) & 0xf
		if char > 9 {
			char += 'a' - 10
		} else {
			char += '0'
		}
		buf[i] = char
	}
	return buf
}
