//go:build !n64

package cpu

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Core simulates a single core on the host. Goroutines stand in for threads
// and interrupt sources, and a masked region excludes every other goroutine
// from entering one.
//
// Regions nest per goroutine. The State returned by Enter is the nesting
// depth before the call, so only the outermost Leave unmasks the core.
type Core struct {
	mu     sync.Mutex
	owner  atomic.Int64 // goroutine inside the region, 0 if none
	depth  uint32       // owned by owner
	masked atomic.Bool
}

// Enter waits until no other goroutine is inside a region and masks the core.
func (c *Core) Enter() State {
	g := goid()
	if c.owner.Load() == g {
		prev := c.depth
		c.depth++
		return State(prev)
	}

	c.mu.Lock()
	c.owner.Store(g)
	c.depth = 1
	c.masked.Store(true)
	return 0
}

// Leave restores the nesting depth s and unmasks the core when leaving the
// outermost region.
func (c *Core) Leave(s State) {
	c.depth = uint32(s)
	if s != 0 {
		return
	}
	c.masked.Store(false)
	c.owner.Store(0)
	c.mu.Unlock()
}

// Masked reports whether any goroutine is inside a masked region.
func (c *Core) Masked() bool {
	return c.masked.Load()
}

// goid returns the id of the calling goroutine as printed in its stack trace
// header.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		panic("cpu: can't parse goroutine id")
	}
	return id
}
