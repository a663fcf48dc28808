// Package cpu provides the critical-section primitive of the kernel. Masking
// interrupt delivery on the current core is the only exclusion mechanism the
// kernel uses; there are no locks.
package cpu

// State is the interrupt mask status of the core before a masked region was
// entered. It is restored when the region is left, which makes regions nest.
type State uint32

// Masker masks and unmasks interrupt delivery on the current core.
type Masker interface {
	// Enter masks interrupts and returns the previous mask status.
	Enter() State
	// Leave restores the mask status returned by the matching Enter.
	Leave(State)
}
