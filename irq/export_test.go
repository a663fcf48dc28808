package irq

// ResetKernel forgets the controller set up by Init.
func ResetKernel() {
	if kernel != nil {
		kernel.Shutdown()
	}
	kernel = nil
}
