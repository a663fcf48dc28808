//go:build n64

package sched

import "embedded/rtos"

type note struct {
	rtos.Note
}

func (n *note) init() {}
