//go:build !n64

package sched

import "time"

// note is a one-shot wakeup a thread sleeps on. Wakeups before Sleep are
// remembered, further ones are dropped.
type note struct {
	c chan struct{}
}

func (n *note) init() {
	n.c = make(chan struct{}, 1)
}

func (n *note) Wakeup() {
	select {
	case n.c <- struct{}{}:
	default:
	}
}

func (n *note) Sleep(timeout time.Duration) bool {
	if timeout < 0 {
		<-n.c
		return true
	}
	select {
	case <-n.c:
		return true
	case <-time.After(timeout):
		return false
	}
}
