//go:build linux

package ioruntime

import (
	"sync"

	"github.com/go-sylar/sylar/fiber"
	"github.com/go-sylar/sylar/scheduler"
)

// Event is the readiness bitmask an fd can be armed for.
type Event uint32

const (
	EventRead Event = 1 << iota
	EventWrite
)

// eventContext is a resume token: either a callback or the fiber that
// was running when AddEvent was called, plus the scheduler to
// resubmit it to.
type eventContext struct {
	sched *scheduler.Scheduler
	fib   *fiber.Fiber
	cb    func()
}

// fdContext tracks one fd's armed-events bitmask, a per-event
// resume-token, and a per-fd lock.
type fdContext struct {
	fd int

	mu    sync.Mutex
	armed Event
	read  *eventContext
	write *eventContext
}

func (c *fdContext) contextFor(ev Event) **eventContext {
	if ev == EventRead {
		return &c.read
	}
	return &c.write
}
