package logpipe

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a compare-and-swap spin-lock, used to guard a Logger's
// appender slice. The appender list is small and held only briefly,
// so a CAS spin avoids the syscall-capable parking path a sync.Mutex
// can take under contention. See DESIGN.md for why this one piece is
// hand-rolled over sync/atomic instead of an existing dependency.
type spinlock struct {
	held atomic.Bool
}

func (s *spinlock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.held.Store(false)
}
