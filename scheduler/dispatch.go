package scheduler

import "github.com/go-sylar/sylar/fiber"

// dispatchLoop is the per-worker loop: scan the queue for runnable
// work (skipping tasks pinned to another worker or whose fiber is EXEC
// elsewhere), run a hit, or - if nothing was found - either re-loop
// immediately (if this worker had just been busy) or swap into the
// idle fiber to actually wait.
func (s *Scheduler) dispatchLoop(w *worker) {
	wasActive := false
	for {
		t, skippedPinned := s.popReady(w.id)
		if t != nil {
			wasActive = true
			s.runTask(w, t)
			if skippedPinned {
				s.Tickle()
			}
			continue
		}

		if skippedPinned {
			s.Tickle()
		}
		if wasActive {
			wasActive = false
			continue
		}
		if s.stopping() {
			return
		}
		if w.idleFiber == nil {
			w.idleFiber = fiber.New(s.idleBody(w.id), 0, false)
		}
		if err := w.idleFiber.SwapIn(); err != nil {
			log.Errorf(0, 0, "worker %d: idle fiber swap_in: %v", w.id, err)
		}
	}
}

// popReady scans the ready queue under lock for the first task this
// worker may run. It reports whether any task was skipped because it
// is pinned to a different worker, which the caller uses to decide
// whether to tickle another worker awake.
func (s *Scheduler) popReady(workerID int) (*task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skippedPinned := false
	for i, t := range s.ready {
		if t.fib != nil && t.fib.State() == fiber.Exec {
			// Already running on whichever worker owns it; leave it.
			continue
		}
		if t.thread == noThreadHint || t.thread == int64(workerID) {
			s.ready = append(s.ready[:i:i], s.ready[i+1:]...)
			return t, skippedPinned
		}
		skippedPinned = true
	}
	return nil, skippedPinned
}

func (s *Scheduler) runTask(w *worker, t *task) {
	if t.fib != nil {
		s.fiberWorker.Store(t.fib.ID(), w.id)
		if err := t.fib.SwapIn(); err != nil {
			log.Errorf(0, t.fib.ID(), "worker %d: fiber %d swap_in: %v", w.id, t.fib.ID(), err)
			return
		}
		s.afterRun(w, t.fib, t.thread)
		return
	}
	s.runCallback(w, t)
}

// runCallback runs t.fn inside a cached per-worker helper fiber,
// created on first use, Reset and reused across TERM/EXCEP
// completions.
func (s *Scheduler) runCallback(w *worker, t *task) {
	cb := t.fn
	wrapped := func() {
		defer recoverTask("scheduler.callback")
		cb()
	}
	if w.cbFiber == nil {
		w.cbFiber = fiber.New(wrapped, 0, false)
	} else if err := w.cbFiber.Reset(wrapped); err != nil {
		// Shouldn't happen: afterRun only keeps cbFiber around when it
		// terminated (Term/Excep), which is always resettable. Fall
		// back to a fresh helper fiber defensively.
		w.cbFiber = fiber.New(wrapped, 0, false)
	}
	f := w.cbFiber
	s.fiberWorker.Store(f.ID(), w.id)
	if err := f.SwapIn(); err != nil {
		log.Errorf(0, f.ID(), "worker %d: callback fiber swap_in: %v", w.id, err)
		return
	}
	s.afterRun(w, f, t.thread)
}

// afterRun mirrors post-return handling for both fiber and callback
// tasks: a READY fiber is requeued, a HOLD fiber is left parked
// (something else, e.g. ioruntime, holds its resume token), and a
// TERM/EXCEP fiber is done - if it was the worker's callback helper,
// it stays cached for reuse.
func (s *Scheduler) afterRun(w *worker, f *fiber.Fiber, thread int64) {
	switch f.State() {
	case fiber.Ready:
		if f == w.cbFiber {
			w.cbFiber = nil
		}
		if err := s.ScheduleFiber(f, thread); err != nil {
			log.Errorf(0, f.ID(), "worker %d: reschedule fiber %d: %v", w.id, f.ID(), err)
		}
	case fiber.Hold:
		if f == w.cbFiber {
			w.cbFiber = nil
		}
	default: // Term, Excep
	}
}

// idleBody returns the callback for a worker's idle fiber: repeatedly
// call IdleWait (overridden by ioruntime.IOManager with epoll_wait)
// and yield HOLD back to the dispatch loop, until the scheduler's
// stopping condition holds.
func (s *Scheduler) idleBody(workerID int) func() {
	return func() {
		for {
			if s.stopping() {
				return
			}
			s.IdleWait(workerID)
			fiber.YieldToHold()
		}
	}
}
