// Package scheduler implements an M:N cooperative task scheduler: a
// pool of worker threads dispatching fibers and plain callbacks from a
// shared FIFO queue, with optional pinning of a task to a specific
// worker.
//
// Each worker is, in Go terms, one goroutine running dispatchLoop: the
// "use_caller" worker's goroutine is whichever goroutine calls Start,
// and the remaining thread_count-1 workers are spawned goroutines.
// ioruntime.IOManager overrides Tickle/IdleWait/ExtraStopping to layer
// epoll readiness on top of this dispatch loop.
package scheduler

import (
	"runtime/debug"
	"sync"

	"github.com/go-sylar/sylar/fiber"
	"github.com/go-sylar/sylar/logpipe"
)

var log = logpipe.Get("scheduler")

// Scheduler owns a pool of workers and a FIFO task queue.
type Scheduler struct {
	name        string
	useCaller   bool
	threadCount int

	mu      sync.Mutex
	cond    *sync.Cond
	ready   []*task
	stopped bool

	workers []*worker
	wg      sync.WaitGroup

	// fiberWorker records which worker id is currently running a given
	// fiber id, so CurrentWorkerID (and a self-rescheduling callback
	// pinning itself to its own worker) can be answered from inside a
	// running task without threading a worker handle through user
	// code.
	fiberWorker sync.Map // uint64 fiber id -> int worker id

	startOnce sync.Once
	stopOnce  sync.Once

	// Tickle wakes a worker blocked in its idle fiber. The default
	// broadcasts the queue condition; ioruntime.IOManager replaces
	// this with a write to its eventfd.
	Tickle func()

	// IdleWait is invoked from inside a worker's idle fiber (see
	// idleBody in dispatch.go) whenever the dispatch loop finds no runnable task. It
	// should block until new work might be available, then return so
	// the idle fiber can yield back to the dispatch loop.
	// ioruntime.IOManager overrides this with an epoll_wait-backed
	// implementation.
	IdleWait func(workerID int)

	// ExtraStopping lets an embedding type (ioruntime.IOManager) add
	// conditions to stopping(), e.g. "pending I/O event count is
	// zero". Defaults to a function that always returns true.
	ExtraStopping func() bool
}

// NewScheduler constructs a Scheduler with the given worker count. If
// useCaller, the goroutine that calls Start becomes worker 0 and runs
// its dispatch loop there (blocking); the
// remaining threadCount-1 workers are spawned as goroutines by Start.
// A non-positive threadCount is clamped to 1.
func NewScheduler(threadCount int, useCaller bool, name string) *Scheduler {
	if threadCount < 1 {
		threadCount = 1
	}
	s := &Scheduler{
		name:        name,
		useCaller:   useCaller,
		threadCount: threadCount,
		ExtraStopping: func() bool {
			return true
		},
	}
	s.cond = sync.NewCond(&s.mu)
	s.Tickle = s.defaultTickle
	s.IdleWait = s.defaultIdleWait

	s.workers = make([]*worker, threadCount)
	for i := range s.workers {
		s.workers[i] = newWorker(i)
	}
	return s
}

// Name returns the scheduler's diagnostic name.
func (s *Scheduler) Name() string { return s.name }

// ThreadCount returns the configured worker count.
func (s *Scheduler) ThreadCount() int { return s.threadCount }

// Start spawns the background workers (threadCount-1 of them, or all
// threadCount if !useCaller) and, if useCaller, runs worker 0's
// dispatch loop on the calling goroutine until Stop completes.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		first := 0
		if s.useCaller {
			first = 1
		}
		for i := first; i < s.threadCount; i++ {
			w := s.workers[i]
			s.wg.Add(1)
			go func(w *worker) {
				defer s.wg.Done()
				s.dispatchLoop(w)
			}(w)
		}
	})
	if s.useCaller {
		s.dispatchLoop(s.workers[0])
	}
}

// Schedule appends fn to the ready queue, wrapped in a fresh task, to
// run on any worker (or a specific one if threadHint is given).
func (s *Scheduler) Schedule(fn func(), threadHint ...int64) error {
	return s.push(&task{fn: fn, thread: hintOf(threadHint)})
}

// ScheduleFiber appends an existing Fiber to the ready queue.
func (s *Scheduler) ScheduleFiber(f *fiber.Fiber, threadHint ...int64) error {
	return s.push(&task{fib: f, thread: hintOf(threadHint)})
}

// ScheduleAll appends every fn in fns to the ready queue, each
// unpinned, as a single batch under one lock acquisition.
func (s *Scheduler) ScheduleAll(fns ...func()) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrShutdown
	}
	wasEmpty := len(s.ready) == 0
	for _, fn := range fns {
		s.ready = append(s.ready, &task{fn: fn, thread: noThreadHint})
	}
	s.mu.Unlock()
	if wasEmpty && len(fns) > 0 {
		s.Tickle()
	}
	return nil
}

func hintOf(h []int64) int64 {
	if len(h) == 0 {
		return noThreadHint
	}
	return h[0]
}

func (s *Scheduler) push(t *task) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrShutdown
	}
	wasEmpty := len(s.ready) == 0
	s.ready = append(s.ready, t)
	s.mu.Unlock()
	if wasEmpty {
		s.Tickle()
	}
	return nil
}

// CurrentWorkerID reports the worker id currently running the calling
// fiber (or callback helper fiber), if it was dispatched by this
// Scheduler.
func (s *Scheduler) CurrentWorkerID() (int, bool) {
	id := fiber.CurrentID()
	v, ok := s.fiberWorker.Load(id)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// SwitchTo re-schedules the currently running fiber onto threadHint
// and yields HOLD. It must be called from inside a fiber's own
// callback.
func (s *Scheduler) SwitchTo(threadHint int64) {
	f := fiber.Current()
	f.Hold()
	_ = s.ScheduleFiber(f, threadHint)
	f.SwapOut()
}

// stopping reports the base termination condition: stop was
// requested, the ready queue is empty, and ExtraStopping (if set by
// an embedding IOManager) also holds.
func (s *Scheduler) stopping() bool {
	s.mu.Lock()
	empty := s.stopped && len(s.ready) == 0
	s.mu.Unlock()
	return empty && s.ExtraStopping()
}

// Stop requests shutdown: no further Schedule calls are accepted,
// every idle worker is tickled, and Stop blocks until all background
// workers have exited. With useCaller, Stop does not wait for worker
// 0: its dispatch loop exits on its own once the stopping condition
// holds, and the Start call running it then returns.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.cond.Broadcast()
		s.mu.Unlock()
		s.Tickle()
	})
	s.wg.Wait()
}

func (s *Scheduler) defaultTickle() {
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Scheduler) defaultIdleWait(int) {
	s.mu.Lock()
	for len(s.ready) == 0 && !s.stopped {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func recoverTask(where string) {
	if r := recover(); r != nil {
		log.Errorf(0, 0, "%s: task panicked: %v\n%s", where, r, debug.Stack())
	}
}
