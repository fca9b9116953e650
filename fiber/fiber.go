// Package fiber implements a stackful cooperative coroutine.
//
// Go has no portable API for swapping a goroutine's machine context
// onto another stack, so a Fiber's "stack" is a dedicated goroutine
// parked on a channel receive, and SwapIn/SwapOut are a rendezvous
// handoff between exactly one running goroutine at a time: the
// worker's goroutine blocks in SwapIn while the fiber's own goroutine
// runs, and vice versa. This keeps at most one Fiber Exec per caller
// at a time, with only the fiber itself ever transitioning
// Exec -> {Ready, Hold, Term, Excep}.
package fiber

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/go-sylar/sylar/config"
	"github.com/go-sylar/sylar/logpipe"
)

var log = logpipe.Get("fiber")

var totalCount atomic.Uint64

// defaultStackSize is the fiber.stack_size config variable: 1 MiB
// until overridden by loaded config.
var defaultStackSize, _ = config.Lookup[uint64]("fiber.stack_size", 1<<20,
	"default stack size hint for fibers created without an explicit size")

// DefaultStackSize returns the current value of the fiber.stack_size
// config variable.
func DefaultStackSize() uint64 {
	return defaultStackSize.Value()
}

// Fiber is a stackful coroutine: see the package doc for how "stack"
// and "machine context" map onto a goroutine + rendezvous channels.
type Fiber struct {
	id        uint64
	stackSize uint64
	owned     bool // false only for a thread's bootstrap fiber
	name      string

	mu    sync.Mutex
	state State
	cb    func()

	resume chan struct{} // worker -> fiber: "run now"
	parked chan struct{} // fiber -> worker: "I've yielded/returned"

	started bool
}

var fiberByGoroutine sync.Map // goroutine id (uint64) -> *Fiber

// New allocates a Fiber running cb. runOnCaller is accepted for
// signature parity with callers that construct fibers alongside a
// scheduler; in this goroutine-based realization there is no separate
// "use_caller return target" to select, since SwapOut always returns
// to whichever goroutine called SwapIn - so the flag is ignored here (scheduler.Scheduler is the one that cares
// about use-caller wiring, at the worker level, not at the fiber
// level).
func New(cb func(), stackSize uint64, runOnCaller bool) *Fiber {
	_ = runOnCaller
	if stackSize == 0 {
		stackSize = DefaultStackSize()
	}
	f := &Fiber{
		id:        totalCount.Add(1),
		stackSize: stackSize,
		owned:     true,
		state:     Init,
		cb:        cb,
		resume:    make(chan struct{}),
		parked:    make(chan struct{}),
	}
	f.name = fmt.Sprintf("fiber-%d", f.id)
	go f.loop()
	return f
}

// newBootstrap wraps an existing (non-fiber-owned) goroutine as the
// bootstrap fiber representing its native stack. It starts, and stays,
// Exec.
func newBootstrap() *Fiber {
	return &Fiber{
		id:    totalCount.Add(1),
		owned: false,
		state: Exec,
		name:  "bootstrap",
	}
}

// ID returns the fiber's monotonic, process-wide unique id.
func (f *Fiber) ID() uint64 { return f.id }

// StackSize returns the stack size hint this Fiber was created with.
func (f *Fiber) StackSize() uint64 { return f.stackSize }

// State returns the current lifecycle state.
func (f *Fiber) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Fiber) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Reset reassigns cb and transitions the Fiber back to Init. Only
// valid when the Fiber is not owned-but-running; i.e. in
// {Init, Term, Excep}.
func (f *Fiber) Reset(cb func()) error {
	if !f.owned {
		return ErrNotResettable
	}
	f.mu.Lock()
	if !f.state.resettable() {
		f.mu.Unlock()
		return ErrNotResettable
	}
	f.cb = cb
	f.state = Init
	f.mu.Unlock()
	return nil
}

// loop is the goroutine body backing an owned Fiber: a trampoline that
// parks on resume, runs the current callback exactly once per resume,
// and loops so Reset can reuse the same goroutine instead of spawning
// a new one.
func (f *Fiber) loop() {
	id := goroutineID()
	fiberByGoroutine.Store(id, f)
	defer fiberByGoroutine.Delete(id)

	for range f.resume {
		f.runOnce()
	}
}

func (f *Fiber) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			f.setState(Excep)
			log.Errorf(0, f.id, "fiber %d panicked: %v\n%s", f.id, r, debug.Stack())
		}
		f.parked <- struct{}{}
	}()
	f.cb()
	if f.State() == Exec {
		f.setState(Term)
	}
}

// SwapIn resumes the fiber: it must not already be Exec. The calling
// goroutine blocks until the fiber yields (Ready/Hold) or finishes
// (Term/Excep).
func (f *Fiber) SwapIn() error {
	if f.State() == Exec {
		return ErrAlreadyExec
	}
	if !f.owned {
		// Bootstrap fibers represent a native stack; "resuming" one is
		// only meaningful as a no-op re-entry marker.
		f.setState(Exec)
		return nil
	}
	f.setState(Exec)
	f.resume <- struct{}{}
	<-f.parked
	return nil
}

// SwapOut must be called from inside the fiber's own goroutine. It
// records the current state (set by the caller beforehand via
// setState, e.g. by YieldToReady/YieldToHold) and blocks until the
// worker resumes it again via SwapIn.
func (f *Fiber) SwapOut() {
	if !f.owned {
		return
	}
	f.parked <- struct{}{}
	<-f.resume
}

// Current returns the Fiber representing the calling goroutine,
// creating its bootstrap fiber on first call.
func Current() *Fiber {
	id := goroutineID()
	if v, ok := fiberByGoroutine.Load(id); ok {
		return v.(*Fiber)
	}
	f := newBootstrap()
	actual, _ := fiberByGoroutine.LoadOrStore(id, f)
	return actual.(*Fiber)
}

// CurrentID returns Current().ID(), or 0 if called outside any fiber
// context that has been observed yet.
func CurrentID() uint64 {
	id := goroutineID()
	if v, ok := fiberByGoroutine.Load(id); ok {
		return v.(*Fiber).ID()
	}
	return 0
}

// TotalCount returns the process-wide count of fibers ever created.
func TotalCount() uint64 { return totalCount.Load() }

// Hold marks the fiber Hold for a caller (typically a scheduler)
// that wants to requeue it before calling SwapOut itself, e.g. to
// publish it to a queue before yielding.
func (f *Fiber) Hold() { f.setState(Hold) }

// MarkReady marks the fiber Ready, for the same use case as Hold.
func (f *Fiber) MarkReady() { f.setState(Ready) }

// YieldToReady sets the current fiber's state to Ready and swaps out.
func YieldToReady() {
	f := Current()
	f.MarkReady()
	f.SwapOut()
}

// YieldToHold sets the current fiber's state to Hold and swaps out.
func YieldToHold() {
	f := Current()
	f.Hold()
	f.SwapOut()
}
