package scheduler

import "github.com/go-sylar/sylar/fiber"

// worker holds one thread's per-dispatch-loop state: a bootstrap
// fiber and at most two reusable helper fibers, an idle fiber and a
// callback-execution fiber. The bootstrap fiber itself isn't stored
// here - it's whatever fiber.Current() returns for this worker's
// goroutine.
type worker struct {
	id int

	idleFiber *fiber.Fiber

	// cbFiber is the cached helper fiber used to run plain func()
	// tasks via Reset+SwapIn. It is dropped (set nil) once consumed
	// by a task that yields READY or HOLD instead of terminating,
	// since it is then busy representing that suspended task and a
	// fresh helper must be created for the next callback.
	cbFiber *fiber.Fiber
}

func newWorker(id int) *worker {
	return &worker{id: id}
}
