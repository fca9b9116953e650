package scheduler

import "github.com/go-sylar/sylar/fiber"

// noThreadHint means "any worker may run this task", the default for
// the thread-affinity hint accepted by Schedule/SwitchTo.
const noThreadHint int64 = -1

// task is a unit of pending work: either a plain callback (run inside
// the worker's cached callback helper fiber, see runCallback) or an
// existing Fiber being resumed.
type task struct {
	fn     func()
	fib    *fiber.Fiber
	thread int64
}
