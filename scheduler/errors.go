package scheduler

import "errors"

var (
	// ErrShutdown is returned by Schedule/ScheduleAll once Stop has
	// been called and the scheduler is no longer accepting work.
	ErrShutdown = errors.New("scheduler: already stopped")

	// ErrNoWorkers reports a non-positive thread count. NewScheduler
	// does not return it: it clamps such a count to 1.
	ErrNoWorkers = errors.New("scheduler: thread count must be positive")
)
