package logpipe

import "time"

// Entry is a single structured log record, filled in by a Logger and
// handed to each configured Appender.
type Entry struct {
	Time     time.Time
	Level    Level
	Logger   string // logger name, e.g. "scheduler" or "ioruntime"
	ThreadID uint64 // OS-thread-ish id, see fiber.CurrentID's sibling concept
	FiberID  uint64 // 0 outside any fiber
	File     string
	Line     int
	Message  string
}
