package logpipe

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// Logger holds a level, a set of appenders guarded by a CAS spin-lock,
// and a format pattern.
type Logger struct {
	name    string
	level   atomic.Int32
	lock    spinlock
	appends []Appender
	pattern atomic.Pointer[Pattern]
}

func newLogger(name string) *Logger {
	l := &Logger{name: name}
	l.level.Store(int32(LevelInfo))
	l.pattern.Store(NewPattern(DefaultPatternText))
	return l
}

// SetLevel sets the minimum level this Logger will emit.
func (l *Logger) SetLevel(lv Level) { l.level.Store(int32(lv)) }

// Level returns the current minimum level.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

// SetPattern recompiles the Logger's format pattern.
func (l *Logger) SetPattern(text string) { l.pattern.Store(NewPattern(text)) }

// AddAppender registers a new appender, under the spin-lock.
func (l *Logger) AddAppender(a Appender) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.appends = append(l.appends, a)
}

// ClearAppenders removes every registered appender.
func (l *Logger) ClearAppenders() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.appends = nil
}

// IsEnabled reports whether lv would be emitted by this Logger.
func (l *Logger) IsEnabled(lv Level) bool { return lv >= l.Level() }

// Log emits a log line at lv if enabled, attributing it to the calling
// fiber/thread via the ids passed in (fiber and scheduler pass their
// own current ids; callers with no fiber context may pass 0).
func (l *Logger) Log(lv Level, threadID, fiberID uint64, msg string) {
	l.emit(lv, threadID, fiberID, msg, 2)
}

func (l *Logger) emit(lv Level, threadID, fiberID uint64, msg string, skip int) {
	if !l.IsEnabled(lv) {
		return
	}
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file, line = "???", 0
	}
	e := Entry{
		Time:     time.Now(),
		Level:    lv,
		Logger:   l.name,
		ThreadID: threadID,
		FiberID:  fiberID,
		File:     file,
		Line:     line,
		Message:  msg,
	}
	formatted := l.pattern.Load().Format(e)

	l.lock.Lock()
	appends := l.appends
	l.lock.Unlock()
	if len(appends) == 0 {
		if root := Root(); root != l {
			root.lock.Lock()
			appends = root.appends
			root.lock.Unlock()
		}
	}

	for _, a := range appends {
		a.Append(e, formatted)
	}
}

func (l *Logger) Debugf(threadID, fiberID uint64, format string, args ...any) {
	l.emit(LevelDebug, threadID, fiberID, fmt.Sprintf(format, args...), 2)
}

func (l *Logger) Infof(threadID, fiberID uint64, format string, args ...any) {
	l.emit(LevelInfo, threadID, fiberID, fmt.Sprintf(format, args...), 2)
}

func (l *Logger) Warnf(threadID, fiberID uint64, format string, args ...any) {
	l.emit(LevelWarn, threadID, fiberID, fmt.Sprintf(format, args...), 2)
}

func (l *Logger) Errorf(threadID, fiberID uint64, format string, args ...any) {
	l.emit(LevelError, threadID, fiberID, fmt.Sprintf(format, args...), 2)
}
