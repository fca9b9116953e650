package logpipe

import (
	"io"

	"github.com/rs/zerolog"
)

// ZerologAppender adapts Entry values onto a github.com/rs/zerolog.Logger,
// giving the pattern-formatted pipeline an optional structured-JSON sink.
type ZerologAppender struct {
	zl zerolog.Logger
}

// NewZerologAppender builds an appender writing JSON lines to w.
func NewZerologAppender(w io.Writer) *ZerologAppender {
	return &ZerologAppender{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func (a *ZerologAppender) Append(e Entry, _ string) {
	var ev *zerolog.Event
	switch e.Level {
	case LevelDebug:
		ev = a.zl.Debug()
	case LevelWarn:
		ev = a.zl.Warn()
	case LevelError:
		ev = a.zl.Error()
	default:
		ev = a.zl.Info()
	}
	ev.Str("logger", e.Logger).
		Uint64("thread_id", e.ThreadID).
		Uint64("fiber_id", e.FiberID).
		Str("file", e.File).
		Int("line", e.Line).
		Msg(e.Message)
}
