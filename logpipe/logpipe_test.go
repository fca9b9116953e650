package logpipe_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-sylar/sylar/logpipe"
)

func TestConsoleAppenderReceivesFormattedLine(t *testing.T) {
	var buf bytes.Buffer
	l := logpipe.Get("test.console")
	l.ClearAppenders()
	l.AddAppender(&logpipe.ConsoleAppender{Out: &buf})
	l.SetLevel(logpipe.LevelDebug)

	l.Infof(7, 9, "hello %s", "world")
	out := buf.String()
	require.Contains(t, out, "hello world")
	require.Contains(t, out, "[test.console]")
}

func TestIsEnabledRespectsLevel(t *testing.T) {
	l := logpipe.Get("test.level")
	l.SetLevel(logpipe.LevelWarn)
	require.False(t, l.IsEnabled(logpipe.LevelDebug))
	require.False(t, l.IsEnabled(logpipe.LevelInfo))
	require.True(t, l.IsEnabled(logpipe.LevelWarn))
	require.True(t, l.IsEnabled(logpipe.LevelError))
}

func TestGetReturnsSameLoggerForSameName(t *testing.T) {
	require.Same(t, logpipe.Get("test.same"), logpipe.Get("test.same"))
}

func TestRootFallbackForEmptyOrRootName(t *testing.T) {
	require.Same(t, logpipe.Root(), logpipe.Get(""))
	require.Same(t, logpipe.Root(), logpipe.Get("root"))
}

func TestPatternFormatsKnownVerbs(t *testing.T) {
	p := logpipe.NewPattern("%p|%c|%m%n")
	e := logpipe.Entry{Level: logpipe.LevelError, Logger: "p.test", Message: "boom"}
	got := p.Format(e)
	require.Equal(t, "ERROR|p.test|boom\n", got)
}

func TestPatternUnknownVerbMarksError(t *testing.T) {
	p := logpipe.NewPattern("%q")
	got := p.Format(logpipe.Entry{})
	require.True(t, strings.Contains(got, "error_format %q"))
}

func TestVisitIncludesRootAndNamedLoggers(t *testing.T) {
	logpipe.Get("test.visit.named")
	seenRoot, seenNamed := false, false
	logpipe.Visit(func(l *logpipe.Logger) {
		switch l {
		case logpipe.Root():
			seenRoot = true
		case logpipe.Get("test.visit.named"):
			seenNamed = true
		}
	})
	require.True(t, seenRoot)
	require.True(t, seenNamed)
}
