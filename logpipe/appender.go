package logpipe

import (
	"io"
	"os"
	"sync"
)

// Appender receives formatted log entries. Implementations must be
// safe for concurrent use: Logger guards its appender list with a
// spin-lock but calls the appenders outside it, so one Appender may be
// called concurrently by the same Logger.
type Appender interface {
	Append(e Entry, formatted string)
}

// ConsoleAppender writes formatted entries to an io.Writer, defaulting
// to os.Stdout.
type ConsoleAppender struct {
	mu  sync.Mutex
	Out io.Writer
}

// NewConsoleAppender returns a ConsoleAppender writing to os.Stdout.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{Out: os.Stdout}
}

func (a *ConsoleAppender) Append(_ Entry, formatted string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = io.WriteString(a.Out, formatted)
}

// FileAppender appends formatted entries to a file opened in
// append-only mode, suitable for log rotation by external tools
// (the file is reopened by calling Reopen after a rename).
type FileAppender struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFileAppender opens path for appending, creating it if necessary.
func NewFileAppender(path string) (*FileAppender, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileAppender{path: path, f: f}, nil
}

func (a *FileAppender) Append(_ Entry, formatted string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = io.WriteString(a.f, formatted)
}

// Reopen closes and reopens the underlying file, for use after an
// external log-rotation rename.
func (a *FileAppender) Reopen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.f.Close()
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	a.f = f
	return nil
}

// Close closes the underlying file.
func (a *FileAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.f.Close()
}
