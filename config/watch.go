package config

import (
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a YAML config file into a Registry whenever it
// changes on disk, driving FromText on every registered variable the
// new revision touches.
type Watcher struct {
	path string
	reg  *Registry
	fsw  *fsnotify.Watcher
	done chan struct{}

	onError func(error)
}

// NewWatcher creates a Watcher for path against r. It does not start
// watching until Start is called.
func NewWatcher(r *Registry, path string, onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:    path,
		reg:     r,
		fsw:     fsw,
		done:    make(chan struct{}),
		onError: onError,
	}, nil
}

// Start performs an initial load of path and begins watching its
// containing directory for changes, applying each change via
// LoadYAMLInto. Editors that replace a file (rename-over-write) emit
// a Remove+Create pair rather than a Write, so the directory -
// not the file - is watched, matching fsnotify's documented pattern
// for following atomic file replacement.
func (w *Watcher) Start() error {
	if err := w.reload(); err != nil {
		return err
	}
	dir := parentDir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil && w.onError != nil {
				w.onError(err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	return LoadYAMLInto(w.reg, data)
}

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
