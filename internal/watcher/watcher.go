// Package watcher reports bursts of file system changes under a set of
// directory trees.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// DefaultDebounce is the quiet period that ends a burst.
const DefaultDebounce = 300 * time.Millisecond

// EventKind classifies a change.
type EventKind uint8

// Event kinds.
const (
	EventAdded EventKind = iota + 1
	EventModified
	EventRemoved
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one observed change.
type Event struct {
	Kind EventKind
	Path string
	Time time.Time
}

// BurstCallback receives the events of one burst, oldest first. It runs
// on the watcher goroutine and should not block.
type BurstCallback func([]Event)

// ErrorCallback is called when the watcher reports an error.
type ErrorCallback func(error)

// Watcher watches directory trees recursively and calls back once per
// burst of changes. Hidden entries are ignored.
type Watcher struct {
	paths         []string
	watcher       *fsnotify.Watcher
	callback      BurstCallback
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu        sync.Mutex
	watched   map[string]struct{}
	started   bool
	stopped   bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// Option is a functional option for configuring the watcher.
type Option func(*Watcher)

// WithDebounceDelay sets the quiet period that ends a burst.
func WithDebounceDelay(delay time.Duration) Option {
	return func(w *Watcher) {
		if delay > 0 {
			w.debounceDelay = delay
		}
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) Option {
	return func(w *Watcher) {
		w.errorCallback = callback
	}
}

// New creates a watcher for paths. Nothing is watched until Start.
func New(paths []string, callback BurstCallback, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:       fsWatcher,
		callback:      callback,
		debounceDelay: DefaultDebounce,
		logger:        observability.NopLogger(),
		watched:       make(map[string]struct{}),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}

	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsWatcher.Close()
			return nil, err
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		w.paths = append(w.paths, abs)
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start attaches to every path and begins delivering bursts. A path that
// cannot be watched is logged as a WatchError and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return util.ErrInvalidState
	}
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	for _, p := range w.paths {
		if err := w.addTree(p); err != nil {
			w.reportError(util.NewWatchError(p, err))
		}
	}

	w.logger.Info("watching for route changes",
		observability.Strings("paths", w.paths),
		observability.Duration("debounce", w.debounceDelay),
	)

	go w.run(ctx, w.watcher.Events, w.watcher.Errors)

	return nil
}

// Stop releases all watch handles. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		started := w.started
		w.stopped = true
		w.mu.Unlock()

		close(w.stopCh)
		if started {
			<-w.stoppedCh
		}
		err = w.watcher.Close()
	})
	return err
}

// Watched returns the directories currently watched, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for p := range w.watched {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return util.ErrNotFound
		}
		return err
	}
	if !info.IsDir() {
		return w.add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("skipping unreadable directory",
				observability.String("path", path),
				observability.Error(err),
			)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.add(path); err != nil {
			w.reportError(util.NewWatchError(path, err))
		}
		return nil
	})
}

func (w *Watcher) add(path string) error {
	if err := w.watcher.Add(path); err != nil {
		return err
	}
	w.mu.Lock()
	w.watched[path] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.watched, path)
	w.mu.Unlock()
}

// run is the main watch loop.
func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	defer close(w.stoppedCh)

	var (
		debounceTimer *time.Timer
		debounceCh    <-chan time.Time
		pending       []Event
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("route watcher stopped due to context cancellation")
			return

		case <-w.stopCh:
			w.logger.Debug("route watcher stopped")
			return

		case raw, ok := <-events:
			if !ok {
				return
			}
			ev, keep := w.translate(raw)
			if !keep {
				continue
			}
			pending = append(pending, ev)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounceDelay)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			burst := pending
			pending = nil
			w.logger.Debug("route change burst",
				observability.Int("events", len(burst)),
			)
			if w.callback != nil {
				w.callback(burst)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.reportError(util.NewWatchError("", err))
		}
	}
}

// translate maps a raw notification to an Event. Directory creation
// extends the watch to the new subtree.
func (w *Watcher) translate(raw fsnotify.Event) (Event, bool) {
	name := filepath.Clean(raw.Name)
	if isHidden(filepath.Base(name)) {
		return Event{}, false
	}

	ev := Event{Path: name, Time: time.Now()}
	switch {
	case raw.Has(fsnotify.Create):
		ev.Kind = EventAdded
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addTree(name); err != nil {
				w.reportError(util.NewWatchError(name, err))
			}
		}
	case raw.Has(fsnotify.Write):
		ev.Kind = EventModified
	case raw.Has(fsnotify.Remove), raw.Has(fsnotify.Rename):
		ev.Kind = EventRemoved
		w.forget(name)
	default:
		return Event{}, false
	}
	return ev, true
}

func (w *Watcher) reportError(err error) {
	w.logger.Warn("route watcher error", observability.Error(err))
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
