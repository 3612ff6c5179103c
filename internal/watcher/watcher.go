package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/logging"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/blackwell-systems/projclean/internal/store"
)

// DefaultDebounce is the quiet period required before a rescan.
const DefaultDebounce = 2 * time.Second

// ScanFunc receives the outcome of every rescan. It runs on the watcher's
// goroutine.
type ScanFunc func(res *cleaner.ScanResult, err error)

// Options tunes a Watcher. The zero value is usable.
type Options struct {
	Debounce      time.Duration
	Store         *store.Store // when set, every rescan is recorded
	Logger        *logging.Logger
	OneFilesystem bool
}

// Watcher rescans a root whenever its tree changes.
type Watcher struct {
	root     string
	set      *rules.Set
	onScan   ScanFunc
	debounce time.Duration
	store    *store.Store
	logger   *logging.Logger
	engine   *cleaner.Engine

	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	watched map[string]struct{}
}

// New creates a Watcher for root. Nothing is watched until Start.
func New(root string, set *rules.Set, onScan ScanFunc, opts Options) (*Watcher, error) {
	if set == nil {
		return nil, fmt.Errorf("rule set cannot be nil")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	// A missing root is reported by Start.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		root:     abs,
		set:      set,
		onScan:   onScan,
		debounce: opts.Debounce,
		store:    opts.Store,
		logger:   opts.Logger,
		engine:   cleaner.New(cleaner.WithLogger(opts.Logger), cleaner.WithOneFilesystem(opts.OneFilesystem)),
		stopCh:   make(chan struct{}),
		watched:  make(map[string]struct{}),
	}, nil
}

// Start registers the watches, runs an initial scan and begins processing
// events. The watcher stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return err
	}
	w.logger.Infof("watching %s (%d directories)", w.root, len(w.Watched()))

	w.rescan(ctx)

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop halts the watcher and waits for the event loop to exit. It is safe
// to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	w.wg.Wait()
	return err
}

// Root returns the absolute root being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Watched returns the watched directories in lexical order.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for d := range w.watched {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("watcher error: %v", err)

		case <-timerC:
			timerC = nil
			w.rescan(ctx)

		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		}
	}
}

// handle keeps the watch set in step with directory creation and removal.
func (w *Watcher) handle(ev fsnotify.Event) {
	w.logger.Debugf("event %s", ev)

	switch {
	case ev.Has(fsnotify.Create):
		if err := w.addTree(ev.Name); err != nil {
			w.logger.Warnf("failed to watch %s: %v", ev.Name, err)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.forget(ev.Name)
	}
}

// addTree watches dir and every directory beneath it that is neither
// protected nor matched. Non-directories are ignored.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			w.logger.Warnf("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		_, seen := w.watched[path]
		w.mu.Unlock()
		if seen {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			if path == w.root {
				return err
			}
			w.logger.Warnf("failed to watch %s: %v", path, err)
			return filepath.SkipDir
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return nil
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	if w.set.Protected(rel, path) {
		return true
	}
	_, matched := w.set.Match(rel, true)
	return matched
}

// forget drops path and anything below it from the watch set. fsnotify
// removes the kernel watch itself.
func (w *Watcher) forget(path string) {
	prefix := path + string(filepath.Separator)
	w.mu.Lock()
	defer w.mu.Unlock()
	for d := range w.watched {
		if d == path || (len(d) > len(prefix) && d[:len(prefix)] == prefix) {
			delete(w.watched, d)
		}
	}
}

func (w *Watcher) rescan(ctx context.Context) {
	res, err := w.engine.Scan(ctx, w.root, w.set)
	if err != nil {
		w.logger.Errorf("rescan of %s failed: %v", w.root, err)
	} else if w.store != nil {
		if err := w.store.InsertScan(res); err != nil {
			w.logger.Warnf("failed to record scan: %v", err)
		}
	}
	if w.onScan != nil {
		w.onScan(res, err)
	}
}
