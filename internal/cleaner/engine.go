// Package cleaner finds build and cache artifacts under a project root and
// removes them.
//
// An Engine moves through Idle -> Scanning -> Scanned -> Cleaning -> Done.
// Clean only accepts the result of the engine's most recent Scan, so nothing
// is deleted that was not first reported.
package cleaner

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blackwell-systems/projclean/internal/logging"
)

// State is a step of the engine lifecycle.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateScanned
	StateCleaning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateScanned:
		return "scanned"
	case StateCleaning:
		return "cleaning"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// DefaultWorkers is the size of the deletion pool.
	DefaultWorkers = 4
	// MaxWorkers caps the deletion pool.
	MaxWorkers = 8
)

// Deleter removes a path and everything beneath it.
type Deleter interface {
	RemoveAll(path string) error
}

// DeleterFunc adapts a function to the Deleter interface.
type DeleterFunc func(path string) error

func (f DeleterFunc) RemoveAll(path string) error { return f(path) }

type osDeleter struct{}

func (osDeleter) RemoveAll(path string) error { return os.RemoveAll(path) }

// Option configures an Engine.
type Option func(*Engine)

// WithDeleter replaces os.RemoveAll.
func WithDeleter(d Deleter) Option {
	return func(e *Engine) {
		if d != nil {
			e.deleter = d
		}
	}
}

// WithWorkers sets the deletion pool size, clamped to [1, MaxWorkers].
func WithWorkers(n int) Option {
	return func(e *Engine) {
		switch {
		case n < 1:
			e.workers = 1
		case n > MaxWorkers:
			e.workers = MaxWorkers
		default:
			e.workers = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOneFilesystem keeps scans from crossing into other mounted filesystems.
func WithOneFilesystem(on bool) Option {
	return func(e *Engine) { e.oneFS = on }
}

// WithEntryHook registers fn to be called once per processed match during
// Clean. fn runs on worker goroutines and must be safe for concurrent use.
func WithEntryHook(fn func(CleanEntry)) Option {
	return func(e *Engine) { e.onEntry = fn }
}

// Engine runs scans and cleans. It is safe for concurrent use, but a second
// operation started while one is running fails with ErrBusy.
type Engine struct {
	mu    sync.Mutex
	state State
	last  *ScanResult

	deleter Deleter
	workers int
	logger  *logging.Logger
	oneFS   bool
	onEntry func(CleanEntry)
	now     func() time.Time
}

// New creates an Engine in the Idle state.
func New(opts ...Option) *Engine {
	e := &Engine{
		state:   StateIdle,
		deleter: osDeleter{},
		workers: DefaultWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Workers returns the configured pool size.
func (e *Engine) Workers() int {
	return e.workers
}

func (e *Engine) beginScan() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateScanning, StateCleaning:
		return fmt.Errorf("cannot scan while %s: %w", e.state, ErrBusy)
	}
	e.state = StateScanning
	e.last = nil
	return nil
}

func (e *Engine) endScan(res *ScanResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res == nil {
		e.state = StateIdle
		return
	}
	e.state = StateScanned
	e.last = res
}

func (e *Engine) beginClean(res *ScanResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateScanning, StateCleaning:
		return fmt.Errorf("cannot clean while %s: %w", e.state, ErrBusy)
	case StateScanned:
	default:
		return fmt.Errorf("engine is %s: %w", e.state, ErrNotScanned)
	}
	if res == nil || res != e.last {
		return fmt.Errorf("result is not the latest scan: %w", ErrNotScanned)
	}
	e.state = StateCleaning
	return nil
}

func (e *Engine) endClean() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateDone
	e.last = nil
}
