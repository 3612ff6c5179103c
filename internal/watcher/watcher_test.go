package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/rules"
)

type scanEvent struct {
	res *cleaner.ScanResult
	err error
}

func testSet(t *testing.T) *rules.Set {
	t.Helper()
	set, err := rules.NewSet([]rules.Rule{{Pattern: "build", Kind: rules.KindDir}}, ".git")
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func startWatcher(t *testing.T, root string, opts Options) (*Watcher, <-chan scanEvent) {
	t.Helper()
	events := make(chan scanEvent, 16)
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	w, err := New(root, testSet(t), func(res *cleaner.ScanResult, err error) {
		select {
		case events <- scanEvent{res, err}:
		default:
		}
	}, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w, events
}

func nextScan(t *testing.T, events <-chan scanEvent) *cleaner.ScanResult {
	t.Helper()
	select {
	case ev := <-events:
		if ev.err != nil {
			t.Fatalf("scan error = %v", ev.err)
		}
		return ev.res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a rescan")
		return nil
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(t.TempDir(), nil, nil, Options{}); err == nil {
		t.Error("New() with nil set should fail")
	}
	bad := &rules.Set{Rules: []rules.Rule{{Pattern: "", Kind: rules.KindDir}}}
	if _, err := New(t.TempDir(), bad, nil, Options{}); err == nil {
		t.Error("New() with an invalid set should fail")
	}

	w, err := New(t.TempDir(), testSet(t), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestStart_SkipsMatchedAndProtectedDirs(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "app/src", "app/build/cache", ".git/objects")

	w, events := startWatcher(t, root, Options{})
	res := nextScan(t, events)
	if res.Len() != 1 {
		t.Errorf("initial scan found %d matches, want 1", res.Len())
	}

	watched := map[string]bool{}
	for _, d := range w.Watched() {
		watched[d] = true
	}
	for _, want := range []string{root, filepath.Join(root, "app"), filepath.Join(root, "app", "src")} {
		if !watched[want] {
			t.Errorf("%s should be watched; watched = %v", want, w.Watched())
		}
	}
	for _, skip := range []string{filepath.Join(root, "app", "build"), filepath.Join(root, "app", "build", "cache"), filepath.Join(root, ".git")} {
		if watched[skip] {
			t.Errorf("%s should not be watched", skip)
		}
	}
}

func TestStart_SymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	mkdirs(t, target, "app/src", "app/build")
	link := filepath.Join(t.TempDir(), "src")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not available: %v", err)
	}

	w, events := startWatcher(t, link, Options{})
	if res := nextScan(t, events); res.Len() != 1 {
		t.Errorf("initial scan found %d matches, want 1", res.Len())
	}

	resolved, _ := filepath.EvalSymlinks(target)
	watched := map[string]bool{}
	for _, d := range w.Watched() {
		watched[d] = true
	}
	if !watched[filepath.Join(resolved, "app", "src")] {
		t.Errorf("expected the linked tree to be watched; watched = %v", w.Watched())
	}
}

func TestRescanAfterChange(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "app/src")

	w, events := startWatcher(t, root, Options{})
	if res := nextScan(t, events); res.Len() != 0 {
		t.Fatalf("initial scan found %d matches, want 0", res.Len())
	}

	// New directories are followed, and a matched one shows up on rescan.
	mkdirs(t, root, "lib")
	mkdirs(t, root, "app/build")
	if err := os.WriteFile(filepath.Join(root, "app", "build", "out"), []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.err != nil {
				t.Fatalf("scan error = %v", ev.err)
			}
			if ev.res.Len() == 1 {
				for _, d := range w.Watched() {
					if d == filepath.Join(root, "app", "build") {
						t.Error("newly created matched dir should not be watched")
					}
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for a rescan with the new match")
		}
	}
}

func TestRescanRecordsHistory(t *testing.T) {
	st := setupTestStore(t)
	root := t.TempDir()
	mkdirs(t, root, "app/build")

	_, events := startWatcher(t, root, Options{Store: st})
	res := nextScan(t, events)

	rec, err := st.GetScan(res.ID())
	if err != nil {
		t.Fatalf("GetScan() error = %v", err)
	}
	if rec.MatchCount != 1 {
		t.Errorf("recorded MatchCount = %d, want 1", rec.MatchCount)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w, _ := startWatcher(t, t.TempDir(), Options{})
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	w, err := New(t.TempDir(), testSet(t), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start() error = %v, want nil", err)
	}
}

func TestStart_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), testSet(t), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("Start() on a missing root should fail")
	}
}

func TestForget(t *testing.T) {
	w, err := New(t.TempDir(), testSet(t), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(w.root, "a")
	w.watched[a] = struct{}{}
	w.watched[filepath.Join(a, "b")] = struct{}{}
	w.watched[filepath.Join(w.root, "ab")] = struct{}{}

	w.forget(a)
	if len(w.watched) != 1 {
		t.Errorf("watched after forget = %v", w.Watched())
	}
}
