package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/blackwell-systems/projclean/internal/fsinfo"
	"github.com/blackwell-systems/projclean/internal/rules"
)

const maxWarnings = 500

// Scan walks root and reports every entry selected by set. A directory
// matched by a directory rule is reported once and not descended into.
// The root itself is never reported. Entries are returned in lexical
// traversal order, so scanning an unchanged tree twice yields the same
// matches.
//
// Scan fails with *NotFoundError when root does not exist and with
// *PermissionError when root cannot be read. Problems below the root are
// recorded as warnings on the result.
func (e *Engine) Scan(ctx context.Context, root string, set *rules.Set) (*ScanResult, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if err := e.beginScan(); err != nil {
		return nil, err
	}

	res, err := e.scan(ctx, root, set)
	if err != nil {
		e.endScan(nil)
		e.logger.Errorf("scan of %s failed: %v", root, err)
		return nil, err
	}
	e.endScan(res)
	e.logger.Infof("scan %s of %s: %d matches, %d bytes, %d warnings",
		res.id, res.root, len(res.matches), res.total, len(res.warnings))
	return res, nil
}

func (e *Engine) scan(ctx context.Context, root string, set *rules.Set) (*ScanResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &IOError{Path: root, Err: err}
	}
	if err := checkRoot(abs); err != nil {
		return nil, err
	}
	// WalkDir does not descend into a root that is itself a symlink.
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, Classify(root, err)
	}

	w := &walker{
		ctx:  ctx,
		root: abs,
		set:  set,
	}
	if e.oneFS {
		dev, err := fsinfo.DeviceID(abs)
		if err != nil {
			return nil, Classify(abs, err)
		}
		w.oneFS = true
		w.rootDev = dev
	}

	if err := filepath.WalkDir(abs, w.visit); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, Classify(abs, err)
	}

	res := &ScanResult{
		id:        uuid.NewString(),
		root:      abs,
		scannedAt: e.now(),
		matches:   w.matches,
		warnings:  w.warnings,
	}
	for _, m := range w.matches {
		res.total += m.Size
	}
	return res, nil
}

// checkRoot verifies that root exists, is a directory and is readable.
func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return Classify(root, err)
	}
	if !info.IsDir() {
		return &IOError{Path: root, Err: ErrNotDirectory}
	}

	f, err := os.Open(root)
	if err != nil {
		return Classify(root, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return Classify(root, err)
	}
	return nil
}

type walker struct {
	ctx      context.Context
	root     string
	set      *rules.Set
	oneFS    bool
	rootDev  uint64
	matches  []Match
	warnings []string
}

func (w *walker) warn(format string, args ...any) {
	if len(w.warnings) < maxWarnings {
		w.warnings = append(w.warnings, fmt.Sprintf(format, args...))
	}
}

func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if cerr := w.ctx.Err(); cerr != nil {
		return cerr
	}
	if path == w.root {
		return err
	}
	if err != nil {
		// Unreadable directory below the root: keep going without it.
		w.warn("cannot read %s: %v", path, err)
		return nil
	}

	relOS, err := filepath.Rel(w.root, path)
	if err != nil {
		w.warn("cannot resolve %s: %v", path, err)
		return nil
	}
	rel := filepath.ToSlash(relOS)
	isDir := d.IsDir()

	if w.set.Protected(rel, path) {
		if isDir {
			return fs.SkipDir
		}
		return nil
	}

	if isDir && w.oneFS {
		dev, err := fsinfo.DeviceID(path)
		if err != nil {
			w.warn("cannot stat %s: %v", path, err)
			return fs.SkipDir
		}
		if dev != w.rootDev {
			w.warn("skipping %s: on a different filesystem", path)
			return fs.SkipDir
		}
	}

	rule, ok := w.set.Match(rel, isDir)
	if !ok {
		return nil
	}

	kind := rules.KindFile
	var size int64
	if isDir {
		kind = rules.KindDir
		size = w.treeSize(path)
	} else if info, err := d.Info(); err == nil {
		size = info.Size()
	} else {
		w.warn("cannot stat %s: %v", path, err)
	}

	w.matches = append(w.matches, Match{
		Path:    path,
		RelPath: rel,
		Kind:    kind,
		Size:    size,
		Rule:    rule,
	})

	if isDir {
		return fs.SkipDir
	}
	return nil
}

// treeSize sums the sizes of regular files beneath dir without following
// symlinks.
func (w *walker) treeSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.warn("cannot read %s: %v", path, err)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			w.warn("cannot stat %s: %v", path, err)
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
