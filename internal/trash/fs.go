package trash

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// rename is os.Rename; tests swap it to force the cross-device path.
var rename = os.Rename

// move renames src to dst, falling back to copy-and-delete when the two are
// on different filesystems. placed reports whether dst holds a complete
// copy of src, which stays true when the copy landed but src could not be
// removed afterwards.
func move(src, dst string) (placed bool, err error) {
	err = rename(src, dst)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) {
		return false, err
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false, err
	}

	if cerr := copyTree(src, dst); cerr != nil {
		os.RemoveAll(dst)
		return false, fmt.Errorf("rename failed (%v) and copy failed: %w", err, cerr)
	}
	if rerr := os.RemoveAll(src); rerr != nil {
		return true, fmt.Errorf("copied to %s but failed to remove original: %w", dst, rerr)
	}
	return true, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			// Sockets, devices and pipes are not worth keeping.
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeManifest writes data to path atomically via a temp file and rename.
func writeManifest(path string, data *ManifestData) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), manifestFile+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(jsonData)); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync manifest file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	committed = true
	return nil
}

// loadManifest reads and parses a manifest JSON file.
func loadManifest(path string) (*ManifestData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest ManifestData
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}

	return &manifest, nil
}
