//go:build unix

package fsinfo

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// DeviceID returns the id of the device holding path. Symlinks are not
// followed.
func DeviceID(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	return uint64(st.Dev), nil
}
