// Package fsinfo reports filesystem capacity and device identity for the
// trees projclean works on.
package fsinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// Usage describes the filesystem holding a path.
type Usage struct {
	Path        string
	Fstype      string
	Total       uint64
	Free        uint64
	Used        uint64
	UsedPercent float64
}

// DiskUsage returns capacity figures for the filesystem containing path.
func DiskUsage(path string) (*Usage, error) {
	st, err := disk.Usage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage for %s: %w", path, err)
	}
	return &Usage{
		Path:        st.Path,
		Fstype:      st.Fstype,
		Total:       st.Total,
		Free:        st.Free,
		Used:        st.Used,
		UsedPercent: st.UsedPercent,
	}, nil
}
