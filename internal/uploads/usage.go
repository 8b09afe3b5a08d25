package uploads

import (
	"fmt"
	"syscall"
)

// Usage is the capacity of the filesystem holding the upload directory.
type Usage struct {
	Total     int64
	Used      int64
	Available int64
}

// Usage reports disk capacity for the upload directory.
func (s *Store) Usage() (Usage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.dir, &stat); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", s.dir, err)
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	available := int64(stat.Bavail) * int64(stat.Bsize)
	return Usage{
		Total:     total,
		Used:      total - available,
		Available: available,
	}, nil
}
