package lib

import (
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"github.com/pkg/errors"
)

// MountTable answers whether a path might be a mount point.
type MountTable interface {
	IsPossibleMountPoint(path string) bool
}

// Mtab is a snapshot of the system's mount points, indexed by base name so
// that a lookup never needs the absolute path of the file being checked.
type Mtab struct {
	names map[string]struct{}
	count int
}

// LoadMountTable reads the current mount points.
func LoadMountTable() (*Mtab, error) {
	mounts, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading mount table")
	}
	mountpoints := make([]string, 0, len(mounts))
	for _, m := range mounts {
		mountpoints = append(mountpoints, m.Mountpoint)
	}
	return newMtab(mountpoints), nil
}

func newMtab(mountpoints []string) *Mtab {
	mtab := &Mtab{names: make(map[string]struct{}, len(mountpoints))}
	for _, mountpoint := range mountpoints {
		mtab.names[filepath.Base(mountpoint)] = struct{}{}
		mtab.count++
	}
	return mtab
}

// Len is the number of mount points in the table.
func (m *Mtab) Len() int { return m.count }

// IsPossibleMountPoint reports whether some mount point has the same base
// name as path. False positives are possible, false negatives are not.
func (m *Mtab) IsPossibleMountPoint(path string) bool {
	if m == nil {
		return false
	}
	_, ok := m.names[filepath.Base(path)]
	return ok
}
