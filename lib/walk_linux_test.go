package lib

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

// findMountUnder returns a non-empty mount point whose parent directory is
// on a different device, or skips the test.
func findMountUnder(t *testing.T, mtab *Mtab) (parent, mount string) {
	t.Helper()
	for _, candidate := range []string{"/dev/pts", "/dev/shm", "/dev/mqueue", "/proc/sys/fs/binfmt_misc", "/sys/fs/cgroup"} {
		if !mtab.IsPossibleMountPoint(candidate) {
			continue
		}
		var st, parentSt unix.Stat_t
		if unix.Lstat(candidate, &st) != nil || unix.Stat(filepath.Dir(candidate), &parentSt) != nil {
			continue
		}
		if st.Dev == parentSt.Dev || st.Mode&unix.S_IFMT != unix.S_IFDIR {
			continue
		}
		if entries, err := os.ReadDir(candidate); err != nil || len(entries) == 0 {
			continue
		}
		return filepath.Dir(candidate), candidate
	}
	t.Skip("no suitable mount point")
	return "", ""
}

func TestWalk_mountBoundaries(t *testing.T) {
	mtab, err := LoadMountTable()
	if err != nil {
		t.Skipf("no mount table: %v", err)
	}
	parent, mount := findMountUnder(t, mtab)
	name := filepath.Base(mount)

	// Only the mount point is descended into, everything else beside it is pruned.
	only := func(info *FileInfo) Action {
		if info.Depth == 1 && info.Name() != name {
			return Prune
		}
		return Continue
	}
	walk := func(flags Flags) (sawMount bool, sawInside bool) {
		events := collectEvents(t, WalkArgs{Paths: []string{parent}, Flags: flags | FlagRecover, Mtab: mtab, Callback: only})
		for _, e := range events {
			switch {
			case e.path == mount:
				sawMount = true
			case len(e.path) > len(mount) && e.path[:len(mount)+1] == mount+"/":
				sawInside = true
			}
		}
		return sawMount, sawInside
	}

	if sawMount, sawInside := walk(0); !sawMount || !sawInside {
		t.Errorf("plain walk: mount seen %v, contents seen %v", sawMount, sawInside)
	}
	if sawMount, sawInside := walk(FlagPruneMounts); !sawMount || sawInside {
		t.Errorf("FlagPruneMounts: mount seen %v, contents seen %v", sawMount, sawInside)
	}
	if sawMount, sawInside := walk(FlagSkipMounts); sawMount || sawInside {
		t.Errorf("FlagSkipMounts: mount seen %v, contents seen %v", sawMount, sawInside)
	}
}
