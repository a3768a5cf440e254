//go:build darwin

package lib

import (
	"time"

	"golang.org/x/sys/unix"
)

func newStatInfo(st *unix.Stat_t) *StatInfo {
	return &StatInfo{
		Dev:    uint64(st.Dev),
		Ino:    st.Ino,
		Mode:   uint32(st.Mode),
		Nlink:  uint64(st.Nlink),
		UID:    st.Uid,
		GID:    st.Gid,
		Rdev:   uint64(st.Rdev),
		Size:   st.Size,
		Blocks: st.Blocks,
		Atime:  time.Unix(st.Atim.Unix()),
		Mtime:  time.Unix(st.Mtim.Unix()),
		Ctime:  time.Unix(st.Ctim.Unix()),
	}
}
