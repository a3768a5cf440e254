package lib

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// FileType is the kind of a visited file.
type FileType int

const (
	TypeUnknown FileType = iota
	TypeBlock
	TypeChar
	TypeDir
	TypeFIFO
	TypeLink
	TypeReg
	TypeSocket
	// TypeError marks a visit that carries an error instead of a file.
	TypeError
)

var typeNames = [...]string{"unknown", "block", "char", "dir", "fifo", "link", "file", "socket", "error"}

func (t FileType) String() string {
	if t < TypeUnknown || t > TypeError {
		return "unknown"
	}
	return typeNames[t]
}

// Letter is the find(1) -type letter for t.
func (t FileType) Letter() byte {
	return "?bcdplfs!"[t]
}

func modeToType(mode uint32) FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFBLK:
		return TypeBlock
	case unix.S_IFCHR:
		return TypeChar
	case unix.S_IFDIR:
		return TypeDir
	case unix.S_IFIFO:
		return TypeFIFO
	case unix.S_IFLNK:
		return TypeLink
	case unix.S_IFREG:
		return TypeReg
	case unix.S_IFSOCK:
		return TypeSocket
	default:
		return TypeUnknown
	}
}

// direntType maps a directory entry type to a FileType.
func direntType(mode fs.FileMode) FileType {
	switch {
	case mode&fs.ModeType == 0:
		return TypeReg
	case mode&fs.ModeDir != 0:
		return TypeDir
	case mode&fs.ModeSymlink != 0:
		return TypeLink
	case mode&fs.ModeNamedPipe != 0:
		return TypeFIFO
	case mode&fs.ModeSocket != 0:
		return TypeSocket
	case mode&fs.ModeCharDevice != 0:
		return TypeChar
	case mode&fs.ModeDevice != 0:
		return TypeBlock
	default:
		return TypeUnknown
	}
}

// StatFlags select how StatAt treats symlinks.
type StatFlags uint

const (
	// StatFollow is the zero value: symlinks are followed.
	StatFollow StatFlags = 0
	// StatNoFollow stats the link itself.
	StatNoFollow StatFlags = 1 << iota
	// StatTryFollow follows symlinks but falls back to the link when the target does not exist.
	StatTryFollow
	// StatBrokenOK follows symlinks but falls back to the link on any failure to resolve it.
	StatBrokenOK
)

// StatInfo is the subset of struct stat the walk and its callers use.
type StatInfo struct {
	Dev    uint64
	Ino    uint64
	Mode   uint32
	Nlink  uint64
	UID    uint32
	GID    uint32
	Rdev   uint64
	Size   int64
	Blocks int64
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
}

// Type derives the file type from the mode bits.
func (s *StatInfo) Type() FileType { return modeToType(s.Mode) }

func isNonexistenceError(err error) bool {
	return err == unix.ENOENT || err == unix.ENOTDIR
}

func fstatat(atFD int, atPath string, flags int) (*StatInfo, error) {
	var st unix.Stat_t
	for {
		err := unix.Fstatat(atFD, atPath, &st, flags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	return newStatInfo(&st), nil
}

// StatAt stats atPath relative to atFD (unix.AT_FDCWD for the working directory).
func StatAt(atFD int, atPath string, flags StatFlags) (*StatInfo, error) {
	if flags&StatNoFollow != 0 {
		return fstatat(atFD, atPath, unix.AT_SYMLINK_NOFOLLOW)
	}
	st, err := fstatat(atFD, atPath, 0)
	if err == nil {
		return st, nil
	}
	switch {
	case flags&StatBrokenOK != 0:
		if lst, lerr := fstatat(atFD, atPath, unix.AT_SYMLINK_NOFOLLOW); lerr == nil && lst.Type() == TypeLink {
			return lst, nil
		}
	case flags&StatTryFollow != 0 && isNonexistenceError(err):
		if lst, lerr := fstatat(atFD, atPath, unix.AT_SYMLINK_NOFOLLOW); lerr == nil {
			return lst, nil
		}
	}
	return nil, err
}

// statSlot memoizes one stat() or its error.
type statSlot struct {
	buf *StatInfo
	err error
}

// statCache holds the follow and no-follow results for one visit.
type statCache struct {
	stat  statSlot
	lstat statSlot
}

func (s *statSlot) get(atFD int, atPath string, flags StatFlags) (*StatInfo, error) {
	if s.buf == nil && s.err == nil {
		s.buf, s.err = StatAt(atFD, atPath, flags)
	}
	return s.buf, s.err
}

// Stat returns the stat information for the file, calling stat() at most
// once per follow mode.
func (f *FileInfo) Stat(flags StatFlags) (*StatInfo, error) {
	if flags&StatNoFollow != 0 {
		st, err := f.cache.lstat.get(f.AtFD, f.AtPath, StatNoFollow)
		if st != nil && st.Type() != TypeLink && f.cache.stat.buf == nil {
			// Not a link, so both modes agree.
			f.cache.stat = statSlot{buf: st}
		}
		return st, err
	}
	st, err := f.cache.stat.get(f.AtFD, f.AtPath, StatFollow)
	if st == nil && flags&(StatTryFollow|StatBrokenOK) != 0 {
		lst, lerr := f.cache.lstat.get(f.AtFD, f.AtPath, StatNoFollow)
		if flags&StatBrokenOK != 0 && lst != nil && lst.Type() == TypeLink {
			return lst, nil
		}
		if isNonexistenceError(err) {
			return lst, lerr
		}
	}
	return st, err
}

// CachedStat returns a stat result already fetched for flags, or nil.
func (f *FileInfo) CachedStat(flags StatFlags) *StatInfo {
	if flags&StatNoFollow != 0 {
		return f.cache.lstat.buf
	}
	if f.cache.stat.buf != nil {
		return f.cache.stat.buf
	}
	if flags&(StatTryFollow|StatBrokenOK) != 0 && isNonexistenceError(f.cache.stat.err) {
		return f.cache.lstat.buf
	}
	return nil
}

// TypeOf returns the file's type as seen with flags, stat()ing only when the
// type known from the walk does not already answer the question.
func (f *FileInfo) TypeOf(flags StatFlags) FileType {
	switch {
	case flags&StatNoFollow != 0:
		if f.Type == TypeLink || f.StatFlags&StatNoFollow != 0 {
			return f.Type
		}
	case flags&(StatTryFollow|StatBrokenOK) != 0:
		if f.Type != TypeLink || f.StatFlags&(StatTryFollow|StatBrokenOK) != 0 {
			return f.Type
		}
	default:
		if f.Type != TypeLink {
			return f.Type
		}
		if f.StatFlags&(StatTryFollow|StatBrokenOK) != 0 {
			// Followed already and still a link: the target is missing.
			return TypeError
		}
	}
	st, err := f.Stat(flags)
	if err != nil {
		return TypeError
	}
	return st.Type()
}
