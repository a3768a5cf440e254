package lib

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// walkState is one in-progress walk.
type walkState struct {
	callback WalkFunc
	flags    Flags
	strategy Strategy
	mtab     MountTable
	less     func(a, b string) bool

	cache     descriptorCache
	queue     fileQueue
	batchHead **fileNode

	path pathBuffer
	// file is the node being visited or read, previous the last node whose
	// path was built into path.
	file     *fileNode
	previous *fileNode

	dir    *dirReader
	de     *dirEntry
	dirErr error

	info FileInfo
	err  error
}

func newWalkState(args *WalkArgs) *walkState {
	state := &walkState{
		callback: args.Callback,
		flags:    args.Flags,
		strategy: args.Strategy,
		mtab:     args.Mtab,
		cache:    newDescriptorCache(args.MaxOpenFDs - 1),
	}
	if args.Flags&FlagSort != 0 {
		state.less = LocaleLess()
	}
	state.queue.init()
	return state
}

// setError records err unless an earlier error is already recorded.
func (s *walkState) setError(err error) {
	if s.err == nil {
		s.err = err
	}
}

// updatePath sets path to the current file's path, plus name if given.
func (s *walkState) updatePath(name string) {
	length := 0
	if s.file != nil {
		length = s.file.pathLen()
	}
	s.path.resize(length)
	if name != "" {
		if length > 0 && s.path.lastByte() != '/' {
			s.path.appendByte('/')
		}
		s.path.appendString(name)
	}
}

// needStat reports whether the entry's type must be confirmed with stat().
func (s *walkState) needStat() bool {
	if s.flags&FlagStat != 0 {
		return true
	}
	info := &s.info
	switch info.Type {
	case TypeUnknown:
		return true
	case TypeLink:
		return info.StatFlags&StatNoFollow == 0
	case TypeDir:
		return s.flags&(FlagDetectCycles|FlagSkipMounts|FlagPruneMounts) != 0
	}
	// Linux reports the type of the mounted-over inode for bind mounts.
	if runtime.GOOS == "linux" && s.mtab != nil {
		return s.mtab.IsPossibleMountPoint(info.Path)
	}
	return false
}

// initInfo fills s.info for a visit of the current entry (when reading a
// directory), the current file (s.file), or a root (neither).
func (s *walkState) initInfo(phase Phase) {
	file := s.file
	info := &s.info
	*info = FileInfo{
		Path:      s.path.String(),
		Phase:     phase,
		Type:      TypeUnknown,
		Err:       s.dirErr,
		AtFD:      unix.AT_FDCWD,
		StatFlags: StatNoFollow,
		readErr:   s.dirErr != nil,
	}
	info.AtPath = info.Path
	info.Root = info.Path
	if file != nil {
		info.Root = file.root.name
	}

	var parent *fileNode
	switch {
	case s.de != nil:
		parent = file
		info.Depth = file.depth + 1
		info.Type = s.de.typ
		info.NameOffset = file.childNameOffset()
	case file != nil:
		parent = file.parent
		info.Depth = file.depth
		info.Type = file.typ
		info.NameOffset = file.nameOff
	}
	if parent == nil {
		info.NameOffset = baseOffset(info.Path)
	} else if parent.fd >= 0 {
		info.AtFD = parent.fd
		info.AtPath = info.Path[info.NameOffset:]
	}

	if info.Err != nil {
		info.Type = TypeError
		return
	}

	follow := s.flags&FlagFollowAll != 0 || (info.Depth == 0 && s.flags&FlagFollowRoots != 0)
	if follow {
		info.StatFlags = StatTryFollow
	}

	var st *StatInfo
	if s.needStat() {
		var err error
		st, err = info.Stat(info.StatFlags)
		if err != nil {
			info.Type = TypeError
			info.Err = err
			return
		}
		info.Type = st.Type()
	}

	if info.Type == TypeDir && s.flags&FlagDetectCycles != 0 {
		for ancestor := parent; ancestor != nil; ancestor = ancestor.parent {
			if ancestor.hasID && ancestor.dev == st.Dev && ancestor.ino == st.Ino {
				info.Type = TypeError
				info.Err = unix.ELOOP
				return
			}
		}
	}
}

// isMount reports whether the file being visited is on a different device
// than its parent.
func (s *walkState) isMount() bool {
	file := s.file
	if file == nil {
		return false
	}
	parent := file
	if s.de == nil {
		parent = file.parent
	}
	if parent == nil || !parent.hasID {
		return false
	}
	st, err := s.info.Stat(s.info.StatFlags)
	return err == nil && st.Dev != parent.dev
}

// visit calls back for name (a directory entry or root path) or, when name
// is empty, for s.file itself. A Continue result means "descend".
func (s *walkState) visit(name string, phase Phase) Action {
	s.updatePath(name)
	s.initInfo(phase)
	info := &s.info

	if info.Type == TypeError && s.flags&FlagRecover == 0 {
		s.setError(info.Err)
		return Stop
	}

	if s.flags&FlagSkipMounts != 0 && info.Type != TypeError && s.isMount() {
		return Prune
	}

	info.mountPruned = s.flags&FlagPruneMounts != 0 && phase == PhasePre && info.Type == TypeDir && s.isMount()

	switch ret := s.callback(info); ret {
	case Continue:
		if phase != PhasePre {
			return Continue
		}
		if info.Type != TypeDir || info.mountPruned {
			return Prune
		}
		return Continue
	case Prune, Stop:
		return ret
	default:
		s.setError(unix.EINVAL)
		return Stop
	}
}

// fillID records the device and inode of the last visit on file, if known.
func (s *walkState) fillID(file *fileNode) {
	if st := s.info.CachedStat(s.info.StatFlags); st != nil {
		file.setID(st)
	}
}

// push queues a new node for name under s.file. When fromVisit is set the
// node takes its type and identity from the visit that was just made.
func (s *walkState) push(name string, fromVisit bool) {
	file := newFileNode(&s.cache, s.file, name)
	switch {
	case fromVisit:
		file.typ = s.info.Type
		file.descend = true
		s.fillID(file)
	case s.de != nil:
		file.typ = s.de.typ
	}
	s.queue.push(file)
}

// pop makes the next queued node current.
func (s *walkState) pop() bool {
	file := s.queue.pop()
	if file == nil {
		return false
	}
	s.file = file
	buildPath(&s.path, file, s.previous)
	s.previous = file
	return true
}

// openDir opens s.file for reading. Failures are kept in dirErr.
func (s *walkState) openDir() {
	file := s.file
	s.dirErr = nil

	if file.fd < 0 {
		if _, err := s.cache.open(file, s.path.String()); err != nil {
			s.dirErr = err
			return
		}
	}

	fd, err := s.cache.dup(file)
	if err != nil {
		s.dirErr = err
		return
	}
	s.dir = newDirReader(fd, s.path.String())
}

// readDir advances s.de to the next entry of the open directory.
func (s *walkState) readDir() bool {
	if s.dir == nil {
		return false
	}
	de, err := s.dir.next()
	if err != nil {
		s.dirErr = err
	}
	s.de = de
	return de != nil
}

func (s *walkState) closeDir() {
	s.de = nil
	if s.dir != nil {
		s.dir.close()
		s.dir = nil
	}
}

func (s *walkState) batchStart() {
	s.batchHead = s.queue.batchStart(s.strategy == StrategyDFS)
}

func (s *walkState) batchFinish() {
	if s.less != nil && s.batchHead != nil {
		s.queue.batchSort(s.batchHead, s.less)
	}
	s.batchHead = nil
}

// freeFile releases a node whose refcount reached zero.
func (s *walkState) freeFile(file *fileNode) {
	if file.fd >= 0 {
		s.cache.close(file)
	}
	file.parent = nil
	file.next = nil
}

// gc finishes s.file: reports a pending read error, then walks up through
// the ancestors that no longer have live descendants, visiting them in
// post-order and freeing them.
func (s *walkState) gc(visit bool) Action {
	ret := Continue
	s.closeDir()

	if s.file != nil && s.dirErr != nil {
		if visit {
			if s.visit("", PhasePre) == Stop {
				ret = Stop
				visit = false
			}
		} else {
			s.setError(s.dirErr)
		}
	}
	s.dirErr = nil

	for file := s.file; file != nil; file = s.file {
		if file.decref(&s.cache) > 0 {
			s.file = nil
			break
		}

		if visit && file.descend && s.flags&FlagPostOrder != 0 {
			if s.visit("", PhasePost) == Stop {
				ret = Stop
				visit = false
			}
		}

		parent := file.parent
		if s.previous == file {
			s.previous = parent
		}
		s.freeFile(file)
		s.file = parent
	}
	return ret
}

// destroy releases everything the walk still holds and returns its result.
func (s *walkState) destroy() error {
	s.gc(false)
	for s.pop() {
		s.gc(false)
	}
	if err := s.cache.destroy(); err != nil {
		s.setError(err)
	}
	s.path = pathBuffer{}
	return s.err
}
