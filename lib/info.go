package lib

// FileInfo describes one visit. It is only valid during the callback.
type FileInfo struct {
	// Path is the path of the file, starting with the root it was found under.
	Path string
	// NameOffset is the offset of the file's name within Path.
	NameOffset int
	// Root is the root path this file was found under.
	Root string
	// Depth is 0 for roots, 1 for their entries, and so on.
	Depth int
	Phase Phase
	Type  FileType
	// Err is set when Type is TypeError.
	Err error

	// AtFD and AtPath name the file for *at() calls: AtPath is relative to
	// the open directory AtFD, or AtFD is unix.AT_FDCWD and AtPath == Path.
	AtFD   int
	AtPath string

	// StatFlags are the flags the walk used to stat this file.
	StatFlags StatFlags

	cache statCache

	// readErr marks the synthetic visit that reports a failure to read a
	// directory, as opposed to a failure to stat an entry.
	readErr bool
	// mountPruned marks a directory the walk will not descend into because
	// it is a mount point, whatever the callback returns.
	mountPruned bool
}

// Name returns the last component of Path.
func (f *FileInfo) Name() string { return f.Path[f.NameOffset:] }
