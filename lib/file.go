package lib

// fileNode is one directory (or, in batch mode, any file) that the walk has
// queued. Children hold a reference on their parent, so a node lives until
// it and all of its descendants are finished.
type fileNode struct {
	parent *fileNode
	root   *fileNode
	next   *fileNode // queue link

	depth int
	typ   FileType

	// descend is set once the node's pre-order visit asked to enter it.
	descend bool

	hasID bool
	dev   uint64
	ino   uint64

	refcount  int
	fd        int
	heapIndex int

	name    string
	nameOff int
}

// newFileNode allocates a child of parent (or a root when parent is nil)
// and takes a reference on the parent.
func newFileNode(cache *descriptorCache, parent *fileNode, name string) *fileNode {
	file := &fileNode{
		parent:   parent,
		name:     name,
		typ:      TypeUnknown,
		refcount: 1,
		fd:       -1,
	}
	if parent != nil {
		file.root = parent.root
		file.depth = parent.depth + 1
		file.nameOff = parent.childNameOffset()
		parent.incref(cache)
	} else {
		file.root = file
	}
	return file
}

// childNameOffset is where a child's name starts in the full path.
func (f *fileNode) childNameOffset() int {
	off := f.nameOff + len(f.name)
	if off > 0 && f.name[len(f.name)-1] != '/' {
		off++
	}
	return off
}

func (f *fileNode) pathLen() int { return f.nameOff + len(f.name) }

func (f *fileNode) incref(cache *descriptorCache) {
	f.refcount++
	if f.fd >= 0 {
		cache.bubbleDown(f)
	}
}

func (f *fileNode) decref(cache *descriptorCache) int {
	f.refcount--
	if f.fd >= 0 {
		cache.bubbleUp(f)
	}
	return f.refcount
}

func (f *fileNode) setID(st *StatInfo) {
	f.dev = st.Dev
	f.ino = st.Ino
	f.hasID = true
}

// buildPath rewrites path so that it holds the path of file, reusing the
// prefix it shares with previous (the last node whose path was built).
func buildPath(path *pathBuffer, file, previous *fileNode) {
	path.resize(file.pathLen())

	ancestor := previous
	for ancestor != nil && ancestor.depth > file.depth {
		ancestor = ancestor.parent
	}

	for file != nil && file != ancestor {
		if file.nameOff > 0 {
			path.setByte(file.nameOff-1, '/')
		}
		path.copyAt(file.nameOff, file.name)

		if ancestor != nil && ancestor.depth == file.depth {
			ancestor = ancestor.parent
		}
		file = file.parent
	}
}
