package lib

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// descriptorCache keeps the descriptors of already-opened directories so that
// their descendants can be opened with openat(). It is a binary min-heap
// whose root is the next node to evict: the deepest directory, and among
// equally deep ones the one with the fewest references.
type descriptorCache struct {
	heap     []*fileNode
	capacity int
}

func newDescriptorCache(capacity int) descriptorCache {
	return descriptorCache{
		heap:     make([]*fileNode, 0, capacity),
		capacity: capacity,
	}
}

func (c *descriptorCache) size() int { return len(c.heap) }

// heapCheck reports whether a may sit above b in the heap.
func heapCheck(a, b *fileNode) bool {
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return a.refcount <= b.refcount
}

func (c *descriptorCache) move(file *fileNode, i int) {
	c.heap[i] = file
	file.heapIndex = i
}

func (c *descriptorCache) bubbleUp(file *fileNode) {
	i := file.heapIndex
	for i > 0 {
		pi := (i - 1) / 2
		parent := c.heap[pi]
		if heapCheck(parent, file) {
			break
		}
		c.move(parent, i)
		i = pi
	}
	c.move(file, i)
}

func (c *descriptorCache) bubbleDown(file *fileNode) {
	i := file.heapIndex
	for {
		ci := 2*i + 1
		if ci >= len(c.heap) {
			break
		}
		child := c.heap[ci]
		if ri := ci + 1; ri < len(c.heap) && heapCheck(c.heap[ri], child) {
			ci = ri
			child = c.heap[ri]
		}
		if heapCheck(file, child) {
			break
		}
		c.move(child, i)
		i = ci
	}
	c.move(file, i)
}

func (c *descriptorCache) bubbleEither(file *fileNode) {
	i := file.heapIndex
	if i > 0 && heapCheck(file, c.heap[(i-1)/2]) {
		c.bubbleUp(file)
	} else {
		c.bubbleDown(file)
	}
}

func (c *descriptorCache) add(file *fileNode) {
	file.heapIndex = len(c.heap)
	c.heap = append(c.heap, file)
	c.bubbleUp(file)
}

func (c *descriptorCache) remove(file *fileNode) {
	i := file.heapIndex
	last := len(c.heap) - 1
	lastFile := c.heap[last]
	c.heap[last] = nil
	c.heap = c.heap[:last]
	if i != last {
		c.move(lastFile, i)
		c.bubbleEither(lastFile)
	}
}

// close closes file's descriptor and drops it from the cache.
func (c *descriptorCache) close(file *fileNode) {
	c.remove(file)
	unix.Close(file.fd)
	file.fd = -1
}

// pop evicts the root of the heap.
func (c *descriptorCache) pop() {
	c.close(c.heap[0])
}

// shrink closes one cached descriptor other than preserve and lowers the
// capacity to what remains. Used after the process ran out of descriptors.
func (c *descriptorCache) shrink(preserve *fileNode) error {
	if len(c.heap) == 0 {
		return unix.EMFILE
	}
	file := c.heap[0]
	if file == preserve {
		if len(c.heap) == 1 {
			return unix.EMFILE
		}
		i := 1
		if len(c.heap) > 2 && heapCheck(c.heap[2], c.heap[1]) {
			i = 2
		}
		file = c.heap[i]
	}
	c.close(file)
	c.capacity = len(c.heap)
	return nil
}

// reserve makes room for one more descriptor.
func (c *descriptorCache) reserve() error {
	if len(c.heap) < c.capacity {
		return nil
	}
	if len(c.heap) == 0 {
		return unix.EMFILE
	}
	c.pop()
	return nil
}

// base returns the nearest ancestor of file with an open descriptor.
func (c *descriptorCache) base(file *fileNode) *fileNode {
	base := file.parent
	for base != nil && base.fd < 0 {
		base = base.parent
	}
	return base
}

func openDirAt(atFD int, atPath string) (int, error) {
	for {
		fd, err := unix.Openat(atFD, atPath, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_DIRECTORY, 0)
		if err == unix.EINTR {
			continue
		}
		return fd, err
	}
}

// openAt opens file relative to base (the current directory when base is nil)
// and caches the descriptor. On EMFILE the cache is shrunk and the open is
// retried exactly once.
func (c *descriptorCache) openAt(file, base *fileNode, atPath string) (int, error) {
	atFD := unix.AT_FDCWD
	if base != nil {
		base.incref(c)
		atFD = base.fd
	}

	fd, err := openDirAt(atFD, atPath)
	if err == unix.EMFILE {
		if c.shrink(base) == nil {
			fd, err = openDirAt(atFD, atPath)
		}
	}

	if base != nil {
		base.decref(c)
	}
	if err != nil {
		return -1, err
	}

	if err := c.reserve(); err != nil {
		unix.Close(fd)
		return -1, err
	}
	file.fd = fd
	c.add(file)
	return fd, nil
}

// open opens file, whose full path is path, as a directory.
func (c *descriptorCache) open(file *fileNode, path string) (int, error) {
	base := c.base(file)
	atPath := path
	if base != nil {
		atPath = path[base.childNameOffset():]
	}

	fd, err := c.openAt(file, base, atPath)
	if err != unix.ENAMETOOLONG {
		return fd, err
	}

	// Walk down from base one component at a time.
	var chain []*fileNode
	for cur := file; cur != base; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		name := cur.name
		if cur.parent == nil {
			name = path[:cur.pathLen()]
		}
		if cur.fd >= 0 {
			base = cur
			continue
		}
		fd, err = c.openAt(cur, base, name)
		if err != nil {
			return -1, err
		}
		base = cur
	}
	return fd, nil
}

// dup duplicates file's cached descriptor for reading, with the same single
// shrink-and-retry as open.
func (c *descriptorCache) dup(file *fileNode) (int, error) {
	fd, err := unix.FcntlInt(uintptr(file.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err == unix.EMFILE {
		if c.shrink(file) == nil {
			fd, err = unix.FcntlInt(uintptr(file.fd), unix.F_DUPFD_CLOEXEC, 0)
		}
	}
	return fd, err
}

// destroy closes everything still cached.
func (c *descriptorCache) destroy() error {
	var first error
	for len(c.heap) > 0 {
		file := c.heap[len(c.heap)-1]
		c.heap = c.heap[:len(c.heap)-1]
		if err := unix.Close(file.fd); err != nil && first == nil {
			first = errors.Wrapf(err, "close cached directory %s", file.name)
		}
		file.fd = -1
	}
	return first
}
