package lib

import (
	"path/filepath"
	"testing"
)

// openChain opens root and each directory below it along dirs, returning the nodes.
func openChain(t *testing.T, cache *descriptorCache, root string, dirs ...string) []*fileNode {
	t.Helper()
	nodes := []*fileNode{newFileNode(cache, nil, root)}
	path := root
	if _, err := cache.open(nodes[0], path); err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	for _, dir := range dirs {
		parent := nodes[len(nodes)-1]
		node := newFileNode(cache, parent, dir)
		path = filepath.Join(path, dir)
		if _, err := cache.open(node, path); err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func TestHeapCheck_deeperThenFewerReferences(t *testing.T) {
	shallow := &fileNode{depth: 1, refcount: 1}
	deep := &fileNode{depth: 2, refcount: 5}
	if !heapCheck(deep, shallow) || heapCheck(shallow, deep) {
		t.Error("deeper directory should be evicted first")
	}
	busy := &fileNode{depth: 2, refcount: 3}
	idle := &fileNode{depth: 2, refcount: 1}
	if !heapCheck(idle, busy) || heapCheck(busy, idle) {
		t.Error("among equals the one with fewer references should be evicted first")
	}
}

func TestDescriptorCache_evictsDeepestWhenFull(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b")
	cache := newDescriptorCache(2)
	defer cache.destroy()

	nodes := openChain(t, &cache, root, "a", "b")
	if cache.size() != 2 {
		t.Fatalf("size = %d, want 2", cache.size())
	}
	// Opening b evicted a: it was deeper than the root.
	if nodes[0].fd < 0 || nodes[1].fd >= 0 || nodes[2].fd < 0 {
		t.Errorf("open descriptors root=%d a=%d b=%d", nodes[0].fd, nodes[1].fd, nodes[2].fd)
	}
	if cache.heap[0] != nodes[2] {
		t.Errorf("heap root is %s, want b", cache.heap[0].name)
	}
}

func TestDescriptorCache_referencesReorderHeap(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "x", "y")
	cache := newDescriptorCache(8)
	defer cache.destroy()

	nodes := openChain(t, &cache, root)
	x := newFileNode(&cache, nodes[0], "x")
	y := newFileNode(&cache, nodes[0], "y")
	for _, node := range []*fileNode{x, y} {
		if _, err := cache.open(node, filepath.Join(root, node.name)); err != nil {
			t.Fatal(err)
		}
	}
	x.incref(&cache)
	if cache.heap[0] != y {
		t.Errorf("heap root = %s, want the less referenced y", cache.heap[0].name)
	}
	x.decref(&cache)
	y.incref(&cache)
	if cache.heap[0] != x {
		t.Errorf("heap root = %s, want x", cache.heap[0].name)
	}
	for i, node := range cache.heap {
		if node.heapIndex != i {
			t.Errorf("%s has heapIndex %d at %d", node.name, node.heapIndex, i)
		}
	}
}

func TestDescriptorCache_shrinkKeepsPreserved(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b")
	cache := newDescriptorCache(8)
	defer cache.destroy()

	nodes := openChain(t, &cache, root, "a", "b")
	if err := cache.shrink(nodes[2]); err != nil {
		t.Fatal(err)
	}
	if nodes[2].fd < 0 {
		t.Error("shrink closed the preserved descriptor")
	}
	if cache.size() != 2 || cache.capacity != 2 {
		t.Errorf("size %d capacity %d after shrink, want 2 and 2", cache.size(), cache.capacity)
	}
	if err := cache.shrink(nil); err != nil {
		t.Fatal(err)
	}
	if err := cache.shrink(cache.heap[0]); err == nil {
		t.Error("shrinking to nothing but the preserved entry should fail")
	}
}

func TestDescriptorCache_destroyClosesAll(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b")
	cache := newDescriptorCache(8)
	nodes := openChain(t, &cache, root, "a", "b")
	if err := cache.destroy(); err != nil {
		t.Fatal(err)
	}
	if cache.size() != 0 {
		t.Errorf("size = %d after destroy", cache.size())
	}
	for _, node := range nodes {
		if node.fd != -1 {
			t.Errorf("%s still has fd %d", node.name, node.fd)
		}
	}
}

func TestDescriptorCache_openRelativeToAncestor(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b/c")
	cache := newDescriptorCache(8)
	defer cache.destroy()

	rootNode := openChain(t, &cache, root)[0]
	a := newFileNode(&cache, rootNode, "a")
	b := newFileNode(&cache, a, "b")
	c := newFileNode(&cache, b, "c")
	if base := cache.base(c); base != rootNode {
		t.Fatalf("base = %v, want the root", base)
	}
	if _, err := cache.open(c, filepath.Join(root, "a", "b", "c")); err != nil {
		t.Fatal(err)
	}
	if c.fd < 0 || a.fd >= 0 || b.fd >= 0 {
		t.Errorf("fds a=%d b=%d c=%d", a.fd, b.fd, c.fd)
	}
	if rootNode.refcount != 1+1 {
		t.Errorf("root refcount = %d, want its own plus a's", rootNode.refcount)
	}
}
