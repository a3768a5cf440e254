package lib

import (
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

// lowestFreeFD returns the descriptor the next open would get.
func lowestFreeFD(t *testing.T, from int) int {
	t.Helper()
	fd, err := unix.Dup(from)
	if err != nil {
		t.Fatal(err)
	}
	unix.Close(fd)
	return fd
}

// limitDescriptors lowers RLIMIT_NOFILE to n until the test ends.
func limitDescriptors(t *testing.T, n int) {
	t.Helper()
	var old unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &old); err != nil {
		t.Fatal(err)
	}
	limit := old
	limit.Cur = uint64(n)
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		t.Skipf("cannot lower RLIMIT_NOFILE: %v", err)
	}
	t.Cleanup(func() {
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &old); err != nil {
			t.Errorf("restoring RLIMIT_NOFILE: %v", err)
		}
	})
}

func TestDescriptorCache_openShrinksOnEMFILE(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b")
	cache := newDescriptorCache(8)
	defer cache.destroy()

	nodes := openChain(t, &cache, root, "a")
	b := newFileNode(&cache, nodes[1], "b")
	limitDescriptors(t, lowestFreeFD(t, nodes[0].fd))

	if _, err := cache.open(b, filepath.Join(root, "a", "b")); err != nil {
		t.Fatalf("open after shrinking: %v", err)
	}
	if b.fd < 0 {
		t.Fatal("b has no descriptor")
	}
	// The root went to make room for the retry, then a to keep the lowered capacity.
	if nodes[0].fd >= 0 || nodes[1].fd >= 0 {
		t.Errorf("open descriptors root=%d a=%d, want both closed", nodes[0].fd, nodes[1].fd)
	}
	if cache.capacity != 1 || cache.size() != 1 {
		t.Errorf("capacity = %d, size = %d, want 1 and 1", cache.capacity, cache.size())
	}
}

func TestDescriptorCache_openRetriesOnce(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a/b/c")
	cache := newDescriptorCache(8)
	defer cache.destroy()

	nodes := openChain(t, &cache, root, "a", "b")
	c := newFileNode(&cache, nodes[2], "c")
	// Below every cached descriptor, so the one freed by shrinking is still
	// out of range and the retry fails as well.
	limitDescriptors(t, nodes[0].fd)

	if _, err := cache.open(c, filepath.Join(root, "a", "b", "c")); err != unix.EMFILE {
		t.Fatalf("open = %v, want EMFILE", err)
	}
	if cache.size() != 2 || cache.capacity != 2 {
		t.Errorf("capacity = %d, size = %d, want one eviction only", cache.capacity, cache.size())
	}
	if nodes[1].fd >= 0 || nodes[0].fd < 0 || nodes[2].fd < 0 {
		t.Errorf("open descriptors root=%d a=%d b=%d, want only a closed", nodes[0].fd, nodes[1].fd, nodes[2].fd)
	}
}

func TestDescriptorCache_openFailsWithNothingToEvict(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "a")
	cache := newDescriptorCache(8)
	defer cache.destroy()

	nodes := openChain(t, &cache, root)
	a := newFileNode(&cache, nodes[0], "a")
	limitDescriptors(t, lowestFreeFD(t, nodes[0].fd))

	if _, err := cache.open(a, filepath.Join(root, "a")); err != unix.EMFILE {
		t.Fatalf("open = %v, want EMFILE", err)
	}
	if nodes[0].fd < 0 || a.fd >= 0 {
		t.Errorf("root fd = %d, a fd = %d", nodes[0].fd, a.fd)
	}
}
