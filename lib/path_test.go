package lib

import "testing"

func TestBaseOffset(t *testing.T) {
	cases := []struct {
		path string
		want int
	}{
		{"", 0},
		{"/", 0},
		{"a", 0},
		{"a/b", 2},
		{"/a", 1},
		{"/a/bc", 3},
		{"a/b/", 2},
		{"a//", 0},
		{"//", 0},
	}
	for _, tc := range cases {
		if got := baseOffset(tc.path); got != tc.want {
			t.Errorf("baseOffset(%q) = %d, want %d", tc.path, got, tc.want)
		}
	}
}

func TestBuildPath_movesBetweenNodes(t *testing.T) {
	var cache descriptorCache
	root := newFileNode(&cache, nil, "root")
	a := newFileNode(&cache, root, "a")
	x := newFileNode(&cache, a, "x")
	longer := newFileNode(&cache, a, "longer")
	b := newFileNode(&cache, root, "b")
	deep := newFileNode(&cache, newFileNode(&cache, b, "c"), "d")

	var path pathBuffer
	var previous *fileNode
	for i, step := range []struct {
		file *fileNode
		want string
	}{
		{root, "root"},
		{x, "root/a/x"},
		{longer, "root/a/longer"},
		{x, "root/a/x"},
		{b, "root/b"},
		{deep, "root/b/c/d"},
		{a, "root/a"},
		{deep, "root/b/c/d"},
	} {
		buildPath(&path, step.file, previous)
		if got := path.String(); got != step.want {
			t.Errorf("step %d: path = %q, want %q", i, got, step.want)
		}
		previous = step.file
	}
}

func TestBuildPath_rootWithTrailingSlash(t *testing.T) {
	var cache descriptorCache
	root := newFileNode(&cache, nil, "/")
	etc := newFileNode(&cache, root, "etc")
	var path pathBuffer
	buildPath(&path, etc, nil)
	if got := path.String(); got != "/etc" {
		t.Errorf("path = %q, want /etc", got)
	}
	if etc.nameOff != 1 {
		t.Errorf("nameOff = %d, want 1", etc.nameOff)
	}
}

func TestBuildPath_keepsSharedPrefix(t *testing.T) {
	var cache descriptorCache
	root := newFileNode(&cache, nil, "root")
	a := newFileNode(&cache, root, "a")
	x := newFileNode(&cache, a, "x")
	y := newFileNode(&cache, a, "y")

	var path pathBuffer
	buildPath(&path, x, nil)
	// Corrupt the shared prefix: a rebuild for a sibling must not touch it.
	path.setByte(0, 'R')
	buildPath(&path, y, x)
	if got := path.String(); got != "Root/a/y" {
		t.Errorf("path = %q, want only the last component rewritten", got)
	}
}
