package lib

import (
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// defaultDirBatchSize is how many entries one ReadDir call asks for.
const defaultDirBatchSize = 256

type dirEntry struct {
	name string
	typ  FileType
}

// dirReader reads entries from a directory descriptor in batches.
type dirReader struct {
	file    *os.File
	entries []fs.DirEntry
	pos     int
	done    bool
	err     error
}

// newDirReader takes ownership of fd.
func newDirReader(fd int, path string) *dirReader {
	return &dirReader{file: os.NewFile(uintptr(fd), path)}
}

// next returns the next entry, or nil at the end of the directory. A read
// error is returned once every entry read before it has been returned.
func (d *dirReader) next() (*dirEntry, error) {
	for {
		for d.pos < len(d.entries) {
			entry := d.entries[d.pos]
			d.pos++
			name := entry.Name()
			if name == "." || name == ".." {
				continue
			}
			return &dirEntry{name: name, typ: direntType(entry.Type())}, nil
		}
		if d.done {
			return nil, d.err
		}
		entries, err := d.file.ReadDir(defaultDirBatchSize)
		d.entries, d.pos = entries, 0
		if err != nil {
			d.done = true
			if err != io.EOF {
				d.err = errnoOf(err)
			}
		}
	}
}

func (d *dirReader) close() error {
	return d.file.Close()
}

// errnoOf strips path decoration so the walk reports bare errno values.
func errnoOf(err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return err
}
