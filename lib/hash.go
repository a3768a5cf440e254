package lib

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// HashAlgorithms lists the names hashFile and HashVisit accept.
var HashAlgorithms = []string{"xxhash", "sha256", "md5"}

// DefaultHashThreshold is the size below which files are hashed with a single read.
const DefaultHashThreshold = 1 << 20

// hashFile hashes the file at path with the given algorithm; files smaller than threshold are read fully, larger ones are streamed.
func hashFile(path, algorithm string, threshold int) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return hashOpenFile(file, algorithm, threshold)
}

// HashVisit hashes the regular file being visited, opening it relative to
// the directory the walk already has open.
func HashVisit(info *FileInfo, algorithm string, threshold int) (string, error) {
	flags := unix.O_RDONLY | unix.O_CLOEXEC | unix.O_NOCTTY
	if info.StatFlags&StatNoFollow != 0 {
		flags |= unix.O_NOFOLLOW
	}
	var fd int
	var err error
	for {
		fd, err = unix.Openat(info.AtFD, info.AtPath, flags, 0)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return "", errors.Wrapf(err, "open %s", info.Path)
	}
	file := os.NewFile(uintptr(fd), info.Path)
	defer file.Close()
	return hashOpenFile(file, algorithm, threshold)
}

func hashOpenFile(file *os.File, algorithm string, threshold int) (string, error) {
	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size < 0 {
		size = 0
	}
	if size < int64(threshold) {
		return hashFull(file, algorithm, int(size))
	}
	return hashStream(file, algorithm, threshold)
}

// Pool of read buffers for streaming hash; reused across hashStream calls to avoid allocating per file.
var bufPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, DefaultHashThreshold)
		return &buffer
	},
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "xxhash":
		return xxhash.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "md5":
		return md5.New(), nil
	default:
		return nil, errors.Errorf("unknown hash algorithm: %s", algorithm)
	}
}

// Reads size bytes into a single buffer and hashes with hashBytes. Used for small files so we don't spin up the streaming path.
func hashFull(reader io.Reader, algorithm string, size int) (string, error) {
	fullBuffer := make([]byte, size)
	if _, err := io.ReadFull(reader, fullBuffer); err != nil {
		return "", err
	}
	return hashBytes(fullBuffer, algorithm)
}

// Hashes by reading in bufSize chunks and feeding the algorithm incrementally. Used for files over the threshold.
func hashStream(reader io.Reader, algorithm string, bufSize int) (string, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)
	if cap(*buf) < bufSize {
		*buf = make([]byte, bufSize)
	}
	if _, err := io.CopyBuffer(hasher, reader, (*buf)[:bufSize]); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Hashes a byte slice; returns a hex string.
func hashBytes(data []byte, algorithm string) (string, error) {
	switch algorithm {
	case "xxhash":
		var sum [8]byte
		digest := xxhash.Sum64(data)
		for i := range sum {
			sum[i] = byte(digest >> (56 - 8*i))
		}
		return hex.EncodeToString(sum[:]), nil
	case "sha256":
		shaDigest := sha256.Sum256(data)
		return hex.EncodeToString(shaDigest[:]), nil
	case "md5":
		md5Digest := md5.Sum(data)
		return hex.EncodeToString(md5Digest[:]), nil
	default:
		return "", errors.Errorf("unknown hash algorithm: %s", algorithm)
	}
}
