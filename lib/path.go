package lib

import "strings"

// pathBuffer holds the path of the file currently being visited. It is
// rewritten in place as the walk moves between files.
type pathBuffer struct {
	buf []byte
}

// resize truncates or extends the buffer to n bytes. Extended bytes are
// garbage until overwritten.
func (p *pathBuffer) resize(n int) {
	if n <= cap(p.buf) {
		p.buf = p.buf[:n]
		return
	}
	grown := make([]byte, n, 2*n)
	copy(grown, p.buf)
	p.buf = grown
}

func (p *pathBuffer) appendByte(c byte) { p.buf = append(p.buf, c) }

func (p *pathBuffer) appendString(s string) { p.buf = append(p.buf, s...) }

func (p *pathBuffer) setByte(i int, c byte) { p.buf[i] = c }

func (p *pathBuffer) copyAt(i int, s string) { copy(p.buf[i:], s) }

func (p *pathBuffer) lastByte() byte { return p.buf[len(p.buf)-1] }

func (p *pathBuffer) String() string { return string(p.buf) }

// baseOffset returns the offset of the last path component, ignoring
// trailing slashes. "/" and "" yield 0.
func baseOffset(path string) int {
	end := len(path)
	for end > 1 && path[end-1] == '/' {
		end--
	}
	i := strings.LastIndexByte(path[:end], '/')
	if i < 0 || end == 1 {
		return 0
	}
	return i + 1
}
