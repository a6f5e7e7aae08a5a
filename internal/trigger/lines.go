package trigger

import "bytes"

// lineBuffer splits a byte stream into newline-terminated lines.
//
// A line that grows past max is discarded up to its terminating newline;
// drop is called once for it.
type lineBuffer struct {
	max  int
	emit func(line string)
	drop func()

	buf        []byte
	discarding bool
}

func newLineBuffer(max int, emit func(string), drop func()) *lineBuffer {
	return &lineBuffer{max: max, emit: emit, drop: drop}
}

// write consumes p, emitting every line it completes.
func (b *lineBuffer) write(p []byte) {
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			b.append(p)
			return
		}
		b.append(p[:i])
		b.end()
		p = p[i+1:]
	}
}

// flush ends a pending unterminated line.
func (b *lineBuffer) flush() {
	if len(b.buf) > 0 || b.discarding {
		b.end()
	}
}

func (b *lineBuffer) append(p []byte) {
	if b.discarding {
		return
	}
	if len(b.buf)+len(p) > b.max {
		b.discarding = true
		b.buf = b.buf[:0]
		return
	}
	b.buf = append(b.buf, p...)
}

func (b *lineBuffer) end() {
	if b.discarding {
		b.discarding = false
		if b.drop != nil {
			b.drop()
		}
		return
	}
	line := string(b.buf)
	b.buf = b.buf[:0]
	b.emit(line)
}
