package bytebuffers

import (
	"errors"
	"io"
)

// Buffer
// 网络缓冲区，已填充区域在前，空闲区域在后。
//
// 空闲区域通过 Allocate 取出，写入完成后必须调用 AllocatedWrote 提交。
// 在提交之前不能再次 Allocate、Write 或 Grow，但可以读取已填充区域。
type Buffer interface {
	Len() (n int)
	Cap() (n int)
	Available() (n int)
	Peek(n int) (p []byte)
	Discard(n int) (err error)
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Allocate(size int) (p []byte, err error)
	AllocatedWrote(n int) (err error)
	WritePending() bool
	Grow(size int) (err error)
	Reset()
}

var (
	ErrTooLarge                  = errors.New("bytebuffers.Buffer: too large")
	ErrWriteBeforeAllocatedWrote = errors.New("bytebuffers: cannot write before AllocatedWrote(), cause prev Allocate() was not finished, please call AllocatedWrote() after the area was wrote")
	ErrAllocateZero              = errors.New("bytebuffers: cannot allocate zero")
	ErrAllocatedWroteOverflow    = errors.New("bytebuffers: wrote more than allocated")
)

const maxInt = int(^uint(0) >> 1)

func NewBuffer() Buffer {
	return NewBufferWithSize(1)
}

func NewBufferWithSize(size int) Buffer {
	if size <= 0 {
		size = 1
	}
	return &buffer{
		b: make([]byte, size),
		r: 0,
		w: 0,
		a: 0,
	}
}

type buffer struct {
	b []byte
	r int
	w int
	a int
}

func (buf *buffer) Len() int { return buf.w - buf.r }

func (buf *buffer) Cap() int { return len(buf.b) }

func (buf *buffer) Available() int { return len(buf.b) - buf.Len() }

func (buf *buffer) Peek(n int) (p []byte) {
	bLen := buf.Len()
	if n < 1 || bLen == 0 {
		return
	}
	if bLen > n {
		p = buf.b[buf.r : buf.r+n]
		return
	}
	p = buf.b[buf.r:buf.w]
	return
}

func (buf *buffer) Discard(n int) (err error) {
	if n < 1 {
		return
	}
	bLen := buf.Len()
	if bLen == 0 {
		return
	}
	if n > bLen {
		n = bLen
	}
	buf.r += n

	buf.tryReset()
	return
}

func (buf *buffer) Read(p []byte) (n int, err error) {
	if buf.Len() == 0 {
		if !buf.WritePending() {
			buf.Reset()
		}
		err = io.EOF
		return
	}
	if len(p) == 0 {
		return
	}
	n = copy(p, buf.b[buf.r:buf.w])
	buf.r += n

	buf.tryReset()
	return
}

func (buf *buffer) Write(p []byte) (n int, err error) {
	if buf.WritePending() {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	pLen := len(p)
	if pLen == 0 {
		return
	}
	if err = buf.reserve(pLen); err != nil {
		return
	}
	n = copy(buf.b[buf.w:], p)
	buf.w += n
	buf.a = buf.w
	return
}

func (buf *buffer) WritePending() bool {
	return buf.a != buf.w
}

func (buf *buffer) Allocate(size int) (p []byte, err error) {
	if buf.WritePending() {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if size < 1 {
		err = ErrAllocateZero
		return
	}
	if err = buf.reserve(size); err != nil {
		return
	}
	buf.a += size
	p = buf.b[buf.w:buf.a]
	return
}

func (buf *buffer) AllocatedWrote(n int) (err error) {
	if buf.a == buf.w {
		return
	}
	if n > buf.a-buf.w {
		buf.a = buf.w
		err = ErrAllocatedWroteOverflow
		return
	}
	if n > 0 {
		buf.w += n
	}
	buf.a = buf.w
	return
}

// Grow ensures the buffer can hold size bytes in total, filled bytes are kept.
func (buf *buffer) Grow(size int) (err error) {
	if buf.WritePending() {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if size <= len(buf.b) {
		return
	}
	nb := make([]byte, size)
	buf.w = copy(nb, buf.b[buf.r:buf.w])
	buf.r = 0
	buf.a = buf.w
	buf.b = nb
	return
}

func (buf *buffer) Reset() {
	buf.r = 0
	buf.w = 0
	buf.a = 0
}

func (buf *buffer) tryReset() {
	if buf.r == buf.w && buf.a == buf.w {
		buf.Reset()
	}
}

func (buf *buffer) reserve(n int) (err error) {
	if buf.w+n <= len(buf.b) {
		return
	}
	// left shift
	if buf.r > 0 {
		copy(buf.b, buf.b[buf.r:buf.w])
		buf.w -= buf.r
		buf.a = buf.w
		buf.r = 0
		if buf.w+n <= len(buf.b) {
			return
		}
	}
	if buf.w > maxInt-n {
		err = ErrTooLarge
		return
	}
	size := len(buf.b) * 2
	if size < buf.w+n {
		size = buf.w + n
	}
	nb := make([]byte, size)
	copy(nb, buf.b[:buf.w])
	buf.b = nb
	return
}
