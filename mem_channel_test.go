package sslio_test

import (
	"github.com/brickingsoft/sslio"
	"net"
	"sync"
	"time"
)

// memEnd is one side of an in-memory asynchronous byte pipe.
// Completions are delivered on new goroutines.
type memEnd struct {
	locker  sync.Mutex
	peer    *memEnd
	buf     []byte
	eof     bool
	closed  bool
	pending *memRead

	failWrites  error
	stallWrites bool
	writes      int
	sent        []byte
}

type memRead struct {
	b          []byte
	attachment any
	handler    sslio.CompletionHandler
}

func newMemPipe() (a *memEnd, b *memEnd) {
	a = &memEnd{}
	b = &memEnd{}
	a.peer = b
	b.peer = a
	return
}

func (m *memEnd) Read(b []byte, attachment any, handler sslio.CompletionHandler) {
	m.locker.Lock()
	if m.closed {
		m.locker.Unlock()
		go handler.Failed(net.ErrClosed, attachment)
		return
	}
	if len(m.buf) > 0 {
		n := copy(b, m.buf)
		m.buf = m.buf[n:]
		m.locker.Unlock()
		go handler.Completed(n, attachment)
		return
	}
	if m.eof {
		m.locker.Unlock()
		go handler.Completed(-1, attachment)
		return
	}
	m.pending = &memRead{b: b, attachment: attachment, handler: handler}
	m.locker.Unlock()
}

func (m *memEnd) Write(b []byte, attachment any, handler sslio.CompletionHandler) {
	m.locker.Lock()
	if m.closed {
		m.locker.Unlock()
		go handler.Failed(net.ErrClosed, attachment)
		return
	}
	if m.failWrites != nil {
		err := m.failWrites
		m.locker.Unlock()
		go handler.Failed(err, attachment)
		return
	}
	if m.stallWrites {
		m.locker.Unlock()
		return
	}
	m.writes++
	m.sent = append(m.sent, b...)
	m.locker.Unlock()

	if !m.peer.deliver(b) {
		go handler.Failed(net.ErrClosed, attachment)
		return
	}
	n := len(b)
	go handler.Completed(n, attachment)
}

func (m *memEnd) deliver(b []byte) bool {
	m.locker.Lock()
	if m.closed {
		m.locker.Unlock()
		return false
	}
	m.buf = append(m.buf, b...)
	read := m.pending
	n := 0
	if read != nil {
		m.pending = nil
		n = copy(read.b, m.buf)
		m.buf = m.buf[n:]
	}
	m.locker.Unlock()
	if read != nil {
		go read.handler.Completed(n, read.attachment)
	}
	return true
}

func (m *memEnd) Close() (err error) {
	m.locker.Lock()
	if m.closed {
		m.locker.Unlock()
		return
	}
	m.closed = true
	read := m.pending
	m.pending = nil
	m.locker.Unlock()
	if read != nil {
		go read.handler.Failed(net.ErrClosed, read.attachment)
	}
	m.peer.endOfStream()
	return
}

func (m *memEnd) endOfStream() {
	m.locker.Lock()
	m.eof = true
	read := m.pending
	m.pending = nil
	m.locker.Unlock()
	if read != nil {
		go read.handler.Completed(-1, read.attachment)
	}
}

func (m *memEnd) isClosed() bool {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.closed
}

func (m *memEnd) writeCount() int {
	m.locker.Lock()
	defer m.locker.Unlock()
	return m.writes
}

func (m *memEnd) sentBytes() []byte {
	m.locker.Lock()
	defer m.locker.Unlock()
	return append([]byte(nil), m.sent...)
}

func (m *memEnd) setFailWrites(err error) {
	m.locker.Lock()
	m.failWrites = err
	m.locker.Unlock()
}

func (m *memEnd) setStallWrites() {
	m.locker.Lock()
	m.stallWrites = true
	m.locker.Unlock()
}

func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
