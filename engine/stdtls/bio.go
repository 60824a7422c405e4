package stdtls

import (
	"io"
	"net"
	"time"
)

// bio is the in-memory net.Conn under the tls.Conn.
// Reads block the pump until Unwrap feeds records, writes never block.
type bio struct {
	e *Engine
}

func (b *bio) Read(p []byte) (n int, err error) {
	e := b.e
	e.locker.Lock()
	defer e.locker.Unlock()
	for e.in.Len() == 0 {
		if e.inClosed {
			err = io.EOF
			return
		}
		e.busy = false
		e.cond.Broadcast()
		e.cond.Wait()
	}
	n, _ = e.in.Read(p)
	return
}

func (b *bio) Write(p []byte) (n int, err error) {
	e := b.e
	e.locker.Lock()
	n, _ = e.out.Write(p)
	e.locker.Unlock()
	return
}

func (b *bio) Close() error {
	return nil
}

func (b *bio) LocalAddr() net.Addr {
	return addr{}
}

func (b *bio) RemoteAddr() net.Addr {
	return addr{}
}

func (b *bio) SetDeadline(_ time.Time) error {
	return nil
}

func (b *bio) SetReadDeadline(_ time.Time) error {
	return nil
}

func (b *bio) SetWriteDeadline(_ time.Time) error {
	return nil
}

type addr struct{}

func (addr) Network() string {
	return "memory"
}

func (addr) String() string {
	return "stdtls"
}
