package adaptor

import (
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/transport"
	"io"
	"net"
	"time"
)

// Connection
// 将异步通道转换为阻塞的 net.Conn。
//
// raw 提供地址与超时，为空时尝试从 ch 本身获取。通道读到流末尾时 Read 返回 io.EOF。
// 超时作用于底层连接，对 TLS 通道而言超时会使整个通道失败。
func Connection(ch sslio.AsynchronousByteChannel, raw transport.Connection) net.Conn {
	if raw == nil {
		raw, _ = ch.(transport.Connection)
	}
	return &connection{
		ch:  ch,
		raw: raw,
		rch: make(chan crwResult, 1),
		wch: make(chan crwResult, 1),
	}
}

type crwResult struct {
	n   int
	err error
}

type resultHandler chan crwResult

func (h resultHandler) Completed(n int, _ any) {
	h <- crwResult{n: n}
}

func (h resultHandler) Failed(err error, _ any) {
	h <- crwResult{err: err}
}

type connection struct {
	ch  sslio.AsynchronousByteChannel
	raw transport.Connection
	rch chan crwResult
	wch chan crwResult
	eof bool
}

func (conn *connection) Read(b []byte) (n int, err error) {
	if bLen := len(b); bLen == 0 {
		return
	}
	if conn.eof {
		err = io.EOF
		return
	}
	conn.ch.Read(b, nil, resultHandler(conn.rch))
	r := <-conn.rch
	n, err = r.n, r.err
	if err == nil && n <= 0 {
		conn.eof = true
		n, err = 0, io.EOF
	}
	return
}

func (conn *connection) Write(b []byte) (n int, err error) {
	for n < len(b) {
		conn.ch.Write(b[n:], nil, resultHandler(conn.wch))
		r := <-conn.wch
		if r.err != nil {
			err = r.err
			return
		}
		if r.n <= 0 {
			err = io.ErrShortWrite
			return
		}
		n += r.n
	}
	return
}

func (conn *connection) Close() error {
	return conn.ch.Close()
}

func (conn *connection) LocalAddr() net.Addr {
	if conn.raw == nil {
		return addr{}
	}
	return conn.raw.LocalAddr()
}

func (conn *connection) RemoteAddr() net.Addr {
	if conn.raw == nil {
		return addr{}
	}
	return conn.raw.RemoteAddr()
}

func (conn *connection) SetDeadline(t time.Time) error {
	if err := conn.SetReadDeadline(t); err != nil {
		return err
	}
	return conn.SetWriteDeadline(t)
}

func (conn *connection) SetReadDeadline(t time.Time) error {
	if conn.raw != nil {
		conn.raw.SetReadTimeout(timeout(t))
	}
	return nil
}

func (conn *connection) SetWriteDeadline(t time.Time) error {
	if conn.raw != nil {
		conn.raw.SetWriteTimeout(timeout(t))
	}
	return nil
}

// 零值表示取消超时，已过去的时间点取最小正值使其立即超时。
func timeout(t time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	d := time.Until(t)
	if d <= 0 {
		d = time.Nanosecond
	}
	return d
}

type addr struct{}

func (addr) Network() string {
	return "async"
}

func (addr) String() string {
	return "async"
}
