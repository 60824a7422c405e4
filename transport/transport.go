package transport

import (
	"context"
	stderrors "errors"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/sslio"
	"net"
	"os"
	"time"
)

// Connection
// 底层异步字节通道，读写在执行器中进行，完成后回调 CompletionHandler。
//
// 读到流末尾时 Completed 的 n 为 -1。
type Connection interface {
	sslio.AsynchronousByteChannel
	Context() (ctx context.Context)
	LocalAddr() (addr net.Addr)
	RemoteAddr() (addr net.Addr)
	// SetReadTimeout 设置读超时，d <= 0 表示不超时。同时作用于正在进行的读。
	SetReadTimeout(d time.Duration)
	SetWriteTimeout(d time.Duration)
}

type Listener interface {
	Addr() (addr net.Addr)
	Accept() (conn Connection, err error)
	Close() (err error)
}

var (
	ErrClosed = errors.Define("transport: use of closed connection")
	ErrRead   = errors.Define("transport: read failed")
	ErrWrite  = errors.Define("transport: write failed")
	ErrBusy   = errors.Define("transport: executors busy")
	ErrDial   = errors.Define("transport: dial failed")
	ErrListen = errors.Define("transport: listen failed")
	ErrAccept = errors.Define("transport: accept failed")
	// ErrTimeout 读写超过 SetReadTimeout / SetWriteTimeout 设置的期限。
	ErrTimeout = errors.Define("transport: i/o timeout")
)

const (
	errMetaPkgKey  = "pkg"
	errMetaPkgVal  = "transport"
	errMetaAddrKey = "addr"
)

func newErr(def error, cause error) error {
	if cause == nil {
		return errors.From(def, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	return errors.From(
		def,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithWrap(cause),
	)
}

// ioErr maps a deadline hit to ErrTimeout, anything else to def.
func ioErr(def error, cause error) error {
	if timedOut(cause) {
		def = ErrTimeout
	}
	return newErr(def, cause)
}

// timedOut inspects the raw net error, before it is converted and loses its type.
func timedOut(err error) bool {
	if stderrors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
