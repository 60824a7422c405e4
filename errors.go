package sslio

import (
	"context"
	"github.com/brickingsoft/errors"
	"io"
	"net"
)

var (
	ErrClosed          = errors.Define("sslio: use of closed channel")
	ErrEmptyBytes      = errors.Define("sslio: empty bytes")
	ErrBufferExhausted = errors.Define("sslio: buffer exhausted beyond engine limits")
	ErrEngine          = errors.Define("sslio: engine failed")
	ErrRead            = errors.Define("sslio: read failed")
	ErrWrite           = errors.Define("sslio: write failed")
	ErrHandshake       = errors.Define("sslio: handshake failed")
	ErrBusy            = errors.Define("sslio: executors busy")
	ErrExecutors       = errors.Define("sslio: executors unavailable")
	ErrNilEngine       = errors.Define("sslio: engine is nil")
	ErrNilChannel      = errors.Define("sslio: raw channel is nil")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "sslio"
	errMetaOpKey  = "op"
)

const (
	opRead      = "read"
	opWrite     = "write"
	opWrap      = "wrap"
	opUnwrap    = "unwrap"
	opTask      = "task"
	opClose     = "close"
	opHandshake = "handshake"
)

func newOpErr(op string, def error, cause error) error {
	if cause == nil {
		return errors.From(
			def,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, op),
		)
	}
	return errors.From(
		def,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}

// IsClosed reports whether err means the channel can not be used any more,
// including the orderly end of the underlying stream.
func IsClosed(err error) bool {
	var opErr *net.OpError
	isOpErr := errors.As(err, &opErr)
	if isOpErr {
		err = opErr.Err
	}
	ok := errors.Is(err, ErrClosed) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled)
	return ok
}

func IsEmptyBytes(err error) bool {
	return errors.Is(err, ErrEmptyBytes)
}

func IsBufferExhausted(err error) bool {
	return errors.Is(err, ErrBufferExhausted)
}

func IsHandshakeFailed(err error) bool {
	return errors.Is(err, ErrHandshake)
}

func IsEngineFailed(err error) bool {
	return errors.Is(err, ErrEngine)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
