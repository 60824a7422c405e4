package transport

import (
	"context"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/sslio"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Stream
// 将 net.Conn 转换为异步通道，每次读写作为一个任务提交到执行器。
//
// executors 为空时依次使用 ctx 中的执行器和 sslio.Executors()。
func Stream(ctx context.Context, conn net.Conn, executors rxp.Executors) Connection {
	if ctx == nil {
		ctx = context.Background()
	}
	if executors == nil {
		if exec, has := rxp.TryFrom(ctx); has {
			executors = exec
		} else {
			executors = sslio.Executors()
		}
	}
	ctx = rxp.With(ctx, executors)
	return &stream{
		ctx:       ctx,
		conn:      conn,
		executors: executors,
	}
}

func newStream(ctx context.Context, conn net.Conn, executors rxp.Executors, release func()) Connection {
	s := Stream(ctx, conn, executors).(*stream)
	s.release = release
	return s
}

type stream struct {
	ctx          context.Context
	conn         net.Conn
	executors    rxp.Executors
	readTimeout  atomic.Int64
	writeTimeout atomic.Int64
	closed       atomic.Bool
	release      func()
}

func (s *stream) Context() context.Context {
	return s.ctx
}

func (s *stream) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *stream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *stream) SetReadTimeout(d time.Duration) {
	s.readTimeout.Store(int64(d))
	_ = s.conn.SetReadDeadline(deadline(d))
}

func (s *stream) SetWriteTimeout(d time.Duration) {
	s.writeTimeout.Store(int64(d))
	_ = s.conn.SetWriteDeadline(deadline(d))
}

func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func (s *stream) Read(b []byte, attachment any, handler sslio.CompletionHandler) {
	if s.closed.Load() {
		handler.Failed(newErr(ErrClosed, nil), attachment)
		return
	}
	err := s.executors.Execute(s.ctx, sslio.TaskFunc(func() {
		if d := time.Duration(s.readTimeout.Load()); d > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(d))
		}
		n, rErr := s.conn.Read(b)
		if n > 0 {
			handler.Completed(n, attachment)
			return
		}
		if rErr != nil {
			if errors.Is(rErr, io.EOF) {
				handler.Completed(-1, attachment)
				return
			}
			if s.closed.Load() {
				handler.Failed(newErr(ErrClosed, rErr), attachment)
				return
			}
			handler.Failed(ioErr(ErrRead, rErr), attachment)
			return
		}
		handler.Completed(0, attachment)
	}))
	if err != nil {
		handler.Failed(newErr(ErrBusy, err), attachment)
	}
}

func (s *stream) Write(b []byte, attachment any, handler sslio.CompletionHandler) {
	if s.closed.Load() {
		handler.Failed(newErr(ErrClosed, nil), attachment)
		return
	}
	err := s.executors.Execute(s.ctx, sslio.TaskFunc(func() {
		if d := time.Duration(s.writeTimeout.Load()); d > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(d))
		}
		n, wErr := s.conn.Write(b)
		if wErr != nil {
			if s.closed.Load() {
				handler.Failed(newErr(ErrClosed, wErr), attachment)
				return
			}
			handler.Failed(ioErr(ErrWrite, wErr), attachment)
			return
		}
		handler.Completed(n, attachment)
	}))
	if err != nil {
		handler.Failed(newErr(ErrBusy, err), attachment)
	}
}

func (s *stream) Close() (err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	err = s.conn.Close()
	if s.release != nil {
		s.release()
	}
	return
}
