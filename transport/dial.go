package transport

import (
	"context"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/sslio/pkg/rate"
	"net"
)

// Dial
// 建立流式连接并转换为 Connection。
func Dial(ctx context.Context, network string, address string, options ...Option) (conn Connection, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, optErr := applyOptions(options)
	if optErr != nil {
		err = newErr(ErrDial, optErr)
		return
	}
	dialer := &net.Dialer{
		KeepAlive: opts.KeepAlive,
		Control:   control(opts),
	}
	c, dialErr := dialer.DialContext(ctx, network, address)
	if dialErr != nil {
		err = errors.From(
			ErrDial,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaAddrKey, address),
			errors.WithWrap(dialErr),
		)
		return
	}
	conn = Stream(ctx, c, opts.Executors)
	return
}

// Listen
// 监听流式地址，Accept 返回的连接使用同一组选项。
func Listen(ctx context.Context, network string, address string, options ...Option) (ln Listener, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, optErr := applyOptions(options)
	if optErr != nil {
		err = newErr(ErrListen, optErr)
		return
	}
	config := net.ListenConfig{
		KeepAlive: opts.KeepAlive,
		Control:   control(opts),
	}
	inner, listenErr := config.Listen(ctx, network, address)
	if listenErr != nil {
		err = errors.From(
			ErrListen,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaAddrKey, address),
			errors.WithWrap(listenErr),
		)
		return
	}
	ln = &listener{
		ctx:     ctx,
		inner:   inner,
		opts:    opts,
		limiter: rate.New(opts.MaxConnections),
	}
	return
}

type listener struct {
	ctx     context.Context
	inner   net.Listener
	opts    Options
	limiter *rate.Limiter
}

func (ln *listener) Addr() net.Addr {
	return ln.inner.Addr()
}

func (ln *listener) Accept() (conn Connection, err error) {
	if waitErr := ln.limiter.Acquire(ln.ctx); waitErr != nil {
		err = newErr(ErrAccept, waitErr)
		return
	}
	c, acceptErr := ln.inner.Accept()
	if acceptErr != nil {
		ln.limiter.Release()
		err = newErr(ErrAccept, acceptErr)
		return
	}
	// 监听套接字上的 TCP_QUICKACK 不会被继承
	if tuneErr := tune(c, ln.opts); tuneErr != nil {
		_ = c.Close()
		ln.limiter.Release()
		err = newErr(ErrAccept, tuneErr)
		return
	}
	conn = newStream(ln.ctx, c, ln.opts.Executors, ln.limiter.Release)
	return
}

func (ln *listener) Close() error {
	return ln.inner.Close()
}
