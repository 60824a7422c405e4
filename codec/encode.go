package codec

import (
	"context"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/sslio"
	"io"
)

type Encoder[T any] interface {
	Encode(param T) (p []byte, err error)
}

// Encode
// 编码后完整写入通道，future 得到写入的字节数。
func Encode[T any](ctx context.Context, channel sslio.AsynchronousByteChannel, encoder Encoder[T], data T) (future async.Future[int]) {
	p, encodeErr := encoder.Encode(data)
	if encodeErr != nil {
		future = async.FailedImmediately[int](ctx, encodeErr)
		return
	}
	future = WriteFull(ctx, channel, p)
	return
}

// WriteFull
// 持续写入直到 p 全部写出。
func WriteFull(ctx context.Context, channel sslio.AsynchronousByteChannel, p []byte) (future async.Future[int]) {
	promise, promiseErr := async.Make[int](ctx)
	if promiseErr != nil {
		future = async.FailedImmediately[int](ctx, promiseErr)
		return
	}
	w := &writing{
		channel: channel,
		p:       p,
		promise: promise,
	}
	w.next()
	future = promise.Future()
	return
}

type writing struct {
	channel sslio.AsynchronousByteChannel
	p       []byte
	n       int
	promise async.Promise[int]
}

func (w *writing) next() {
	if w.n == len(w.p) {
		w.promise.Succeed(w.n)
		return
	}
	w.channel.Write(w.p[w.n:], nil, w)
}

func (w *writing) Completed(n int, _ any) {
	if n <= 0 {
		w.promise.Fail(io.ErrShortWrite)
		return
	}
	w.n += n
	w.next()
}

func (w *writing) Failed(err error, _ any) {
	w.promise.Fail(err)
}
