package sslio

import (
	"context"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
)

// Future
// 创建一个结果处理器及其对应的 async.Future。
//
// ctx 中需要有 rxp.Executors（rxp.With），没有时使用 Executors()。
// 处理器完成时 future 得到字节数，失败时得到错误。
func Future(ctx context.Context) (handler CompletionHandler, future async.Future[int]) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, has := rxp.TryFrom(ctx); !has {
		ctx = rxp.With(ctx, Executors())
	}
	promise, promiseErr := async.Make[int](ctx)
	if promiseErr != nil {
		handler = HandlerFunc(nil, nil)
		future = async.FailedImmediately[int](ctx, promiseErr)
		return
	}
	handler = &promiseHandler{promise: promise}
	future = promise.Future()
	return
}

// ReadFuture
// 以 future 的方式读取。
func ReadFuture(ctx context.Context, channel AsynchronousByteChannel, b []byte) (future async.Future[int]) {
	handler, future := Future(ctx)
	channel.Read(b, nil, handler)
	return
}

// WriteFuture
// 以 future 的方式写入。
func WriteFuture(ctx context.Context, channel AsynchronousByteChannel, b []byte) (future async.Future[int]) {
	handler, future := Future(ctx)
	channel.Write(b, nil, handler)
	return
}

type promiseHandler struct {
	promise async.Promise[int]
}

func (h *promiseHandler) Completed(n int, _ any) {
	h.promise.Succeed(n)
}

func (h *promiseHandler) Failed(err error, _ any) {
	h.promise.Fail(err)
}
