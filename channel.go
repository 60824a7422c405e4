package sslio

import (
	"context"
	"github.com/account-login/ctxlog"
)

// CompletionHandler
// 异步读写的结果处理器。
//
// Completed 的 n 为传输的字节数，读操作中 n <= 0 表示流已正常结束。
// 每个操作只会回调 Completed 或 Failed 其中之一，且只回调一次。
type CompletionHandler interface {
	Completed(n int, attachment any)
	Failed(err error, attachment any)
}

// AsynchronousByteChannel
// 异步字节通道。
//
// 同一方向上同一时刻最多只能有一个未完成的操作。
// 回调可能在调用 Read/Write 的协程中同步发生，也可能在其它协程中发生。
type AsynchronousByteChannel interface {
	Read(b []byte, attachment any, handler CompletionHandler)
	Write(b []byte, attachment any, handler CompletionHandler)
	Close() (err error)
}

type SuccessHandler func(n int, attachment any)

type ErrorHandler func(err error, attachment any)

// HandlerFunc
// 将一对函数转换为 CompletionHandler。
func HandlerFunc(success SuccessHandler, failure ErrorHandler) CompletionHandler {
	return &handlerFunc{
		success: success,
		failure: failure,
	}
}

// BestEffort
// 只关心成功的 CompletionHandler，失败只记录日志后丢弃。
//
// 只适用于可以丢失的操作，握手等关键路径不能使用。
func BestEffort(ctx context.Context, success SuccessHandler) CompletionHandler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &handlerFunc{
		success: success,
		failure: func(err error, attachment any) {
			ctxlog.Errorf(ctx, "best effort operation failed [attachment:%v]: %v", attachment, err)
		},
	}
}

type handlerFunc struct {
	success SuccessHandler
	failure ErrorHandler
}

func (h *handlerFunc) Completed(n int, attachment any) {
	if h.success != nil {
		h.success(n, attachment)
	}
}

func (h *handlerFunc) Failed(err error, attachment any) {
	if h.failure != nil {
		h.failure(err, attachment)
	}
}
