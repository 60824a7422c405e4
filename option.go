package sslio

import (
	"context"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"time"
)

const (
	DefaultInitialBufferSize     = 4096
	DefaultCloseNotifyTimeout    = 5 * time.Second
	minInitialBufferSize         = 64
	errMetaOptionKey             = "option"
	errMetaOptionBufferSize      = "initial_buffer_size"
	errMetaOptionCloseNotifyWait = "close_notify_timeout"
)

var ErrInvalidOption = errors.Define("sslio: invalid option")

type Options struct {
	// InitialBufferSize is the starting size of the network and application buffers.
	// Buffers grow to the sizes the engine asks for, it only saves memory on
	// sessions that never need more.
	InitialBufferSize int
	// CloseNotifyTimeout bounds how long Close waits for close_notify to be flushed
	// before closing the raw channel anyway.
	CloseNotifyTimeout time.Duration
	// Executors runs delegated engine tasks. Defaults to Executors().
	Executors rxp.Executors
	// LogContext is the parent of the channel's log scope.
	LogContext context.Context
}

type Option func(options *Options) (err error)

// WithInitialBufferSize
// 设置网络缓冲区的初始大小。
//
// 缓冲区会按引擎要求增长，初始值只影响内存占用。
func WithInitialBufferSize(size int) Option {
	return func(options *Options) (err error) {
		if size < minInitialBufferSize {
			err = errors.From(
				ErrInvalidOption,
				errors.WithMeta(errMetaOptionKey, errMetaOptionBufferSize),
			)
			return
		}
		options.InitialBufferSize = size
		return
	}
}

// WithCloseNotifyTimeout
// 设置 close_notify 发送超时，超时后直接关闭底层通道。
func WithCloseNotifyTimeout(timeout time.Duration) Option {
	return func(options *Options) (err error) {
		if timeout <= 0 {
			err = errors.From(
				ErrInvalidOption,
				errors.WithMeta(errMetaOptionKey, errMetaOptionCloseNotifyWait),
			)
			return
		}
		options.CloseNotifyTimeout = timeout
		return
	}
}

// WithExecutors
// 设置执行委托任务的执行器，执行器由调用方管理生命周期。
func WithExecutors(executors rxp.Executors) Option {
	return func(options *Options) (err error) {
		options.Executors = executors
		return
	}
}

// WithLogContext
// 设置日志上下文。
func WithLogContext(ctx context.Context) Option {
	return func(options *Options) (err error) {
		options.LogContext = ctx
		return
	}
}
