package transport

import (
	"github.com/brickingsoft/rxp"
	"time"
)

type Options struct {
	Executors rxp.Executors
	NoDelay   bool
	QuickAck  bool
	KeepAlive time.Duration
	// MaxConnections bounds the accepted connections a listener keeps open, < 1 means unbounded.
	MaxConnections int
}

type Option func(options *Options) (err error)

func defaultOptions() Options {
	return Options{
		NoDelay: true,
	}
}

func applyOptions(options []Option) (opts Options, err error) {
	opts = defaultOptions()
	for _, option := range options {
		if err = option(&opts); err != nil {
			return
		}
	}
	return
}

// WithExecutors
// 设置执行读写任务的执行器。
func WithExecutors(executors rxp.Executors) Option {
	return func(options *Options) (err error) {
		options.Executors = executors
		return
	}
}

// WithNoDelay
// 设置 TCP_NODELAY，默认开启。
func WithNoDelay(noDelay bool) Option {
	return func(options *Options) (err error) {
		options.NoDelay = noDelay
		return
	}
}

// WithQuickAck
// 设置 TCP_QUICKACK，仅 linux 有效。
func WithQuickAck(quickAck bool) Option {
	return func(options *Options) (err error) {
		options.QuickAck = quickAck
		return
	}
}

// WithKeepAlive
// 设置 TCP keepalive 周期，负数表示关闭。
func WithKeepAlive(d time.Duration) Option {
	return func(options *Options) (err error) {
		options.KeepAlive = d
		return
	}
}

// WithMaxConnections
// 设置监听器同时持有的最大连接数，达到上限后 Accept 等待已有连接关闭。
func WithMaxConnections(n int) Option {
	return func(options *Options) (err error) {
		options.MaxConnections = n
		return
	}
}
