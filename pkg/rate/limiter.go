// Package rate bounds how many resources are held at once.
package rate

import (
	"context"
)

// New
// 创建一个最多同时持有 upperbound 个令牌的限制器，upperbound < 1 表示不限制。
func New(upperbound int) *Limiter {
	if upperbound < 1 {
		return &Limiter{}
	}
	return &Limiter{
		tokens: make(chan struct{}, upperbound),
	}
}

type Limiter struct {
	tokens chan struct{}
}

// Acquire 阻塞直到取得令牌或 ctx 结束。
func (limiter *Limiter) Acquire(ctx context.Context) (err error) {
	if limiter.tokens == nil {
		return
	}
	select {
	case limiter.tokens <- struct{}{}:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

// Release 归还令牌，必须与成功的 Acquire 成对调用。
func (limiter *Limiter) Release() {
	if limiter.tokens == nil {
		return
	}
	<-limiter.tokens
}

func (limiter *Limiter) Used() int {
	return len(limiter.tokens)
}
