package codec_test

import (
	"bytes"
	"context"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/sslio"
	"sync"
	"testing"
)

// fakeChannel serves in and records writes, chunk bytes at a time.
type fakeChannel struct {
	mu    sync.Mutex
	in    []byte
	out   []byte
	chunk int
}

func newFakeChannel(in []byte, chunk int) *fakeChannel {
	return &fakeChannel{in: in, chunk: chunk}
}

func (c *fakeChannel) Read(b []byte, attachment any, handler sslio.CompletionHandler) {
	c.mu.Lock()
	if len(c.in) == 0 {
		c.mu.Unlock()
		handler.Completed(-1, attachment)
		return
	}
	if len(b) > c.chunk {
		b = b[:c.chunk]
	}
	n := copy(b, c.in)
	c.in = c.in[n:]
	c.mu.Unlock()
	handler.Completed(n, attachment)
}

func (c *fakeChannel) Write(b []byte, attachment any, handler sslio.CompletionHandler) {
	c.mu.Lock()
	if len(b) > c.chunk {
		b = b[:c.chunk]
	}
	c.out = append(c.out, b...)
	c.mu.Unlock()
	handler.Completed(len(b), attachment)
}

func (c *fakeChannel) Close() error {
	return nil
}

func (c *fakeChannel) Equals(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Equal(c.out, b)
}

type result[T any] struct {
	value T
	err   error
}

func await[T any](future async.Future[T]) (T, error) {
	ch := make(chan result[T], 1)
	future.OnComplete(func(ctx context.Context, value T, err error) {
		ch <- result[T]{value: value, err: err}
	})
	r := <-ch
	return r.value, r.err
}

func newExecutors(t *testing.T) rxp.Executors {
	t.Helper()
	exec, err := rxp.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = exec.Close()
	})
	return exec
}
