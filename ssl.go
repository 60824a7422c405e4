package sslio

import (
	"context"
	"github.com/account-login/ctxlog"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/sslio/engine"
	"github.com/brickingsoft/sslio/pkg/bytebuffers"
	"github.com/brickingsoft/sslio/pkg/queue"
	"github.com/rs/xid"
	"sync"
	"sync/atomic"
	"time"
)

// Channel
// TLS 通道，与底层通道有相同的异步读写方式，读写的是明文。
type Channel interface {
	AsynchronousByteChannel
	// Handshake 在首次握手完成时回调 Completed(0)，通道失败或关闭时回调 Failed。
	Handshake(handler CompletionHandler)
	HandshakeComplete() bool
	Context() context.Context
	ID() string
}

// New
// 在 raw 之上创建 TLS 通道。
//
// 通道独占 raw 与 eng，创建后立即开始握手。
func New(ctx context.Context, raw AsynchronousByteChannel, eng engine.Engine, options ...Option) (ch Channel, err error) {
	if raw == nil {
		err = errors.From(ErrNilChannel)
		return
	}
	if eng == nil {
		err = errors.From(ErrNilEngine)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opt := Options{
		InitialBufferSize:  DefaultInitialBufferSize,
		CloseNotifyTimeout: DefaultCloseNotifyTimeout,
		Executors:          nil,
		LogContext:         ctx,
	}
	for _, option := range options {
		if err = option(&opt); err != nil {
			return
		}
	}
	exec := opt.Executors
	if exec == nil {
		exec = Executors()
	}
	logCtx := opt.LogContext
	if logCtx == nil {
		logCtx = ctx
	}
	id := xid.New()

	c := &channel{
		ctx:                ctxlog.Pushf(logCtx, "[sslio:%s]", id.String()),
		id:                 id,
		raw:                raw,
		engine:             eng,
		executors:          exec,
		closeNotifyTimeout: opt.CloseNotifyTimeout,
		inbound:            queue.New[*operation](),
		outbound:           queue.New[*operation](),
		netIn:              bytebuffers.NewBufferWithSize(opt.InitialBufferSize),
		netOut:             bytebuffers.NewBufferWithSize(opt.InitialBufferSize),
		appIn:              bytebuffers.NewBufferWithSize(opt.InitialBufferSize),
	}
	c.rawReader = &rawReadHandler{c: c}
	c.rawWriter = &rawWriteHandler{c: c}

	if beginErr := eng.BeginHandshake(); beginErr != nil {
		err = newOpErr(opHandshake, ErrEngine, beginErr)
		return
	}
	ctxlog.Debugf(c.ctx, "created")
	c.drive()
	ch = c
	return
}

const (
	stateOpen = iota
	stateClosing
	stateClosed
)

const (
	handshakePending = iota
	handshakeSucceed
	handshakeFailed
)

type ioResult struct {
	n   int
	err error
}

type channel struct {
	ctx                context.Context
	id                 xid.ID
	raw                AsynchronousByteChannel
	engine             engine.Engine
	executors          rxp.Executors
	closeNotifyTimeout time.Duration

	inbound  *queue.Consuming[*operation]
	outbound *queue.Consuming[*operation]

	// wip counts drive requests; only the goroutine that moved it from zero runs the loop.
	wip atomic.Int64

	// owned by the drive loop
	netIn         bytebuffers.Buffer
	netOut        bytebuffers.Buffer
	appIn         bytebuffers.Buffer
	reading       bool
	writing       bool
	tasking       bool
	underflow     bool
	inputEOF      bool
	inboundDone   bool
	outboundDone  bool
	closeOutbound bool
	wr            *operation
	state         int
	failure       error
	closeTimer    *time.Timer

	// completions posted by the raw channel, delegated tasks and the close timer
	eventsLocker sync.Mutex
	readDone     *ioResult
	writeDone    *ioResult
	taskDone     bool
	taskErr      error
	rawReader    *rawReadHandler
	rawWriter    *rawWriteHandler

	// how often completed operations went back to the head of their queue
	readReplays  atomic.Int64
	writeReplays atomic.Int64

	closeRequested atomic.Bool
	closeExpired   atomic.Bool
	rejecting      atomic.Bool

	handshakeLocker  sync.Mutex
	handshakeState   int
	handshakeErr     error
	handshakeWaiters []CompletionHandler
}

func (c *channel) Context() context.Context {
	return c.ctx
}

func (c *channel) ID() string {
	return c.id.String()
}

func (c *channel) Read(b []byte, attachment any, handler CompletionHandler) {
	if len(b) == 0 {
		failHandler(handler, newOpErr(opRead, ErrEmptyBytes, nil), attachment)
		return
	}
	if c.rejecting.Load() {
		failHandler(handler, newOpErr(opRead, ErrClosed, nil), attachment)
		return
	}
	op := newOperation(b, attachment, handler)
	op.token = c.inbound.Add(op)
	c.drive()
}

func (c *channel) Write(b []byte, attachment any, handler CompletionHandler) {
	if len(b) == 0 {
		if handler != nil {
			handler.Completed(0, attachment)
		}
		return
	}
	if c.rejecting.Load() {
		failHandler(handler, newOpErr(opWrite, ErrClosed, nil), attachment)
		return
	}
	op := newOperation(b, attachment, handler)
	op.token = c.outbound.Add(op)
	c.drive()
}

func (c *channel) Handshake(handler CompletionHandler) {
	c.handshakeLocker.Lock()
	switch c.handshakeState {
	case handshakeSucceed:
		c.handshakeLocker.Unlock()
		if handler != nil {
			handler.Completed(0, nil)
		}
		return
	case handshakeFailed:
		err := c.handshakeErr
		c.handshakeLocker.Unlock()
		failHandler(handler, err, nil)
		return
	default:
		if handler != nil {
			c.handshakeWaiters = append(c.handshakeWaiters, handler)
		}
		c.handshakeLocker.Unlock()
	}
	c.drive()
}

func (c *channel) HandshakeComplete() bool {
	c.handshakeLocker.Lock()
	ok := c.handshakeState == handshakeSucceed
	c.handshakeLocker.Unlock()
	return ok
}

func (c *channel) settleHandshake(err error) {
	c.handshakeLocker.Lock()
	if c.handshakeState != handshakePending {
		c.handshakeLocker.Unlock()
		return
	}
	if err == nil {
		c.handshakeState = handshakeSucceed
	} else {
		c.handshakeState = handshakeFailed
		c.handshakeErr = err
	}
	waiters := c.handshakeWaiters
	c.handshakeWaiters = nil
	c.handshakeLocker.Unlock()

	if err == nil {
		ctxlog.Debugf(c.ctx, "handshake finished")
	}
	for _, waiter := range waiters {
		if err == nil {
			waiter.Completed(0, nil)
		} else {
			waiter.Failed(err, nil)
		}
	}
}

func (c *channel) closedErr(op string) error {
	if c.failure != nil {
		return newOpErr(op, ErrClosed, c.failure)
	}
	return newOpErr(op, ErrClosed, nil)
}

func failHandler(handler CompletionHandler, err error, attachment any) {
	if handler != nil {
		handler.Failed(err, attachment)
	}
}

type rawReadHandler struct {
	c *channel
}

func (h *rawReadHandler) Completed(n int, _ any) {
	h.c.postRead(ioResult{n: n})
}

func (h *rawReadHandler) Failed(err error, _ any) {
	h.c.postRead(ioResult{err: err})
}

type rawWriteHandler struct {
	c *channel
}

func (h *rawWriteHandler) Completed(n int, _ any) {
	h.c.postWrite(ioResult{n: n})
}

func (h *rawWriteHandler) Failed(err error, _ any) {
	h.c.postWrite(ioResult{err: err})
}

func (c *channel) postRead(r ioResult) {
	c.eventsLocker.Lock()
	c.readDone = &r
	c.eventsLocker.Unlock()
	c.drive()
}

func (c *channel) postWrite(r ioResult) {
	c.eventsLocker.Lock()
	c.writeDone = &r
	c.eventsLocker.Unlock()
	c.drive()
}

func (c *channel) postTask() {
	c.eventsLocker.Lock()
	c.taskDone = true
	c.eventsLocker.Unlock()
	c.drive()
}
