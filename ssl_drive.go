package sslio

import (
	"fmt"
	"github.com/account-login/ctxlog"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/sslio/engine"
	"github.com/brickingsoft/sslio/pkg/continuation"
	"io"
)

// drive 进入驱动循环。
//
// 任意 goroutine 都可以调用，同一时刻只有一个 goroutine 执行 step，
// 其余调用只增加计数后立即返回，由正在执行的 goroutine 补跑。
func (c *channel) drive() {
	if c.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		c.step()
		missed = c.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (c *channel) step() {
	c.collect()
	for {
		if c.state == stateClosed {
			c.rejectQueued()
			return
		}
		if c.failure != nil {
			c.abort()
			return
		}
		if c.state == stateOpen && c.closeRequested.Load() {
			c.beginClose()
		}
		var progressed bool
		if c.state == stateClosing {
			progressed = c.closing()
		} else {
			progressed = c.advance()
		}
		if !progressed && c.failure == nil && c.state != stateClosed {
			return
		}
	}
}

// collect applies completions posted since the last step.
func (c *channel) collect() {
	c.eventsLocker.Lock()
	rd, wr, task, taskErr := c.readDone, c.writeDone, c.taskDone, c.taskErr
	c.readDone, c.writeDone, c.taskDone, c.taskErr = nil, nil, false, nil
	c.eventsLocker.Unlock()

	if task {
		c.tasking = false
		if taskErr != nil {
			c.fault(newOpErr(opTask, ErrEngine, taskErr))
		}
	}
	if wr != nil {
		c.writing = false
		if wr.err != nil {
			c.fault(newOpErr(opWrite, ErrWrite, wr.err))
		} else if wr.n > 0 {
			_ = c.netOut.Discard(wr.n)
		}
	}
	if rd != nil {
		c.reading = false
		switch {
		case rd.err != nil:
			_ = c.netIn.AllocatedWrote(0)
			if errors.Is(rd.err, io.EOF) {
				c.inputEOF = true
				break
			}
			c.fault(newOpErr(opRead, ErrRead, rd.err))
		case rd.n < 0:
			_ = c.netIn.AllocatedWrote(0)
			c.inputEOF = true
		default:
			_ = c.netIn.AllocatedWrote(rd.n)
			if rd.n > 0 {
				c.underflow = false
			}
		}
	}
}

func (c *channel) fault(err error) {
	if c.failure != nil || c.state == stateClosed {
		return
	}
	c.failure = err
}

// advance runs one pass over the handshake and both directions.
func (c *channel) advance() (progressed bool) {
	c.flush()
	if c.tasking {
		return
	}
	progressed = c.settleWrite()
	switch c.engine.HandshakeStatus() {
	case engine.NeedTask:
		progressed = c.runTask() || progressed
	case engine.NeedWrap:
		progressed = c.serveReads(false) || progressed
		if c.writing || c.netOut.Len() > 0 {
			return
		}
		progressed = c.wrapHandshake() || progressed
	case engine.NeedUnwrap:
		progressed = c.serveReads(false) || progressed
		progressed = c.unwrap() || progressed
	default:
		c.settleHandshake(nil)
		progressed = c.serveReads(true) || progressed
		progressed = c.writeSide() || progressed
	}
	return
}

// flush 发送出站缓冲区中的密文，返回是否仍有密文未发送完。
func (c *channel) flush() (pending bool) {
	if c.writing {
		pending = true
		return
	}
	n := c.netOut.Len()
	if n == 0 {
		return
	}
	c.writing = true
	pending = true
	c.raw.Write(c.netOut.Peek(n), nil, c.rawWriter)
	return
}

// fill 发起一次底层读，读入入站缓冲区的空闲区域。
func (c *channel) fill() {
	if c.reading || c.inputEOF || c.failure != nil {
		return
	}
	if c.netIn.Available() == 0 {
		size := c.engine.PacketBufferSize()
		if c.netIn.Cap() >= size {
			c.fault(newOpErr(opUnwrap, ErrBufferExhausted, nil))
			return
		}
		_ = c.netIn.Grow(size)
	}
	p, err := c.netIn.Allocate(c.netIn.Available())
	if err != nil {
		c.fault(newOpErr(opRead, ErrRead, err))
		return
	}
	c.reading = true
	c.raw.Read(p, nil, c.rawReader)
}

func (c *channel) observe(result engine.Result) {
	if result.HandshakeStatus == engine.Finished {
		c.settleHandshake(nil)
	}
}

func (c *channel) wrap(op string, src []byte) (result engine.Result, ok bool) {
	for {
		dst, allocErr := c.netOut.Allocate(c.netOut.Available())
		if allocErr != nil {
			c.fault(newOpErr(op, ErrEngine, allocErr))
			return
		}
		var err error
		result, err = c.engine.Wrap(src, dst)
		_ = c.netOut.AllocatedWrote(result.Produced)
		if err != nil {
			c.fault(newOpErr(op, ErrEngine, err))
			return
		}
		c.observe(result)
		if result.Status != engine.BufferOverflow {
			ok = true
			return
		}
		size := c.netOut.Len() + c.engine.PacketBufferSize()
		if c.netOut.Cap() >= size {
			c.fault(newOpErr(op, ErrBufferExhausted, nil))
			return
		}
		_ = c.netOut.Grow(size)
	}
}

func (c *channel) wrapHandshake() (progressed bool) {
	result, ok := c.wrap(opHandshake, nil)
	if !ok {
		return
	}
	if result.Status == engine.Closed {
		c.outboundDone = true
		c.fault(newOpErr(opHandshake, ErrHandshake, nil))
		return
	}
	progressed = result.Produced > 0
	c.flush()
	return
}

func (c *channel) unwrap() (progressed bool) {
	if c.inboundDone || c.failure != nil {
		return
	}
	// an empty inbound buffer is still offered to the engine, which may hold plaintext
	if c.underflow {
		if c.inputEOF {
			c.endOfInput()
			progressed = true
			return
		}
		c.fill()
		return
	}
	if c.appIn.Available() == 0 {
		progressed = c.makeRoomForPlaintext()
		return
	}
	dst, allocErr := c.appIn.Allocate(c.appIn.Available())
	if allocErr != nil {
		c.fault(newOpErr(opUnwrap, ErrEngine, allocErr))
		return
	}
	result, err := c.engine.Unwrap(c.netIn.Peek(c.netIn.Len()), dst)
	_ = c.appIn.AllocatedWrote(result.Produced)
	if err != nil {
		c.fault(newOpErr(opUnwrap, ErrEngine, err))
		return
	}
	_ = c.netIn.Discard(result.Consumed)
	c.observe(result)
	switch result.Status {
	case engine.OK, engine.BufferUnderflow:
		progressed = result.Consumed > 0 || result.Produced > 0
		if result.Status == engine.OK && progressed {
			break
		}
		c.underflow = true
		if c.inputEOF {
			c.endOfInput()
			progressed = true
			break
		}
		c.fill()
	case engine.BufferOverflow:
		progressed = c.makeRoomForPlaintext()
	case engine.Closed:
		c.inboundDone = true
		progressed = true
		if !c.HandshakeComplete() {
			c.fault(newOpErr(opHandshake, ErrHandshake, io.ErrUnexpectedEOF))
		}
	}
	return
}

// makeRoomForPlaintext grows the plaintext buffer by one application buffer.
// Outside a handshake buffered plaintext is delivered first instead.
func (c *channel) makeRoomForPlaintext() bool {
	if c.appIn.Len() > 0 && !c.engine.HandshakeStatus().Handshaking() {
		return false
	}
	size := c.appIn.Len() + c.engine.ApplicationBufferSize()
	if c.appIn.Cap() >= size {
		c.fault(newOpErr(opUnwrap, ErrBufferExhausted, nil))
		return false
	}
	_ = c.appIn.Grow(size)
	return true
}

// endOfInput 底层通道已读到末尾。没有 close_notify 时视为正常结束，只在握手阶段视为失败。
func (c *channel) endOfInput() {
	c.inboundDone = true
	err := c.engine.CloseInbound()
	if !c.HandshakeComplete() {
		c.fault(newOpErr(opHandshake, ErrHandshake, io.ErrUnexpectedEOF))
		return
	}
	if err != nil {
		ctxlog.Debugf(c.ctx, "end of stream without close_notify: %v", err)
	}
}

func (c *channel) serveReads(unwrapAllowed bool) (progressed bool) {
	op, token, ok := c.inbound.Consume()
	if !ok {
		return
	}
	if c.appIn.Len() == 0 && unwrapAllowed {
		progressed = c.unwrap()
	}
	if c.appIn.Len() > 0 {
		n, _ := c.appIn.Read(op.b)
		op.advance(n)
		c.inbound.Consumed(token)
		op.settle(&c.readReplays)
		op.complete()
		progressed = true
		return
	}
	if c.inboundDone && c.failure == nil {
		c.inbound.Consumed(token)
		op.settle(&c.readReplays)
		op.completeWith(-1)
		ctxlog.Debugf(c.ctx, "inbound closed")
		c.beginClose()
		progressed = true
		return
	}
	op.replays++
	c.inbound.Replay(token)
	return
}

// settleWrite 处理已发送完密文的写操作：全部加密则完成，握手中则放回队头。
func (c *channel) settleWrite() (progressed bool) {
	op := c.wr
	if op == nil || c.writing || c.netOut.Len() > 0 {
		return
	}
	if op.exhausted() {
		c.wr = nil
		c.outbound.Consumed(op.token)
		if op.replays > 0 {
			ctxlog.Debugf(c.ctx, "write of %d bytes completed after %d replays", op.n, op.replays)
		}
		op.settle(&c.writeReplays)
		op.complete()
		progressed = true
		return
	}
	if c.engine.HandshakeStatus().Handshaking() {
		c.wr = nil
		op.replays++
		c.outbound.Replay(op.token)
		progressed = true
	}
	return
}

func (c *channel) writeSide() (progressed bool) {
	if c.writing || c.netOut.Len() > 0 {
		return
	}
	op := c.wr
	if op == nil {
		next, token, ok := c.outbound.Consume()
		if !ok {
			return
		}
		op = next
		op.token = token
		c.wr = op
	}
	result, ok := c.wrap(opWrite, op.remaining())
	if !ok {
		return
	}
	op.advance(result.Consumed)
	if result.Status == engine.Closed {
		c.outboundDone = true
		c.fault(newOpErr(opWrite, ErrClosed, nil))
		return
	}
	c.flush()
	progressed = result.Consumed > 0 || result.Produced > 0 || result.HandshakeStatus.Handshaking()
	return
}

func (c *channel) runTask() (progressed bool) {
	task := c.engine.DelegatedTask()
	if task == nil {
		c.fault(newOpErr(opTask, ErrEngine, errors.New("engine needs a task but has none")))
		return
	}
	c.tasking = true
	run := continuation.Compose(c.guard(task), c.postTask)
	if err := c.executors.Execute(c.ctx, TaskFunc(run)); err != nil {
		c.tasking = false
		c.fault(newOpErr(opTask, ErrBusy, err))
		return
	}
	progressed = true
	return
}

// guard keeps a panicking task from stalling the channel.
func (c *channel) guard(task func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				c.eventsLocker.Lock()
				c.taskErr = errors.New(fmt.Sprintf("task panic: %v", r))
				c.eventsLocker.Unlock()
			}
		}()
		task()
	}
}

func (c *channel) abort() {
	err := c.failure
	ctxlog.Warnf(c.ctx, "failed: %v", err)
	c.rejecting.Store(true)
	if op := c.wr; op != nil {
		c.wr = nil
		c.outbound.Consumed(op.token)
		op.fail(err)
	}
	for _, op := range c.inbound.DrainAll() {
		op.fail(err)
	}
	for _, op := range c.outbound.DrainAll() {
		op.fail(err)
	}
	c.settleHandshake(err)
	c.closeRaw()
}

func (c *channel) rejectQueued() {
	for _, op := range c.inbound.DrainAll() {
		op.fail(c.closedErr(opRead))
	}
	for _, op := range c.outbound.DrainAll() {
		op.fail(c.closedErr(opWrite))
	}
}
