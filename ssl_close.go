package sslio

import (
	"github.com/account-login/ctxlog"
	"github.com/brickingsoft/sslio/engine"
	"time"
)

// Close
// 关闭通道。
//
// 立即返回，重复调用无效果。之后的读写立即失败，未完成的读写以 ErrClosed 失败。
// 关闭时先发送 close_notify，发送完成或超过 CloseNotifyTimeout 后关闭底层通道。
func (c *channel) Close() (err error) {
	if !c.closeRequested.CompareAndSwap(false, true) {
		return
	}
	c.rejecting.Store(true)
	c.drive()
	return
}

func (c *channel) beginClose() {
	if c.state != stateOpen {
		return
	}
	c.state = stateClosing
	c.rejecting.Store(true)
	ctxlog.Debugf(c.ctx, "closing")

	if op := c.wr; op != nil {
		c.wr = nil
		c.outbound.Consumed(op.token)
		op.fail(newOpErr(opWrite, ErrClosed, nil))
	}
	c.rejectQueued()
	c.settleHandshake(newOpErr(opHandshake, ErrClosed, nil))
	c.closeTimer = time.AfterFunc(c.closeNotifyTimeout, c.expireClose)
}

func (c *channel) expireClose() {
	c.closeExpired.Store(true)
	c.drive()
}

// closing sends close_notify and closes the raw channel once it is flushed.
func (c *channel) closing() (progressed bool) {
	if c.closeExpired.Load() {
		ctxlog.Debugf(c.ctx, "close_notify timed out after %s", c.closeNotifyTimeout)
		c.closeRaw()
		progressed = true
		return
	}
	c.rejectQueued()
	if c.flush() || c.tasking {
		return
	}
	if !c.closeOutbound {
		c.closeOutbound = true
		c.engine.CloseOutbound()
	}
	if c.outboundDone || c.engine.IsOutboundDone() {
		c.closeRaw()
		progressed = true
		return
	}
	if c.engine.HandshakeStatus() == engine.NeedTask {
		progressed = c.runTask()
		return
	}
	result, ok := c.wrap(opClose, nil)
	if !ok {
		progressed = true
		return
	}
	if result.Status == engine.Closed || result.Produced == 0 {
		c.outboundDone = true
	}
	c.flush()
	progressed = true
	return
}

func (c *channel) closeRaw() {
	if c.state == stateClosed {
		return
	}
	c.state = stateClosed
	c.rejecting.Store(true)
	if c.closeTimer != nil {
		c.closeTimer.Stop()
	}
	if !c.inboundDone && !c.tasking {
		c.inboundDone = true
		_ = c.engine.CloseInbound()
	}
	if err := c.raw.Close(); err != nil {
		ctxlog.Debugf(c.ctx, "close raw channel: %v", err)
	}
	ctxlog.Debugf(c.ctx, "closed")
}
