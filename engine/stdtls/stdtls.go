// Package stdtls adapts crypto/tls to the engine contract.
//
// A tls.Conn runs over an in-memory connection: Unwrap feeds complete records into it,
// Wrap drains what it writes. The tls.Conn is driven by one pump goroutine that performs the
// handshake and then keeps reading plaintext, so the only blocking the engine exposes is the
// pump's computation, reported as NEED_TASK.
package stdtls

import (
	"bytes"
	"crypto/tls"
	"errors"
	"github.com/brickingsoft/sslio/engine"
	"golang.org/x/crypto/cryptobyte"
	"io"
	"sync"
)

const (
	maxPlaintext = 16384
	// header + plaintext + the largest expansion crypto/tls allows on input
	maxCiphertext = 5 + maxPlaintext + 2048
)

var (
	ErrEarlyClose       = errors.New("stdtls: inbound closed before receiving close_notify")
	ErrHandshakePending = errors.New("stdtls: handshake not complete")
)

// Client returns an engine running the client side of a TLS session.
func Client(config *tls.Config) *Engine {
	return newEngine(config, true)
}

// Server returns an engine running the server side of a TLS session.
func Server(config *tls.Config) *Engine {
	return newEngine(config, false)
}

func newEngine(config *tls.Config, client bool) *Engine {
	if config == nil {
		config = &tls.Config{}
	}
	config = config.Clone()
	// one Write must become one record so Wrap can bound its output
	config.DynamicRecordSizingDisabled = true

	e := &Engine{}
	e.cond = sync.NewCond(&e.locker)
	if client {
		e.conn = tls.Client(&bio{e: e}, config)
	} else {
		e.conn = tls.Server(&bio{e: e}, config)
	}
	return e
}

type Engine struct {
	conn   *tls.Conn
	locker sync.Mutex
	cond   *sync.Cond

	in    bytes.Buffer
	out   bytes.Buffer
	plain bytes.Buffer

	started          bool
	busy             bool
	exited           bool
	handshakeDone    bool
	finishedReported bool
	pumpErr          error
	peerClosed       bool
	inClosed         bool

	closeRequested bool
	outboundDone   bool
	inboundDone    bool
}

func (e *Engine) BeginHandshake() (err error) {
	e.locker.Lock()
	e.beginLocked()
	e.locker.Unlock()
	return
}

func (e *Engine) beginLocked() {
	if e.started {
		return
	}
	e.started = true
	e.busy = true
	go e.pump()
}

func (e *Engine) pump() {
	err := e.conn.Handshake()
	e.locker.Lock()
	if err != nil {
		e.pumpErr = err
		e.exit()
		e.locker.Unlock()
		return
	}
	e.handshakeDone = true
	e.locker.Unlock()

	b := make([]byte, maxPlaintext)
	for {
		n, rErr := e.conn.Read(b)
		e.locker.Lock()
		if n > 0 {
			e.plain.Write(b[:n])
		}
		if rErr != nil {
			switch {
			case e.inClosed:
			case errors.Is(rErr, io.EOF):
				// close_notify, the bio never reports end of stream before CloseInbound
				e.peerClosed = true
			default:
				e.pumpErr = rErr
			}
			e.exit()
			e.locker.Unlock()
			return
		}
		e.locker.Unlock()
	}
}

func (e *Engine) exit() {
	e.busy = false
	e.exited = true
	e.cond.Broadcast()
}

func (e *Engine) HandshakeStatus() engine.HandshakeStatus {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() engine.HandshakeStatus {
	if !e.started {
		return engine.NotHandshaking
	}
	if e.out.Len() > 0 && !e.outboundDone {
		return engine.NeedWrap
	}
	if e.handshakeDone {
		return engine.NotHandshaking
	}
	if e.pumpErr != nil {
		// surfaced by the next Wrap
		return engine.NeedWrap
	}
	if e.busy {
		return engine.NeedTask
	}
	return engine.NeedUnwrap
}

// resultStatus reports FINISHED once, on the first result after the handshake completed.
func (e *Engine) resultStatus() engine.HandshakeStatus {
	hs := e.statusLocked()
	if hs == engine.NotHandshaking && e.handshakeDone && !e.finishedReported {
		e.finishedReported = true
		return engine.Finished
	}
	return hs
}

// DelegatedTask waits until the pump has nothing left to compute.
func (e *Engine) DelegatedTask() func() {
	return func() {
		e.locker.Lock()
		for e.busy {
			e.cond.Wait()
		}
		e.locker.Unlock()
	}
}

func (e *Engine) Wrap(src []byte, dst []byte) (result engine.Result, err error) {
	e.locker.Lock()
	e.beginLocked()
	if e.out.Len() > 0 {
		result = e.drainLocked(dst)
		e.locker.Unlock()
		return
	}
	if e.outboundDone {
		result.Status = engine.Closed
		result.HandshakeStatus = e.statusLocked()
		e.locker.Unlock()
		return
	}
	if e.closeRequested {
		handshakeDone := e.handshakeDone
		e.locker.Unlock()
		if handshakeDone {
			// close_notify goes to out through the bio
			_ = e.conn.CloseWrite()
		}
		e.locker.Lock()
		e.outboundDone = true
		result = e.drainLocked(dst)
		e.locker.Unlock()
		return
	}
	if !e.handshakeDone {
		if e.pumpErr != nil {
			err = e.pumpErr
			e.locker.Unlock()
			return
		}
		result.HandshakeStatus = e.statusLocked()
		e.locker.Unlock()
		return
	}
	e.locker.Unlock()

	if len(src) == 0 {
		e.locker.Lock()
		result.HandshakeStatus = e.resultStatus()
		e.locker.Unlock()
		return
	}
	if len(dst) < maxCiphertext {
		e.locker.Lock()
		result.Status = engine.BufferOverflow
		result.HandshakeStatus = e.statusLocked()
		e.locker.Unlock()
		return
	}
	n := len(src)
	if n > maxPlaintext {
		n = maxPlaintext
	}
	if _, err = e.conn.Write(src[:n]); err != nil {
		return
	}
	e.locker.Lock()
	result = e.drainLocked(dst)
	result.Consumed = n
	e.locker.Unlock()
	return
}

func (e *Engine) drainLocked(dst []byte) (result engine.Result) {
	if len(dst) == 0 {
		result.Status = engine.BufferOverflow
		result.HandshakeStatus = e.statusLocked()
		return
	}
	result.Produced, _ = e.out.Read(dst)
	if e.outboundDone && e.out.Len() == 0 {
		result.Status = engine.Closed
	}
	result.HandshakeStatus = e.resultStatus()
	return
}

func (e *Engine) Unwrap(src []byte, dst []byte) (result engine.Result, err error) {
	e.locker.Lock()
	defer e.locker.Unlock()
	e.beginLocked()
	if e.handshakeDone {
		// plaintext of records fed during the handshake may still be on its way
		for e.busy {
			e.cond.Wait()
		}
	}

	if e.plain.Len() > 0 {
		if len(dst) == 0 {
			result.Status = engine.BufferOverflow
			result.HandshakeStatus = e.statusLocked()
			return
		}
		result.Produced, _ = e.plain.Read(dst)
		result.HandshakeStatus = e.resultStatus()
		return
	}
	if e.inboundDone {
		result.Status = engine.Closed
		result.HandshakeStatus = e.statusLocked()
		return
	}
	if e.pumpErr != nil {
		err = e.pumpErr
		return
	}
	if e.peerClosed || e.exited {
		e.inboundDone = true
		result.Status = engine.Closed
		result.HandshakeStatus = e.statusLocked()
		return
	}
	n := completeRecords(src)
	if n == 0 {
		result.Status = engine.BufferUnderflow
		result.HandshakeStatus = e.statusLocked()
		return
	}
	e.in.Write(src[:n])
	e.busy = true
	e.cond.Broadcast()
	result.Consumed = n

	if !e.handshakeDone {
		result.HandshakeStatus = e.statusLocked()
		return
	}
	for e.busy {
		e.cond.Wait()
	}
	if e.pumpErr != nil {
		err = e.pumpErr
		return
	}
	if e.plain.Len() > 0 && len(dst) > 0 {
		result.Produced, _ = e.plain.Read(dst)
	} else if e.peerClosed && e.plain.Len() == 0 {
		e.inboundDone = true
		result.Status = engine.Closed
	}
	result.HandshakeStatus = e.resultStatus()
	return
}

// completeRecords returns the length of the longest prefix of src made of whole records.
func completeRecords(src []byte) (n int) {
	s := cryptobyte.String(src)
	for {
		var (
			contentType uint8
			version     uint16
			fragment    cryptobyte.String
		)
		if !s.ReadUint8(&contentType) || !s.ReadUint16(&version) || !s.ReadUint16LengthPrefixed(&fragment) {
			return
		}
		n = len(src) - len(s)
	}
}

func (e *Engine) CloseOutbound() {
	e.locker.Lock()
	e.closeRequested = true
	e.locker.Unlock()
}

func (e *Engine) CloseInbound() (err error) {
	e.locker.Lock()
	if !e.peerClosed && !e.inboundDone {
		err = ErrEarlyClose
	}
	e.inboundDone = true
	e.inClosed = true
	e.cond.Broadcast()
	e.locker.Unlock()
	return
}

func (e *Engine) IsOutboundDone() bool {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.outboundDone && e.out.Len() == 0
}

func (e *Engine) IsInboundDone() bool {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.inboundDone
}

func (e *Engine) ApplicationBufferSize() int {
	return maxPlaintext
}

func (e *Engine) PacketBufferSize() int {
	return maxCiphertext
}

// ConnectionState returns the negotiated parameters. It is meaningful once the handshake finished.
func (e *Engine) ConnectionState() (state tls.ConnectionState, err error) {
	e.locker.Lock()
	done := e.handshakeDone
	e.locker.Unlock()
	if !done {
		err = ErrHandshakePending
		return
	}
	state = e.conn.ConnectionState()
	return
}
