package sslio_test

import (
	"encoding/binary"
	"errors"
	"github.com/brickingsoft/sslio/engine"
	"sync/atomic"
)

// fakeEngine is a toy record protocol with a three message handshake.
//
// record: type(1) | length(2) | payload, payloads of data records are xor'ed.
// client: wrap "1" -> unwrap "2" -> task -> wrap "3" (FINISHED)
// server: unwrap "1" -> wrap "2" -> unwrap "3" (FINISHED)
type fakeEngine struct {
	client    bool
	lazy      bool
	started   bool
	maxRecord int
	hs        engine.HandshakeStatus
	task      func()

	outboundClosed bool
	outboundDone   bool
	inboundDone    bool

	unwrapErr error

	appWraps atomic.Int64
	tasks    atomic.Int64

	// gate, when set, holds the delegated task until it is closed
	gate    chan struct{}
	running chan struct{}
}

const (
	recHandshake byte = 'H'
	recData      byte = 'D'
	recClose     byte = 'C'
	recHeader         = 3
	xorKey       byte = 0x5a
)

func newFakeEngine(client bool, maxRecord int) *fakeEngine {
	return &fakeEngine{
		client:    client,
		maxRecord: maxRecord,
	}
}

// newLazyClientEngine does not start the handshake until the first wrap,
// like engines that report NOT_HANDSHAKING before any traffic.
func newLazyClientEngine(maxRecord int) *fakeEngine {
	e := newFakeEngine(true, maxRecord)
	e.lazy = true
	return e
}

// newGatedClientEngine runs a delegated task that blocks until gate is closed.
func newGatedClientEngine(maxRecord int) *fakeEngine {
	e := newFakeEngine(true, maxRecord)
	e.gate = make(chan struct{})
	e.running = make(chan struct{})
	return e
}

func (e *fakeEngine) BeginHandshake() (err error) {
	if e.started || e.lazy {
		return
	}
	e.started = true
	if e.client {
		e.hs = engine.NeedWrap
	} else {
		e.hs = engine.NeedUnwrap
	}
	return
}

func (e *fakeEngine) HandshakeStatus() engine.HandshakeStatus {
	return e.hs
}

func (e *fakeEngine) DelegatedTask() (task func()) {
	task = e.task
	e.task = nil
	return
}

func (e *fakeEngine) Wrap(src []byte, dst []byte) (result engine.Result, err error) {
	if len(src) > 0 {
		e.appWraps.Add(1)
	}
	result.HandshakeStatus = e.hs
	if e.outboundDone {
		result.Status = engine.Closed
		return
	}
	if e.outboundClosed {
		if len(dst) < recHeader {
			result.Status = engine.BufferOverflow
			return
		}
		result.Produced = putRecord(dst, recClose, nil)
		result.Status = engine.Closed
		e.outboundDone = true
		return
	}
	if e.lazy && !e.started {
		e.started = true
		e.hs = engine.NeedWrap
	}
	switch e.hs {
	case engine.NeedWrap:
		if len(dst) < recHeader+1 {
			result.Status = engine.BufferOverflow
			return
		}
		switch {
		case e.client && e.tasks.Load() == 0:
			result.Produced = putRecord(dst, recHandshake, []byte("1"))
			e.hs = engine.NeedUnwrap
		case e.client:
			result.Produced = putRecord(dst, recHandshake, []byte("3"))
			e.hs = engine.NotHandshaking
			result.HandshakeStatus = engine.Finished
			return
		default:
			result.Produced = putRecord(dst, recHandshake, []byte("2"))
			e.hs = engine.NeedUnwrap
		}
		result.HandshakeStatus = e.hs
		return
	case engine.NeedUnwrap, engine.NeedTask:
		return
	}
	n := len(src)
	if n > e.maxRecord {
		n = e.maxRecord
	}
	if n == 0 {
		return
	}
	if len(dst) < recHeader+n {
		result.Status = engine.BufferOverflow
		return
	}
	payload := make([]byte, n)
	for i := 0; i < n; i++ {
		payload[i] = src[i] ^ xorKey
	}
	result.Produced = putRecord(dst, recData, payload)
	result.Consumed = n
	return
}

func (e *fakeEngine) Unwrap(src []byte, dst []byte) (result engine.Result, err error) {
	if e.unwrapErr != nil {
		err = e.unwrapErr
		return
	}
	result.HandshakeStatus = e.hs
	if e.inboundDone {
		result.Status = engine.Closed
		return
	}
	if len(src) < recHeader {
		result.Status = engine.BufferUnderflow
		return
	}
	length := int(binary.BigEndian.Uint16(src[1:recHeader]))
	if len(src) < recHeader+length {
		result.Status = engine.BufferUnderflow
		return
	}
	payload := src[recHeader : recHeader+length]
	switch src[0] {
	case recHandshake:
		if e.hs != engine.NeedUnwrap {
			err = errors.New("fake: unexpected handshake record")
			return
		}
		switch string(payload) {
		case "1":
			e.hs = engine.NeedWrap
		case "2":
			e.hs = engine.NeedTask
			e.task = func() {
				if e.gate != nil {
					close(e.running)
					<-e.gate
				}
				e.tasks.Add(1)
				e.hs = engine.NeedWrap
			}
		case "3":
			e.hs = engine.NotHandshaking
			result.Consumed = recHeader + length
			result.HandshakeStatus = engine.Finished
			return
		default:
			err = errors.New("fake: bad handshake message")
			return
		}
		result.Consumed = recHeader + length
		result.HandshakeStatus = e.hs
	case recData:
		if e.hs.Handshaking() {
			err = errors.New("fake: data record during handshake")
			return
		}
		if len(dst) < length {
			result.Status = engine.BufferOverflow
			return
		}
		for i := 0; i < length; i++ {
			dst[i] = payload[i] ^ xorKey
		}
		result.Consumed = recHeader + length
		result.Produced = length
	case recClose:
		e.inboundDone = true
		result.Consumed = recHeader
		result.Status = engine.Closed
	default:
		err = errors.New("fake: bad record type")
	}
	return
}

func (e *fakeEngine) CloseOutbound() {
	e.outboundClosed = true
}

func (e *fakeEngine) CloseInbound() (err error) {
	if !e.inboundDone {
		e.inboundDone = true
		err = errors.New("fake: inbound closed before receiving close_notify")
	}
	return
}

func (e *fakeEngine) IsOutboundDone() bool {
	return e.outboundDone
}

func (e *fakeEngine) IsInboundDone() bool {
	return e.inboundDone
}

func (e *fakeEngine) ApplicationBufferSize() int {
	return e.maxRecord
}

func (e *fakeEngine) PacketBufferSize() int {
	return recHeader + e.maxRecord
}

func putRecord(dst []byte, typ byte, payload []byte) int {
	dst[0] = typ
	binary.BigEndian.PutUint16(dst[1:recHeader], uint16(len(payload)))
	copy(dst[recHeader:], payload)
	return recHeader + len(payload)
}
