// Package engine defines the TLS engine capability consumed by sslio.
//
// An Engine performs the record-layer transforms of a TLS session without doing any
// I/O: Wrap turns plaintext into network bytes, Unwrap turns network bytes into
// plaintext, and HandshakeStatus tells the caller what the session needs next.
// Engines are not safe for concurrent use.
package engine

import "strconv"

type Engine interface {
	// BeginHandshake starts the initial handshake. Calling it again is a no-op.
	BeginHandshake() (err error)
	// Wrap consumes plaintext from src and writes network bytes into dst.
	// An empty src is valid and produces pure handshake or alert records.
	Wrap(src []byte, dst []byte) (result Result, err error)
	// Unwrap consumes network bytes from src and writes plaintext into dst.
	Unwrap(src []byte, dst []byte) (result Result, err error)
	// HandshakeStatus reports the next action the session requires.
	HandshakeStatus() (status HandshakeStatus)
	// DelegatedTask returns the pending potentially expensive computation, or nil.
	// The task must run off the I/O goroutine.
	DelegatedTask() (task func())
	// CloseOutbound asks the engine to emit close_notify on the next Wrap.
	CloseOutbound()
	// CloseInbound signals that no more network bytes will arrive.
	// It returns an error when the peer did not send close_notify first.
	CloseInbound() (err error)
	IsOutboundDone() (ok bool)
	IsInboundDone() (ok bool)
	// ApplicationBufferSize is the recommended size of plaintext buffers.
	// It may grow during a session.
	ApplicationBufferSize() (n int)
	// PacketBufferSize is the recommended size of network buffers.
	// It may grow during a session.
	PacketBufferSize() (n int)
}

// Result is the outcome of one Wrap or Unwrap step.
type Result struct {
	Status          Status
	HandshakeStatus HandshakeStatus
	Consumed        int
	Produced        int
}

func (r Result) String() string {
	return "Status = " + r.Status.String() +
		" HandshakeStatus = " + r.HandshakeStatus.String() +
		" bytesConsumed = " + strconv.Itoa(r.Consumed) +
		" bytesProduced = " + strconv.Itoa(r.Produced)
}
