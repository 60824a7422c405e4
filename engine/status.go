package engine

// Status is the record-level outcome of a Wrap or Unwrap.
type Status int

const (
	OK Status = iota
	BufferUnderflow
	BufferOverflow
	Closed
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case BufferUnderflow:
		return "BUFFER_UNDERFLOW"
	case BufferOverflow:
		return "BUFFER_OVERFLOW"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// HandshakeStatus is the next action a session requires.
type HandshakeStatus int

const (
	NotHandshaking HandshakeStatus = iota
	Finished
	NeedTask
	NeedWrap
	NeedUnwrap
)

func (s HandshakeStatus) String() string {
	switch s {
	case NotHandshaking:
		return "NOT_HANDSHAKING"
	case Finished:
		return "FINISHED"
	case NeedTask:
		return "NEED_TASK"
	case NeedWrap:
		return "NEED_WRAP"
	case NeedUnwrap:
		return "NEED_UNWRAP"
	default:
		return "UNKNOWN"
	}
}

// Handshaking reports whether the session needs a handshake step before
// application data can flow.
func (s HandshakeStatus) Handshaking() bool {
	return s == NeedTask || s == NeedWrap || s == NeedUnwrap
}
