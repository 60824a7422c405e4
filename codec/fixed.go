package codec

import (
	"context"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/pkg/bytebuffers"
)

func FixedDecode(ctx context.Context, channel sslio.AsynchronousByteChannel, fixed int, options ...async.Option) (future async.Future[[]byte]) {
	codec := NewFixedCodec(fixed)
	future = Decode[[]byte](ctx, channel, codec, options...)
	return
}

func FixedEncode(ctx context.Context, channel sslio.AsynchronousByteChannel, b []byte, fixed int) (future async.Future[int]) {
	codec := NewFixedCodec(fixed)
	future = Encode[[]byte](ctx, channel, codec, b)
	return
}

// NewFixedCodec
// 定长消息，编码时不足补零，超出截断。
func NewFixedCodec(fixed int) *FixedCodec {
	if fixed < 1 {
		panic("codec.FixedCodec: fixed must be > 0")
	}
	return &FixedCodec{
		n: fixed,
	}
}

type FixedCodec struct {
	n int
}

func (codec *FixedCodec) Encode(param []byte) (b []byte, err error) {
	n := codec.n
	if pLen := len(param); pLen < n {
		n = pLen
	}
	b = make([]byte, codec.n)
	copy(b, param[0:n])
	return
}

func (codec *FixedCodec) Decode(buf bytebuffers.Buffer) (ok bool, message []byte, err error) {
	if buf.Len() < codec.n {
		return
	}
	message = make([]byte, codec.n)
	if _, err = buf.Read(message); err != nil {
		return
	}
	ok = true
	return
}
