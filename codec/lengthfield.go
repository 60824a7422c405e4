package codec

import (
	"context"
	"encoding/binary"
	"errors"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/pkg/bytebuffers"
)

const (
	lengthFieldSize = 8
)

var (
	ErrEmptyPacket    = errors.New("codec: empty packet")
	ErrPacketTooLarge = errors.New("codec: packet too large")
)

// LengthFieldDecode
// 解析 8 字节大端长度前缀的消息，maxLength <= 0 表示不限制。
func LengthFieldDecode(ctx context.Context, channel sslio.AsynchronousByteChannel, maxLength int, options ...async.Option) (future async.Future[[]byte]) {
	decoder := NewLengthFieldDecoder(maxLength)
	future = Decode[[]byte](ctx, channel, decoder, options...)
	return
}

func NewLengthFieldDecoder(maxLength int) *LengthFieldDecoder {
	return &LengthFieldDecoder{
		maxLength: maxLength,
	}
}

type LengthFieldDecoder struct {
	maxLength int
}

func (decoder *LengthFieldDecoder) Decode(buf bytebuffers.Buffer) (ok bool, message []byte, err error) {
	bufLen := buf.Len()
	if bufLen < lengthFieldSize {
		// not full
		return
	}
	lengthField := buf.Peek(lengthFieldSize)
	size := binary.BigEndian.Uint64(lengthField)
	if decoder.maxLength > 0 && size > uint64(decoder.maxLength) {
		err = ErrPacketTooLarge
		return
	}
	if uint64(bufLen-lengthFieldSize) < size {
		// not full
		return
	}
	if err = buf.Discard(lengthFieldSize); err != nil {
		return
	}
	message = make([]byte, int(size))
	if size > 0 {
		if _, err = buf.Read(message); err != nil {
			return
		}
	}
	ok = true
	return
}

type LengthFieldEncoder struct{}

func (encoder LengthFieldEncoder) Encode(p []byte) (b []byte, err error) {
	pLen := len(p)
	if pLen == 0 {
		err = ErrEmptyPacket
		return
	}
	b = make([]byte, lengthFieldSize+pLen)
	binary.BigEndian.PutUint64(b, uint64(pLen))
	copy(b[lengthFieldSize:], p)
	return
}

func LengthFieldEncode(ctx context.Context, channel sslio.AsynchronousByteChannel, p []byte) (future async.Future[int]) {
	future = Encode[[]byte](ctx, channel, LengthFieldEncoder{}, p)
	return
}
