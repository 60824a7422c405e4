package codec

import (
	"context"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/pkg/bytebuffers"
	"io"
)

const (
	defaultReadSize = 4096
)

// Decoder
// 解析器。
// 泛型 T 是解析的结果，建议在结果中自行定义协议解析的错误，因为 Decode 的错误会停止解析。
type Decoder[T any] interface {
	// Decode
	// 从已读取的数据中解析一条消息，解析成功时从 buf 中移除对应的字节。
	// 返回 ok(是否解析到)，message(消息)，err(错误，并停止解析)
	Decode(buf bytebuffers.Buffer) (ok bool, message T, err error)
}

// Decode
// 流式解析
// 默认创建一个流式且无限等待的 async.Promise，通道正常结束时以 EOF 结束流。
//
// 解析独占通道的读方向。
func Decode[T any](ctx context.Context, channel sslio.AsynchronousByteChannel, decoder Decoder[T], options ...async.Option) (future async.Future[T]) {
	// 默认开启 流 和 强等
	options = append(options, async.WithStream(), async.WithWait())
	promise, promiseErr := async.Make[T](ctx, options...)
	if promiseErr != nil {
		future = async.FailedImmediately[T](ctx, promiseErr)
		return
	}
	d := &decoding[T]{
		channel: channel,
		decoder: decoder,
		stream:  true,
		buf:     bytebuffers.NewBufferWithSize(defaultReadSize),
		promise: promise,
	}
	d.next()
	future = promise.Future()
	return
}

// DecodeOnce
// 单次解析
func DecodeOnce[T any](ctx context.Context, channel sslio.AsynchronousByteChannel, decoder Decoder[T], options ...async.Option) (future async.Future[T]) {
	promise, promiseErr := async.Make[T](ctx, options...)
	if promiseErr != nil {
		future = async.FailedImmediately[T](ctx, promiseErr)
		return
	}
	d := &decoding[T]{
		channel: channel,
		decoder: decoder,
		stream:  false,
		buf:     bytebuffers.NewBufferWithSize(defaultReadSize),
		promise: promise,
	}
	d.next()
	future = promise.Future()
	return
}

type decoding[T any] struct {
	channel sslio.AsynchronousByteChannel
	decoder Decoder[T]
	stream  bool
	buf     bytebuffers.Buffer
	promise async.Promise[T]
}

func (d *decoding[T]) next() {
	for {
		ok, message, decodeErr := d.decoder.Decode(d.buf)
		if decodeErr != nil {
			// 解析错误并停止解析
			d.fail(decodeErr)
			return
		}
		if !ok {
			break
		}
		d.promise.Succeed(message)
		if !d.stream {
			return
		}
	}
	p, allocateErr := d.buf.Allocate(defaultReadSize)
	if allocateErr != nil {
		d.fail(allocateErr)
		return
	}
	d.channel.Read(p, nil, d)
}

func (d *decoding[T]) Completed(n int, _ any) {
	if n <= 0 {
		_ = d.buf.AllocatedWrote(0)
		if d.buf.Len() > 0 {
			d.fail(io.ErrUnexpectedEOF)
			return
		}
		d.fail(io.EOF)
		return
	}
	if err := d.buf.AllocatedWrote(n); err != nil {
		d.fail(err)
		return
	}
	d.next()
}

func (d *decoding[T]) Failed(err error, _ any) {
	_ = d.buf.AllocatedWrote(0)
	d.fail(err)
}

func (d *decoding[T]) fail(err error) {
	d.promise.Fail(err)
	if d.stream {
		d.promise.Cancel()
	}
}
