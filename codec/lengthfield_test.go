package codec_test

import (
	"context"
	"encoding/binary"
	"errors"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
	"github.com/brickingsoft/sslio/codec"
	"io"
	"sync"
	"testing"
)

func frame(b []byte) []byte {
	p := make([]byte, 8+len(b))
	binary.BigEndian.PutUint64(p, uint64(len(b)))
	copy(p[8:], b)
	return p
}

func TestLengthFieldDecode(t *testing.T) {
	ctx := context.Background()
	exec := newExecutors(t)
	ctx = rxp.With(ctx, exec)

	var p []byte
	p = append(p, frame([]byte("hello world"))...)
	p = append(p, frame([]byte("sslio"))...)
	ch := newFakeChannel(p, 5)

	var (
		mu       sync.Mutex
		messages []string
		once     sync.Once
	)
	done := make(chan struct{})
	codec.LengthFieldDecode(ctx, ch, 1024).OnComplete(func(ctx context.Context, msg []byte, err error) {
		if err != nil {
			if !errors.Is(err, io.EOF) && !async.IsCanceled(err) {
				t.Error(err)
			}
			once.Do(func() { close(done) })
			return
		}
		mu.Lock()
		messages = append(messages, string(msg))
		mu.Unlock()
	})
	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(messages) != 2 || messages[0] != "hello world" || messages[1] != "sslio" {
		t.Fatal("bad messages:", messages)
	}
}

func TestLengthFieldDecode_TooLarge(t *testing.T) {
	ctx := context.Background()
	exec := newExecutors(t)
	ctx = rxp.With(ctx, exec)

	ch := newFakeChannel(frame(make([]byte, 64)), 1024)
	_, err := await[[]byte](codec.DecodeOnce[[]byte](ctx, ch, codec.NewLengthFieldDecoder(16)))
	if !errors.Is(err, codec.ErrPacketTooLarge) {
		t.Fatal("expected too large, got", err)
	}
}

func TestLengthFieldDecode_Truncated(t *testing.T) {
	ctx := context.Background()
	exec := newExecutors(t)
	ctx = rxp.With(ctx, exec)

	p := frame([]byte("hello world"))
	ch := newFakeChannel(p[:len(p)-2], 4)
	_, err := await[[]byte](codec.DecodeOnce[[]byte](ctx, ch, codec.NewLengthFieldDecoder(0)))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected unexpected EOF, got", err)
	}
}

func TestLengthFieldEncode(t *testing.T) {
	ctx := context.Background()
	exec := newExecutors(t)
	ctx = rxp.With(ctx, exec)

	b := []byte("hello world")
	ch := newFakeChannel(nil, 3)
	wn, err := await[int](codec.LengthFieldEncode(ctx, ch, b))
	if err != nil {
		t.Fatal(err)
	}
	if wn != 8+len(b) || !ch.Equals(frame(b)) {
		t.Fatal("bad frame, wrote", wn)
	}

	if _, err = await[int](codec.LengthFieldEncode(ctx, ch, nil)); !errors.Is(err, codec.ErrEmptyPacket) {
		t.Fatal("expected empty packet, got", err)
	}
}
