package codec_test

import (
	"context"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/sslio/codec"
	"testing"
)

func TestFixedCodec(t *testing.T) {
	ctx := context.Background()
	exec := newExecutors(t)
	ctx = rxp.With(ctx, exec)

	out := newFakeChannel(nil, 2)
	if _, err := await[int](codec.FixedEncode(ctx, out, []byte("abc"), 5)); err != nil {
		t.Fatal(err)
	}
	if !out.Equals([]byte{'a', 'b', 'c', 0, 0}) {
		t.Fatal("short input must be padded")
	}

	in := newFakeChannel([]byte("0123456789"), 3)
	msg, err := await[[]byte](codec.DecodeOnce[[]byte](ctx, in, codec.NewFixedCodec(4)))
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "0123" {
		t.Fatal("bad message:", string(msg))
	}
}

func TestNewFixedCodec_Invalid(t *testing.T) {
	for _, fixed := range []int{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic for", fixed)
				}
			}()
			_ = codec.NewFixedCodec(fixed)
		}()
	}
}
