package sslio

import (
	"github.com/brickingsoft/sslio/pkg/queue"
	"sync/atomic"
)

// operation is one caller-issued plaintext read or write.
// It is mutated only by the drive loop while it is the consuming element of its queue.
type operation struct {
	b          []byte
	attachment any
	handler    CompletionHandler
	n          int
	replays    int
	token      queue.Token
	done       bool
}

func newOperation(b []byte, attachment any, handler CompletionHandler) *operation {
	return &operation{
		b:          b,
		attachment: attachment,
		handler:    handler,
	}
}

func (op *operation) remaining() []byte {
	return op.b[op.n:]
}

func (op *operation) advance(n int) {
	op.n += n
}

func (op *operation) exhausted() bool {
	return op.n >= len(op.b)
}

// settle adds the replays of a finishing operation to total.
func (op *operation) settle(total *atomic.Int64) {
	if op.replays > 0 {
		total.Add(int64(op.replays))
	}
}

func (op *operation) complete() {
	op.completeWith(op.n)
}

func (op *operation) completeWith(n int) {
	if op.done {
		return
	}
	op.done = true
	if op.handler != nil {
		op.handler.Completed(n, op.attachment)
	}
}

func (op *operation) fail(err error) {
	if op.done {
		return
	}
	op.done = true
	if op.handler != nil {
		op.handler.Failed(err, op.attachment)
	}
}
