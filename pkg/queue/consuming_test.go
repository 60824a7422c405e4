package queue_test

import (
	"github.com/brickingsoft/sslio/pkg/queue"
	"sync"
	"testing"
)

type entry struct {
	n        int
	progress int
}

func TestConsuming(t *testing.T) {
	q := queue.New[*entry]()
	for i := 0; i < 3; i++ {
		q.Add(&entry{n: i})
	}
	if n := q.Len(); n != 3 {
		t.Fatal("expected 3, got", n)
	}
	e, token, ok := q.Consume()
	if !ok || e.n != 0 {
		t.Fatal("expected head 0, got", e, ok)
	}
	if _, _, busy := q.Consume(); busy {
		t.Fatal("consume must fail while another element is consuming")
	}
	if !q.Busy() {
		t.Fatal("queue must be busy")
	}
	if !q.Consumed(token) {
		t.Fatal("consumed must match the consuming token")
	}
	if q.Consumed(token) {
		t.Fatal("consumed must not match twice")
	}
	e, _, ok = q.Consume()
	if !ok || e.n != 1 {
		t.Fatal("expected head 1, got", e, ok)
	}
	t.Log(q.Len())
}

func TestConsuming_Replay(t *testing.T) {
	q := queue.New[*entry]()
	q.Add(&entry{n: 0})
	q.Add(&entry{n: 1})

	e, token, ok := q.Consume()
	if !ok {
		t.Fatal("expected consume")
	}
	e.progress = 7
	if !q.Replay(token) {
		t.Fatal("replay must match the consuming token")
	}
	if q.Replay(token) {
		t.Fatal("replay must not match after the element was put back")
	}
	again, againToken, ok := q.Consume()
	if !ok || again != e {
		t.Fatal("replayed element must be the head again")
	}
	if again.progress != 7 {
		t.Fatal("replay must keep progress, got", again.progress)
	}
	if againToken != token {
		t.Fatal("replay must keep the token")
	}
	q.Consumed(againToken)
	last, _, ok := q.Consume()
	if !ok || last.n != 1 {
		t.Fatal("expected 1 after replayed element, got", last)
	}
}

func TestConsuming_StaleToken(t *testing.T) {
	q := queue.New[*entry]()
	stale := q.Add(&entry{n: 0})
	_, token, _ := q.Consume()
	q.Consumed(token)
	q.Add(&entry{n: 1})
	_, _, ok := q.Consume()
	if !ok {
		t.Fatal("expected consume")
	}
	if q.Consumed(stale) || q.Replay(stale) {
		t.Fatal("stale token must not match a later element")
	}
}

func TestConsuming_DrainAll(t *testing.T) {
	q := queue.New[*entry]()
	for i := 0; i < 4; i++ {
		q.Add(&entry{n: i})
	}
	_, token, _ := q.Consume()
	drained := q.DrainAll()
	if len(drained) != 3 {
		t.Fatal("expected 3 drained, got", len(drained))
	}
	for i, e := range drained {
		if e.n != i+1 {
			t.Fatal("drained out of order", i, e.n)
		}
	}
	if q.Len() != 0 {
		t.Fatal("queue must be empty after drain")
	}
	if !q.Consumed(token) {
		t.Fatal("consuming element stays with its holder")
	}
	if drained = q.DrainAll(); drained != nil {
		t.Fatal("expected nothing, got", drained)
	}
}

func TestConsuming_Concurrent(t *testing.T) {
	q := queue.New[*entry]()
	wg := new(sync.WaitGroup)
	producers := 8
	perProducer := 100
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(q *queue.Consuming[*entry], i int, wg *sync.WaitGroup) {
			for j := 0; j < perProducer; j++ {
				q.Add(&entry{n: i*perProducer + j})
			}
			wg.Done()
		}(q, i, wg)
	}

	seen := make(map[int]bool)
	seenLocker := new(sync.Mutex)
	active := 0
	activeLocker := new(sync.Mutex)
	consumers := 4
	done := make(chan struct{})
	cwg := new(sync.WaitGroup)
	for i := 0; i < consumers; i++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			replayed := false
			for {
				e, token, ok := q.Consume()
				if !ok {
					select {
					case <-done:
						if q.Len() == 0 && !q.Busy() {
							return
						}
					default:
					}
					continue
				}
				activeLocker.Lock()
				active++
				overlapped := active > 1
				activeLocker.Unlock()
				if overlapped {
					t.Error("two elements consuming at once")
				}
				activeLocker.Lock()
				active--
				activeLocker.Unlock()
				if !replayed {
					replayed = true
					if !q.Replay(token) {
						t.Error("replay failed")
					}
					continue
				}
				replayed = false
				seenLocker.Lock()
				seen[e.n] = true
				seenLocker.Unlock()
				if !q.Consumed(token) {
					t.Error("consumed failed")
				}
			}
		}()
	}
	wg.Wait()
	close(done)
	cwg.Wait()
	if len(seen) != producers*perProducer {
		t.Fatal("lost elements, seen", len(seen))
	}
}
