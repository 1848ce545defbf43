// Package pipeline implements the batched producer/consumer worker
// pool described in §5: a bounded ring of slots, cooperative role
// flipping between producer and consumer threads, and bounded
// exponential back-off under contention.
package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// spinIterations and maxBackoff mirror §5's "first 16 contention
// iterations spin, then exponential sleep capped at ~1 second".
const (
	spinIterations = 16
	maxBackoff     = time.Second
)

// Producer fills ring slots from an upstream source. index is the
// slot's absolute (monotonically increasing, never wrapped) position
// in the stream, letting callers correlate a slot back to out-of-band
// metadata (e.g. a query name) despite the underlying array wrapping.
// Fill returns ok=false when the source is exhausted.
type Producer interface {
	Fill(index int64, slot []byte) (n int, ok bool)
}

// Consumer drains ring slots, performing whatever per-batch work the
// pipeline wires in (§4.7's normalize → MatchFinder → Clusterer →
// SyntenyMerger chain, in querypipeline.go).
type Consumer interface {
	Drain(index int64, slot []byte, n int)
}

// Ring is the bounded slot ring shared by a pool of worker goroutines
// that cooperatively flip between the Producer and Consumer roles,
// grounded on the teacher's fixed producer/consumer channel-pair pools
// (cmd/cablastp-compress/compression.go's jobs/results channels,
// reduced_compression.go's redCompressPool) generalized into the
// symmetric role-flip contract §5 and §9 describe.
type Ring struct {
	slots    [][]byte
	lens     []int
	head     atomic.Int64 // next slot index a producer may fill
	tail     atomic.Int64 // next slot index a consumer may drain
	producer atomic.Bool  // "I am the producer" token, held by at most one goroutine
	consumer atomic.Bool  // symmetric token for the downstream output stage
	closed   atomic.Bool
}

// NewRing allocates a Ring of n slots, each of cap capacity bytes.
func NewRing(n, cap int) *Ring {
	r := &Ring{slots: make([][]byte, n), lens: make([]int, n)}
	for i := range r.slots {
		r.slots[i] = make([]byte, cap)
	}
	return r
}

func (r *Ring) size() int { return len(r.slots) }

// occupied returns the number of filled-but-undrained slots.
func (r *Ring) occupied() int64 {
	return r.head.Load() - r.tail.Load()
}

// Close marks the ring as finished: no further Fill calls will occur,
// and Run loops exit once the remaining occupied slots drain.
func (r *Ring) Close() { r.closed.Store(true) }

// Run drives the cooperative pool: each of the workers goroutines it
// launches repeatedly tries to become producer (if the ring has headroom
// and no thread currently holds the token) or consumer (symmetric,
// downstream side), falling back to back off under contention.
func Run(r *Ring, p Producer, c Consumer, workers int) {
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(r, p, c)
		}()
	}
	wg.Wait()
}

func runWorker(r *Ring, p Producer, c Consumer) {
	backoff := newBackoff()
	for {
		if r.closed.Load() && r.occupied() == 0 {
			return
		}

		// Cooperative role flip: when the queue is below half full, a
		// thread not already acting as consumer tries to become the
		// producer and keeps the token until the ring fills.
		if r.occupied() < int64(r.size())/2 && r.producer.CompareAndSwap(false, true) {
			for r.occupied() < int64(r.size()) {
				head := r.head.Load()
				idx := head % int64(r.size())
				n, ok := p.Fill(head, r.slots[idx])
				if !ok {
					r.Close()
					break
				}
				r.lens[idx] = n
				r.head.Add(1)
				backoff.reset()
			}
			r.producer.Store(false)
			continue
		}

		if r.occupied() > 0 && r.consumer.CompareAndSwap(false, true) {
			for r.occupied() > 0 {
				tail := r.tail.Load()
				idx := tail % int64(r.size())
				c.Drain(tail, r.slots[idx], r.lens[idx])
				r.tail.Add(1)
				backoff.reset()
			}
			r.consumer.Store(false)
			continue
		}

		if r.closed.Load() && r.occupied() == 0 {
			return
		}
		backoff.wait()
	}
}

// backoff implements §5's bounded exponential back-off: the first
// spinIterations contention rounds busy-spin (runtime.Gosched), then
// the wait time doubles each round up to maxBackoff.
type backoff struct {
	iterations int
	wait_      time.Duration
}

func newBackoff() *backoff { return &backoff{wait_: time.Microsecond} }

func (b *backoff) reset() {
	b.iterations = 0
	b.wait_ = time.Microsecond
}

func (b *backoff) wait() {
	if b.iterations < spinIterations {
		b.iterations++
		runtime.Gosched()
		return
	}
	time.Sleep(b.wait_)
	b.wait_ *= 2
	if b.wait_ > maxBackoff {
		b.wait_ = maxBackoff
	}
}
