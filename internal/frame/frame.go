// Package frame provides the animation-frame style scheduling used to batch
// state notifications: callbacks requested during one tick run together on
// the next one.
package frame

import (
	"context"
	"sync"
	"time"
)

// DefaultRate is the tick rate of a Ticker when none is given.
const DefaultRate = 60

// Scheduler queues a callback for the next frame.
type Scheduler interface {
	RequestFrame(cb func())
}

type queue struct {
	mu      sync.Mutex
	pending []func()
}

func (q *queue) push(cb func()) {
	q.mu.Lock()
	q.pending = append(q.pending, cb)
	q.mu.Unlock()
}

// takes everything queued so far; callbacks queued while these run wait for
// the following frame
func (q *queue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	cbs := q.pending
	q.pending = nil
	return cbs
}

// Ticker runs queued callbacks on its own goroutine at a fixed rate.
type Ticker struct {
	q        queue
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewTicker(rate int) *Ticker {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Ticker{
		interval: time.Second / time.Duration(rate),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (t *Ticker) RequestFrame(cb func()) {
	t.q.push(cb)
}

// Start begins ticking until ctx is done or Stop is called.
func (t *Ticker) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		go t.loop(ctx)
	})
}

func (t *Ticker) loop(ctx context.Context) {
	defer close(t.done)

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-tick.C:
			for _, cb := range t.q.drain() {
				cb()
			}
		}
	}
}

// Stop halts the loop and waits for the current frame to finish.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	t.startOnce.Do(func() { close(t.done) })
	<-t.done
}

// Manual only runs callbacks when Flush is called.
type Manual struct {
	q queue
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) RequestFrame(cb func()) {
	m.q.push(cb)
}

// Flush runs one frame and reports how many callbacks ran.
func (m *Manual) Flush() int {
	cbs := m.q.drain()
	for _, cb := range cbs {
		cb()
	}
	return len(cbs)
}

// Pending reports the number of callbacks waiting for the next frame.
func (m *Manual) Pending() int {
	m.q.mu.Lock()
	defer m.q.mu.Unlock()
	return len(m.q.pending)
}

// Inline runs each callback immediately on the requesting goroutine. It suits
// batch callers with no frame loop; coalescing then degrades to one
// notification per mutation.
type Inline struct{}

func (Inline) RequestFrame(cb func()) {
	cb()
}
