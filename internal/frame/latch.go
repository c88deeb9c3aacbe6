package frame

import (
	"context"
	"sync/atomic"
	"time"
)

// Latch rejects a call while the previous one is still running.
type Latch struct {
	busy atomic.Bool
}

// Do runs fn unless another Do is in flight; ran reports whether it did.
func (l *Latch) Do(ctx context.Context, fn func(context.Context) error) (ran bool, err error) {
	if !l.busy.CompareAndSwap(false, true) {
		return false, nil
	}
	defer l.busy.Store(false)
	return true, fn(ctx)
}

func (l *Latch) Busy() bool {
	return l.busy.Load()
}

// Debounce lets one call through, then drops calls for span.
type Debounce struct {
	span time.Duration
	now  func() time.Time
	next atomic.Int64
}

func NewDebounce(span time.Duration) *Debounce {
	if span <= 0 {
		span = 100 * time.Millisecond
	}
	return &Debounce{span: span, now: time.Now}
}

// Allow reports whether a call at this moment should go through.
func (d *Debounce) Allow() bool {
	now := d.now().UnixNano()
	for {
		next := d.next.Load()
		if now < next {
			return false
		}
		if d.next.CompareAndSwap(next, now+int64(d.span)) {
			return true
		}
	}
}
