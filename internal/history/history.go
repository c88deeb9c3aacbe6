// Package history owns the subtitle entry list and the bounded undo/redo log
// of edits applied to it. Every mutation is recorded as an Operation; Undo and
// Redo walk a cursor over that log. Change notifications are coalesced to one
// per frame of the injected frame.Scheduler.
package history

import (
	"sync"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/logging"
	"github.com/mgpai22/subtake/internal/subtitle"
)

const (
	MinOperationMemorySize     = 2
	MaxOperationMemorySize     = 256
	DefaultOperationMemorySize = 64
)

// Listener receives the History after a batch of changes.
type Listener func(h *History)

// Subscription identifies a registered Listener.
type Subscription int

type subscriber struct {
	id Subscription
	cb Listener
}

// Config seeds a History. Entries and Options are copied and are not
// undoable.
type Config struct {
	Filename            string
	Duration            float64
	Entries             []subtitle.Entry
	Options             []subtitle.Option
	OperationMemorySize int
	Scheduler           frame.Scheduler
	Logger              *logging.Logger
}

type History struct {
	filename string
	duration float64

	mu       sync.Mutex
	items    []subtitle.Entry
	options  []subtitle.Option
	preview  *subtitle.Entry
	ops      []Operation
	cursor   int
	capacity int

	subscribers []subscriber
	nextSubID   Subscription

	sched frame.Scheduler
	// a notification is queued for the next frame
	dirty bool
	// an undo/redo ran and its notification has not fired yet
	undoRedoDirty bool
	// the last mutation came from Undo/Redo; read once by ConsumeAutoSet
	autoSet bool

	logger *logging.Logger
}

func New(cfg Config) *History {
	capacity := cfg.OperationMemorySize
	if !validMemorySize(capacity) {
		capacity = DefaultOperationMemorySize
	}

	sched := cfg.Scheduler
	if sched == nil {
		sched = frame.Inline{}
	}

	return &History{
		filename: cfg.Filename,
		duration: cfg.Duration,
		items:    append([]subtitle.Entry(nil), cfg.Entries...),
		options:  append([]subtitle.Option(nil), cfg.Options...),
		cursor:   -1,
		capacity: capacity,
		sched:    sched,
		logger:   logging.Or(cfg.Logger).Named("history"),
	}
}

func (h *History) Filename() string  { return h.filename }
func (h *History) Duration() float64 { return h.duration }

// Subtitles returns a copy of the committed entries.
func (h *History) Subtitles() []subtitle.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]subtitle.Entry(nil), h.items...)
}

// Options returns a copy of the option table.
func (h *History) Options() []subtitle.Option {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]subtitle.Option(nil), h.options...)
}

// Preview returns a copy of the pending entry, or nil.
func (h *History) Preview() *subtitle.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.preview == nil {
		return nil
	}
	p := *h.preview
	return &p
}

// Document bundles entries and options for export.
func (h *History) Document() *subtitle.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &subtitle.Document{
		Entries: append([]subtitle.Entry(nil), h.items...),
		Options: append([]subtitle.Option(nil), h.options...),
	}
}

func (h *History) Subscribe(cb Listener) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSubID++
	h.subscribers = append(h.subscribers, subscriber{id: h.nextSubID, cb: cb})
	return h.nextSubID
}

func (h *History) Unsubscribe(id Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.subscribers[:0]
	for _, s := range h.subscribers {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	h.subscribers = kept
}

// fireUpdate queues one notification for the next frame unless one is
// already queued.
func (h *History) fireUpdate() {
	h.mu.Lock()
	if h.dirty {
		h.mu.Unlock()
		return
	}
	h.dirty = true
	h.mu.Unlock()

	h.sched.RequestFrame(h.notify)
}

// notify clears the frame flags before calling out, so a mutation made by a
// subscriber, or on another goroutine meanwhile, queues the next frame.
func (h *History) notify() {
	h.mu.Lock()
	h.dirty = false
	h.undoRedoDirty = false
	subs := append([]subscriber(nil), h.subscribers...)
	h.mu.Unlock()

	for _, s := range subs {
		s.cb(h)
	}
}

// option of the last entry, or 0
func (h *History) lastOption() int {
	if n := len(h.items); n > 0 {
		return h.items[n-1].Option
	}
	return 0
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// WillAppendItem sets the preview entry shown while a range is being defined.
func (h *History) WillAppendItem(beginTime, endTime float64) {
	h.mu.Lock()
	h.preview = &subtitle.Entry{
		BeginTime: beginTime,
		EndTime:   endTime,
		Option:    h.lastOption(),
	}
	h.mu.Unlock()

	h.fireUpdate()
}

func (h *History) ClearWillAppendItem() {
	h.mu.Lock()
	h.preview = nil
	h.mu.Unlock()

	h.fireUpdate()
}

// AppendItem adds an empty entry. Times are not validated here; see
// ValidateSpan.
func (h *History) AppendItem(beginTime, endTime float64) {
	h.mu.Lock()
	entry := subtitle.Entry{
		BeginTime: beginTime,
		EndTime:   endTime,
		Option:    h.lastOption(),
	}
	h.pushOperation(appendOp(len(h.items), entry))
	h.mu.Unlock()

	h.fireUpdate()
}

// CommitPreview appends the preview entry's range and clears the preview.
// It reports false when there is no preview.
func (h *History) CommitPreview() bool {
	h.mu.Lock()
	if h.preview == nil {
		h.mu.Unlock()
		return false
	}
	entry := subtitle.Entry{
		BeginTime: h.preview.BeginTime,
		EndTime:   h.preview.EndTime,
		Option:    h.lastOption(),
	}
	h.preview = nil
	h.pushOperation(appendOp(len(h.items), entry))
	h.mu.Unlock()

	h.fireUpdate()
	return true
}

func (h *History) WriteText(index int, value string) {
	h.mu.Lock()
	if index < 0 || index >= len(h.items) {
		n := len(h.items)
		h.mu.Unlock()
		h.logger.Errorw("writeText index out of range", "index", index, "len", n)
		return
	}
	before := h.items[index].Text
	if before == value {
		h.mu.Unlock()
		return
	}
	h.pushOperation(setTextOp(index, before, value))
	h.mu.Unlock()

	h.fireUpdate()
}

func (h *History) WriteDuration(index int, span subtitle.Span) {
	h.mu.Lock()
	if index < 0 || index >= len(h.items) {
		n := len(h.items)
		h.mu.Unlock()
		h.logger.Errorw("writeDuration index out of range", "index", index, "len", n)
		return
	}
	before := h.items[index].Span()
	if before.Equal(span) {
		h.mu.Unlock()
		return
	}
	h.pushOperation(setDurationOp(index, before, span))
	h.mu.Unlock()

	h.fireUpdate()
}

// pushOperation drops any redo suffix, appends op, evicts from the front
// beyond capacity and applies op. Caller holds mu.
func (h *History) pushOperation(op Operation) {
	h.ops = append(h.ops[:h.cursor+1], op)
	h.cursor = len(h.ops) - 1
	h.trim()
	h.items = op.apply(h.items)
}

// trim evicts the oldest operations over capacity. Unapplied operations are
// never left reachable past an evicted gap. Caller holds mu.
func (h *History) trim() {
	over := len(h.ops) - h.capacity
	if over <= 0 {
		return
	}
	if h.cursor+1 < over {
		h.ops = h.ops[:h.cursor+1]
		over = len(h.ops) - h.capacity
		if over <= 0 {
			return
		}
	}
	h.ops = append([]Operation(nil), h.ops[over:]...)
	h.cursor = min(h.cursor-over, len(h.ops)-1)
}

// Undo reverts the operation under the cursor. It is a no-op when nothing is
// left to undo or when an undo/redo is still waiting for its frame.
func (h *History) Undo() {
	h.mu.Lock()
	if h.cursor == -1 || h.undoRedoDirty {
		h.mu.Unlock()
		return
	}
	h.items = h.ops[h.cursor].revert(h.items)
	h.cursor--
	h.autoSet = true
	h.undoRedoDirty = true
	h.mu.Unlock()

	h.fireUpdate()
}

// Redo reapplies the operation after the cursor, with the same guards as
// Undo.
func (h *History) Redo() {
	h.mu.Lock()
	if h.cursor == len(h.ops)-1 || h.undoRedoDirty {
		h.mu.Unlock()
		return
	}
	h.cursor++
	h.items = h.ops[h.cursor].apply(h.items)
	h.autoSet = true
	h.undoRedoDirty = true
	h.mu.Unlock()

	h.fireUpdate()
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > -1
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.ops)-1
}

// ConsumeAutoSet reports whether the latest change came from Undo/Redo and
// clears the flag. Edit callbacks use it to avoid recording a replayed change
// as a new edit.
func (h *History) ConsumeAutoSet() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := h.autoSet
	h.autoSet = false
	return v
}

// SetOperationMemorySize changes the log capacity. Values outside
// [MinOperationMemorySize, MaxOperationMemorySize] are ignored.
func (h *History) SetOperationMemorySize(n int) {
	if !validMemorySize(n) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.capacity = n
	h.trim()
}

func (h *History) OperationMemorySize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capacity
}

// Operations returns a copy of the log and the cursor position.
func (h *History) Operations() ([]Operation, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Operation(nil), h.ops...), h.cursor
}

func validMemorySize(n int) bool {
	return n >= MinOperationMemorySize && n <= MaxOperationMemorySize
}
