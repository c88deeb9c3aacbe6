package history

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/subtitle"
)

func newTestHistory(t *testing.T, entries ...subtitle.Entry) (*History, *frame.Manual) {
	t.Helper()
	m := frame.NewManual()
	h := New(Config{
		Filename:  "clip.mp4",
		Duration:  120,
		Entries:   entries,
		Scheduler: m,
	})
	return h, m
}

func seedEntries() []subtitle.Entry {
	return []subtitle.Entry{
		{BeginTime: 0, EndTime: 1.5, Text: "hello", Option: 0},
		{BeginTime: 2, EndTime: 3, Text: "world", Option: 1},
		{BeginTime: 4, EndTime: 6, Text: "again", Option: 1},
	}
}

func undoAll(h *History, m *frame.Manual, n int) {
	for i := 0; i < n; i++ {
		h.Undo()
		m.Flush()
	}
}

func TestUndoRoundTrip(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)
	before := h.Subtitles()

	h.AppendItem(10, 12)
	h.WriteText(3, "new line")
	h.WriteDuration(0, subtitle.Span{BeginTime: 0.5, EndTime: 1.8})
	h.WriteText(1, "changed")
	h.WriteDuration(3, subtitle.Span{BeginTime: 10.5, EndTime: 11})
	m.Flush()

	if got := h.Subtitles(); reflect.DeepEqual(got, before) {
		t.Fatal("edits did not change the entries")
	}

	undoAll(h, m, 5)

	if got := h.Subtitles(); !reflect.DeepEqual(got, before) {
		t.Errorf("after undo got %+v, want %+v", got, before)
	}
	if h.CanUndo() {
		t.Error("CanUndo should be false once every edit is undone")
	}
}

func TestRedoReappliesForward(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)

	h.AppendItem(7, 8)
	h.WriteText(3, "a")
	h.WriteText(3, "b")
	h.WriteDuration(2, subtitle.Span{BeginTime: 4.2, EndTime: 5})
	m.Flush()
	want := h.Subtitles()

	undoAll(h, m, 3)
	if !h.CanRedo() {
		t.Fatal("CanRedo should be true after undo")
	}
	for i := 0; i < 3; i++ {
		h.Redo()
		m.Flush()
	}

	if got := h.Subtitles(); !reflect.DeepEqual(got, want) {
		t.Errorf("after redo got %+v, want %+v", got, want)
	}
	if h.CanRedo() {
		t.Error("CanRedo should be false at the tail")
	}
}

func TestNoOpEditsDoNotGrowLog(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)

	h.WriteText(0, "hello")
	h.WriteDuration(1, subtitle.Span{BeginTime: 2, EndTime: 3})
	m.Flush()

	if h.CanUndo() {
		t.Error("no-op edit made CanUndo true")
	}
	if ops, cursor := h.Operations(); len(ops) != 0 || cursor != -1 {
		t.Errorf("expected empty log, got %d ops cursor %d", len(ops), cursor)
	}
	if got := m.Pending(); got != 0 {
		t.Errorf("no-op edit scheduled %d notifications", got)
	}
}

func TestWriteDurationUnsetSpanIsNoOp(t *testing.T) {
	h, m := newTestHistory(t)
	h.AppendItem(math.NaN(), math.NaN())
	m.Flush()

	h.WriteDuration(0, subtitle.Span{BeginTime: math.NaN(), EndTime: math.NaN()})
	if ops, _ := h.Operations(); len(ops) != 1 {
		t.Errorf("expected 1 op, got %d", len(ops))
	}
}

func TestCapacityEviction(t *testing.T) {
	const size = 4
	m := frame.NewManual()
	h := New(Config{Duration: 60, OperationMemorySize: size, Scheduler: m})

	for i := 0; i < size+5; i++ {
		h.AppendItem(float64(i), float64(i)+0.5)
	}
	m.Flush()

	ops, cursor := h.Operations()
	if len(ops) != size || cursor != size-1 {
		t.Fatalf("expected %d ops with cursor %d, got %d ops cursor %d", size, size-1, len(ops), cursor)
	}

	undoAll(h, m, size)
	if h.CanUndo() {
		t.Error("more than operationMemorySize steps were undoable")
	}
	if got := len(h.Subtitles()); got != 5 {
		t.Errorf("expected the 5 evicted appends to survive, got %d entries", got)
	}

	h.Undo()
	m.Flush()
	if got := len(h.Subtitles()); got != 5 {
		t.Errorf("undo past the log changed entries: %d", got)
	}
}

func TestWriteOutOfBoundsIsIgnored(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)
	before := h.Subtitles()

	h.WriteText(999, "x")
	h.WriteText(-1, "x")
	h.WriteDuration(3, subtitle.Span{BeginTime: 1, EndTime: 2})
	m.Flush()

	if got := h.Subtitles(); !reflect.DeepEqual(got, before) {
		t.Errorf("entries changed: %+v", got)
	}
	if h.CanUndo() {
		t.Error("out-of-bounds write was recorded")
	}
}

func TestNotificationsCoalescePerFrame(t *testing.T) {
	h, m := newTestHistory(t)

	var calls, seen int
	h.Subscribe(func(h *History) {
		calls++
		seen = len(h.Subtitles())
	})

	h.AppendItem(0, 1)
	h.AppendItem(1, 2)
	h.AppendItem(2, 3)

	if calls != 0 {
		t.Fatal("subscriber ran before the frame")
	}
	if ran := m.Flush(); ran != 1 {
		t.Errorf("expected 1 scheduled callback, got %d", ran)
	}
	if calls != 1 {
		t.Errorf("expected 1 notification, got %d", calls)
	}
	if seen != 3 {
		t.Errorf("subscriber saw %d entries, want 3", seen)
	}

	h.AppendItem(3, 4)
	m.Flush()
	if calls != 2 {
		t.Errorf("next frame should notify again, got %d calls", calls)
	}
}

func TestEditFromSubscriberQueuesNextFrame(t *testing.T) {
	h, m := newTestHistory(t)

	var calls, seen int
	h.Subscribe(func(h *History) {
		calls++
		if calls == 1 {
			h.AppendItem(5, 6)
		}
		seen = len(h.Subtitles())
	})

	h.AppendItem(0, 1)
	m.Flush()
	if m.Pending() != 1 {
		t.Fatalf("edit made by a subscriber queued %d frames, want 1", m.Pending())
	}

	m.Flush()
	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
	if want := len(h.Subtitles()); seen != want || want != 2 {
		t.Errorf("subscriber last saw %d entries, history has %d", seen, want)
	}

	h.Undo()
	if got := len(h.Subtitles()); got != 1 {
		t.Errorf("undo after the follow-up frame did not apply: %d entries", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	h, m := newTestHistory(t)

	var a, b int
	idA := h.Subscribe(func(*History) { a++ })
	h.Subscribe(func(*History) { b++ })
	h.Unsubscribe(idA)

	h.AppendItem(0, 1)
	m.Flush()

	if a != 0 || b != 1 {
		t.Errorf("got a=%d b=%d, want a=0 b=1", a, b)
	}
}

func TestUndoBlockedUntilFrame(t *testing.T) {
	h, m := newTestHistory(t)
	h.AppendItem(0, 1)
	h.AppendItem(1, 2)
	m.Flush()

	h.Undo()
	h.Undo()
	if got := len(h.Subtitles()); got != 1 {
		t.Fatalf("second undo in the same frame applied: %d entries", got)
	}
	h.Redo()
	if got := len(h.Subtitles()); got != 1 {
		t.Fatalf("redo in the same frame applied: %d entries", got)
	}

	m.Flush()
	h.Undo()
	m.Flush()
	if got := len(h.Subtitles()); got != 0 {
		t.Errorf("undo after the frame did not apply: %d entries", got)
	}
}

func TestInlineSchedulerDoesNotBlockUndo(t *testing.T) {
	h := New(Config{Duration: 10})
	h.AppendItem(0, 1)
	h.AppendItem(1, 2)

	h.Undo()
	h.Undo()
	if got := len(h.Subtitles()); got != 0 {
		t.Errorf("expected both undos to apply inline, got %d entries", got)
	}
}

func TestNewEditAfterUndoTruncatesRedo(t *testing.T) {
	h, m := newTestHistory(t)
	h.AppendItem(0, 1)
	h.AppendItem(1, 2)
	m.Flush()

	h.Undo()
	m.Flush()
	h.AppendItem(5, 6)
	m.Flush()

	if h.CanRedo() {
		t.Error("redo suffix survived a new edit")
	}
	ops, cursor := h.Operations()
	if len(ops) != 2 || cursor != 1 {
		t.Fatalf("expected 2 ops cursor 1, got %d ops cursor %d", len(ops), cursor)
	}
	if ops[1].Entry.BeginTime != 5 {
		t.Errorf("tail op is %+v, want the new append", ops[1])
	}

	h.Redo()
	m.Flush()
	if got := len(h.Subtitles()); got != 2 {
		t.Errorf("redo at the tail changed entries: %d", got)
	}
}

func TestConsumeAutoSet(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)
	h.WriteText(0, "hi")
	m.Flush()

	if h.ConsumeAutoSet() {
		t.Error("user edit flagged as replay")
	}

	h.Undo()
	if !h.ConsumeAutoSet() {
		t.Error("undo did not set the replay flag")
	}
	if h.ConsumeAutoSet() {
		t.Error("replay flag should clear after one read")
	}
	m.Flush()

	h.Redo()
	if !h.ConsumeAutoSet() {
		t.Error("redo did not set the replay flag")
	}
}

func TestAppendInheritsLastOption(t *testing.T) {
	h, m := newTestHistory(t)
	h.AppendItem(0, 1)
	m.Flush()
	if got := h.Subtitles()[0]; got.Option != 0 || got.Text != "" {
		t.Errorf("first append got %+v", got)
	}

	h, m = newTestHistory(t, seedEntries()...)
	h.AppendItem(8, 9)
	m.Flush()
	if got := h.Subtitles()[3].Option; got != 1 {
		t.Errorf("expected option 1 from the last entry, got %d", got)
	}
}

func TestPreviewEntry(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)

	var calls int
	h.Subscribe(func(*History) { calls++ })

	h.WillAppendItem(10, 11)
	m.Flush()
	p := h.Preview()
	if p == nil {
		t.Fatal("expected a preview entry")
	}
	if p.BeginTime != 10 || p.EndTime != 11 || p.Option != 1 {
		t.Errorf("unexpected preview %+v", *p)
	}
	if h.CanUndo() {
		t.Error("preview touched the operation log")
	}

	h.ClearWillAppendItem()
	m.Flush()
	if h.Preview() != nil {
		t.Error("preview not cleared")
	}
	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}

	h.WillAppendItem(12, 13)
	if !h.CommitPreview() {
		t.Fatal("CommitPreview reported no preview")
	}
	m.Flush()
	if h.Preview() != nil {
		t.Error("commit left the preview set")
	}
	got := h.Subtitles()
	if len(got) != 4 || got[3].BeginTime != 12 {
		t.Errorf("commit did not append the preview range: %+v", got)
	}
	if h.CommitPreview() {
		t.Error("CommitPreview with no preview should report false")
	}
}

func TestSubtitlesReturnsCopy(t *testing.T) {
	h, _ := newTestHistory(t, seedEntries()...)

	got := h.Subtitles()
	got[0].Text = "mutated"

	if h.Subtitles()[0].Text != "hello" {
		t.Error("caller mutation reached the live entries")
	}
}

func TestSetOperationMemorySize(t *testing.T) {
	h, m := newTestHistory(t)
	for i := 0; i < 5; i++ {
		h.AppendItem(float64(i), float64(i)+1)
	}
	m.Flush()

	for _, n := range []int{-1, 0, 1, 257, 1000} {
		h.SetOperationMemorySize(n)
		if got := h.OperationMemorySize(); got != DefaultOperationMemorySize {
			t.Errorf("SetOperationMemorySize(%d) changed capacity to %d", n, got)
		}
	}

	h.SetOperationMemorySize(2)
	ops, cursor := h.Operations()
	if len(ops) != 2 || cursor != 1 {
		t.Errorf("expected 2 ops cursor 1, got %d ops cursor %d", len(ops), cursor)
	}
}

func TestShrinkKeepsReachableOps(t *testing.T) {
	h, m := newTestHistory(t)
	for i := 0; i < 5; i++ {
		h.AppendItem(float64(i), float64(i)+1)
	}
	m.Flush()
	undoAll(h, m, 4)

	h.SetOperationMemorySize(2)
	ops, cursor := h.Operations()
	if len(ops) != 1 || cursor != 0 {
		t.Fatalf("expected 1 op cursor 0, got %d ops cursor %d", len(ops), cursor)
	}
	if h.CanRedo() {
		t.Error("redo survived eviction")
	}

	h.Undo()
	m.Flush()
	if got := len(h.Subtitles()); got != 0 {
		t.Errorf("expected empty entries, got %d", got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	h, m := newTestHistory(t, seedEntries()...)
	h.WriteText(0, "edited")
	m.Flush()

	snap := h.Snapshot()
	if snap.Filename != "clip.mp4" || len(snap.Entries) != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	other, m2 := newTestHistory(t)
	other.AppendItem(0, 1)
	m2.Flush()
	other.Restore(snap)
	m2.Flush()

	if got := other.Subtitles(); !reflect.DeepEqual(got, snap.Entries) {
		t.Errorf("restored %+v, want %+v", got, snap.Entries)
	}
	if other.CanUndo() {
		t.Error("restore should not be undoable")
	}
}

func TestValidateSpan(t *testing.T) {
	tests := []struct {
		name string
		span subtitle.Span
		want error
	}{
		{"valid", subtitle.Span{BeginTime: 1, EndTime: 2}, nil},
		{"minimum length", subtitle.Span{BeginTime: 1, EndTime: 1.1}, nil},
		{"too short", subtitle.Span{BeginTime: 1, EndTime: 1.05}, ErrSpanTooShort},
		{"reversed", subtitle.Span{BeginTime: 2, EndTime: 1}, ErrSpanTooShort},
		{"negative", subtitle.Span{BeginTime: -1, EndTime: 2}, ErrOutOfRange},
		{"past duration", subtitle.Span{BeginTime: 9, EndTime: 11}, ErrOutOfRange},
		{"unset", subtitle.Span{BeginTime: math.NaN(), EndTime: 2}, ErrUnsetTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpan(tt.span, 10)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestShiftSpan(t *testing.T) {
	tests := []struct {
		name  string
		span  subtitle.Span
		begin float64
		lock  bool
		want  subtitle.Span
	}{
		{"locked", subtitle.Span{BeginTime: 1, EndTime: 3}, 5, true, subtitle.Span{BeginTime: 5, EndTime: 7}},
		{"locked clamps end", subtitle.Span{BeginTime: 1, EndTime: 3}, 9, true, subtitle.Span{BeginTime: 8, EndTime: 10}},
		{"locked clamps start", subtitle.Span{BeginTime: 1, EndTime: 3}, -2, true, subtitle.Span{BeginTime: 0, EndTime: 2}},
		{"unlocked", subtitle.Span{BeginTime: 1, EndTime: 3}, 2, false, subtitle.Span{BeginTime: 2, EndTime: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShiftSpan(tt.span, tt.begin, 10, tt.lock); !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
