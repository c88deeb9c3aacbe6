package history

import (
	"errors"
	"fmt"
	"math"

	"github.com/mgpai22/subtake/internal/subtitle"
)

// MinSpan is the shortest entry the editor accepts, in seconds.
const MinSpan = 0.1

var (
	ErrUnsetTime    = errors.New("time is not set")
	ErrOutOfRange   = errors.New("time out of range")
	ErrSpanTooShort = errors.New("span too short")
)

// ValidateSpan checks a range before it is handed to AppendItem or
// WriteDuration: both ends within [0, duration] and at least MinSpan long.
func ValidateSpan(span subtitle.Span, duration float64) error {
	for _, t := range []float64{span.BeginTime, span.EndTime} {
		if math.IsNaN(t) {
			return ErrUnsetTime
		}
		if t < 0 || t > duration {
			return fmt.Errorf("%w: %.3f not in [0, %.3f]", ErrOutOfRange, t, duration)
		}
	}
	if span.Length() < MinSpan {
		return fmt.Errorf("%w: %.3fs < %.1fs", ErrSpanTooShort, span.Length(), MinSpan)
	}
	return nil
}

// ShiftSpan moves span so it begins at begin. With lockLength the length is
// kept; otherwise only the begin changes. The result is clamped to
// [0, duration] without shrinking a locked span.
func ShiftSpan(span subtitle.Span, begin, duration float64, lockLength bool) subtitle.Span {
	if !lockLength {
		return subtitle.Span{BeginTime: math.Max(0, math.Min(begin, duration)), EndTime: span.EndTime}
	}
	length := span.Length()
	if math.IsNaN(length) {
		return subtitle.Span{BeginTime: begin, EndTime: span.EndTime}
	}
	begin = math.Max(0, begin)
	if begin+length > duration {
		begin = math.Max(0, duration-length)
	}
	return subtitle.Span{BeginTime: begin, EndTime: begin + length}
}

// Snapshot is the persisted form of a History: the committed entries and
// the option table. The operation log is not kept.
type Snapshot struct {
	Filename string            `json:"filename"`
	Duration float64           `json:"duration"`
	Entries  []subtitle.Entry  `json:"entries"`
	Options  []subtitle.Option `json:"options"`
}

func (h *History) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{
		Filename: h.filename,
		Duration: h.duration,
		Entries:  append([]subtitle.Entry(nil), h.items...),
		Options:  append([]subtitle.Option(nil), h.options...),
	}
}

// Restore replaces the entries and options with s and clears the log and
// the preview. The restore itself cannot be undone.
func (h *History) Restore(s Snapshot) {
	h.mu.Lock()
	h.items = append([]subtitle.Entry(nil), s.Entries...)
	h.options = append([]subtitle.Option(nil), s.Options...)
	h.ops = nil
	h.cursor = -1
	h.preview = nil
	h.mu.Unlock()

	h.fireUpdate()
}
