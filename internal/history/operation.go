package history

import (
	"github.com/mgpai22/subtake/internal/subtitle"
)

// Kind tags which edit an Operation records.
type Kind string

const (
	OpAppend      Kind = "append"
	OpSetText     Kind = "set_text"
	OpSetDuration Kind = "set_duration"
)

// Operation is one reversible edit. It carries its own before/after values,
// so the log can be inspected and serialised.
type Operation struct {
	Kind  Kind `json:"kind"`
	Index int  `json:"index"`

	// OpAppend
	Entry subtitle.Entry `json:"entry,omitzero"`

	// OpSetText
	TextBefore string `json:"textBefore,omitempty"`
	TextAfter  string `json:"textAfter,omitempty"`

	// OpSetDuration
	SpanBefore subtitle.Span `json:"spanBefore,omitzero"`
	SpanAfter  subtitle.Span `json:"spanAfter,omitzero"`
}

func appendOp(index int, e subtitle.Entry) Operation {
	return Operation{Kind: OpAppend, Index: index, Entry: e}
}

func setTextOp(index int, before, after string) Operation {
	return Operation{Kind: OpSetText, Index: index, TextBefore: before, TextAfter: after}
}

func setDurationOp(index int, before, after subtitle.Span) Operation {
	return Operation{Kind: OpSetDuration, Index: index, SpanBefore: before, SpanAfter: after}
}

// forward
func (op Operation) apply(items []subtitle.Entry) []subtitle.Entry {
	switch op.Kind {
	case OpAppend:
		if op.Index == len(items) {
			items = append(items, op.Entry)
		}
	case OpSetText:
		if op.Index < len(items) {
			items[op.Index].Text = op.TextAfter
		}
	case OpSetDuration:
		if op.Index < len(items) {
			items[op.Index].BeginTime = op.SpanAfter.BeginTime
			items[op.Index].EndTime = op.SpanAfter.EndTime
		}
	}
	return items
}

// backward
func (op Operation) revert(items []subtitle.Entry) []subtitle.Entry {
	switch op.Kind {
	case OpAppend:
		if op.Index == len(items)-1 {
			items = items[:op.Index]
		}
	case OpSetText:
		if op.Index < len(items) {
			items[op.Index].Text = op.TextBefore
		}
	case OpSetDuration:
		if op.Index < len(items) {
			items[op.Index].BeginTime = op.SpanBefore.BeginTime
			items[op.Index].EndTime = op.SpanBefore.EndTime
		}
	}
	return items
}
