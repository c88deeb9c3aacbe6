package subtitle

import (
	"math"
	"strings"
)

// single subtitle record; times are seconds
type Entry struct {
	BeginTime float64 `json:"beginTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
	Option    int     `json:"option"`
}

// style preset an entry refers to through Entry.Option
type Option struct {
	Name  string `json:"name"`
	Style string `json:"style,omitempty"`
}

// begin/end pair; written and reverted as one unit
type Span struct {
	BeginTime float64 `json:"beginTime"`
	EndTime   float64 `json:"endTime"`
}

func (e Entry) Span() Span {
	return Span{BeginTime: e.BeginTime, EndTime: e.EndTime}
}

// length in seconds, NaN if either bound is unset
func (s Span) Length() float64 {
	return s.EndTime - s.BeginTime
}

func (s Span) Valid() bool {
	return !math.IsNaN(s.BeginTime) && !math.IsNaN(s.EndTime) &&
		s.EndTime > s.BeginTime
}

// equality that treats NaN == NaN, so unset spans compare as unchanged
func (s Span) Equal(o Span) bool {
	return sameFloat(s.BeginTime, o.BeginTime) && sameFloat(s.EndTime, o.EndTime)
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

// complete subtitle track as imported or exported
type Document struct {
	Entries  []Entry
	Options  []Option
	Language string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// flattens line breaks; entry text is always a single line
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	parts := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// represents transcribed audio segment
type Segment struct {
	BeginTime float64
	EndTime   float64
	Text      string
}
