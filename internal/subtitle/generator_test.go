package subtitle

import (
	"strings"
	"testing"
)

func TestGenerateSplitsLongSegments(t *testing.T) {
	g := NewDefaultGenerator()
	long := strings.Repeat("word ", 40)

	entries := g.Generate([]Segment{
		{BeginTime: 0, EndTime: 2, Text: "short\nline"},
		{BeginTime: 2, EndTime: 20, Text: long},
		{BeginTime: 30, EndTime: 30, Text: "zero length"},
	})

	if entries[0].Text != "short line" {
		t.Errorf("expected flattened text, got %q", entries[0].Text)
	}
	if len(entries) < 3 {
		t.Fatalf("expected the long segment to be split, got %d entries", len(entries))
	}
	last := entries[len(entries)-1]
	if last.EndTime != 20 {
		t.Errorf("last split should end at 20, got %v", last.EndTime)
	}
	for _, e := range entries[1:] {
		if e.EndTime-e.BeginTime > g.MaxDuration+1e-9 {
			t.Errorf("split %v-%v exceeds max duration", e.BeginTime, e.EndTime)
		}
	}
}

func TestGenerateStretchesShortCues(t *testing.T) {
	entries := NewDefaultGenerator().Generate([]Segment{{BeginTime: 5, EndTime: 5.2, Text: "hi"}})
	if len(entries) != 1 || entries[0].EndTime != 6 {
		t.Errorf("expected cue stretched to 6s, got %+v", entries)
	}
}
