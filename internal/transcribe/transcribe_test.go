package transcribe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/mgpai22/subtake/internal/audio"
	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/subtitle"
)

// answers with one segment per chunk path
type stubTranscriber struct {
	fail  string
	calls atomic.Int32
}

func (s *stubTranscriber) Transcribe(ctx context.Context, path string) (*Result, error) {
	s.calls.Add(1)
	if path == s.fail {
		return nil, errors.New("boom")
	}
	return &Result{
		Segments: []subtitle.Segment{{BeginTime: 1, EndTime: 2, Text: path}},
		Language: "en",
	}, nil
}

func TestTranscribeChunksMergesInOrder(t *testing.T) {
	chunks := []audio.Chunk{
		{Path: "a", Index: 0, BeginTime: 0, EndTime: 60},
		{Path: "b", Index: 1, BeginTime: 60, EndTime: 120},
		{Path: "c", Index: 2, BeginTime: 120, EndTime: 150},
	}

	res, err := TranscribeChunks(context.Background(), &stubTranscriber{}, chunks, 2)
	if err != nil {
		t.Fatalf("TranscribeChunks: %v", err)
	}
	if res.Duration != 150 {
		t.Errorf("duration = %v, want 150", res.Duration)
	}
	if res.Language != "en" {
		t.Errorf("language = %q, want en", res.Language)
	}

	want := []subtitle.Segment{
		{BeginTime: 1, EndTime: 2, Text: "a"},
		{BeginTime: 61, EndTime: 62, Text: "b"},
		{BeginTime: 121, EndTime: 122, Text: "c"},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("got %d segments, want %d", len(res.Segments), len(want))
	}
	for i := range want {
		if res.Segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, res.Segments[i], want[i])
		}
	}
}

func TestTranscribeChunksFails(t *testing.T) {
	chunks := []audio.Chunk{
		{Path: "a", Index: 0, BeginTime: 0, EndTime: 60},
		{Path: "b", Index: 1, BeginTime: 60, EndTime: 120},
	}

	_, err := TranscribeChunks(context.Background(), &stubTranscriber{fail: "b"}, chunks, 1)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTranscribeChunksEmpty(t *testing.T) {
	s := &stubTranscriber{}
	res, err := TranscribeChunks(context.Background(), s, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 0 || s.calls.Load() != 0 {
		t.Errorf("unexpected work for no chunks: %+v", res)
	}
}

func TestDraftIsUndoable(t *testing.T) {
	h := history.New(history.Config{
		Filename:  "clip.mp4",
		Duration:  60,
		Scheduler: frame.Inline{},
	})

	n := Draft(h, []subtitle.Segment{
		{BeginTime: 0, EndTime: 2, Text: "first line"},
		{BeginTime: 2, EndTime: 4, Text: "  "},
		{BeginTime: 4, EndTime: 6, Text: "second\nline"},
	}, nil)
	if n != 2 {
		t.Fatalf("Draft added %d entries, want 2", n)
	}

	got := h.Subtitles()
	if len(got) != 2 || got[0].Text != "first line" || got[1].Text != "second line" {
		t.Fatalf("entries = %+v", got)
	}

	for h.CanUndo() {
		h.Undo()
	}
	if h.Len() != 0 {
		t.Errorf("after undo len = %d, want 0", h.Len())
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	if _, err := Factory(context.Background(), Provider("whisper-local"), "key", Options{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
