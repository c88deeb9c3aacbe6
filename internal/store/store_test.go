package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgpai22/subtake/internal/subtitle"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "subtake.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &Project{
		VideoPath:       "/videos/talk.mp4",
		Filename:        "talk.mp4",
		Duration:        92.5,
		OperationMemory: 32,
		Entries: []subtitle.Entry{
			{BeginTime: 1, EndTime: 2.5, Text: "first", Option: 0},
			{BeginTime: math.NaN(), EndTime: math.NaN(), Text: "", Option: 1},
		},
		Options: []subtitle.Option{{Name: "Default"}, {Name: "Top", Style: "an8"}},
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if p.ID == "" {
		t.Error("Save did not assign an id")
	}

	got, err := s.Load(ctx, "/videos/talk.mp4")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.ID != p.ID || got.Filename != "talk.mp4" || got.Duration != 92.5 || got.OperationMemory != 32 {
		t.Errorf("unexpected project %+v", got)
	}
	if len(got.Entries) != 2 || got.Entries[0].Text != "first" || got.Entries[0].EndTime != 2.5 {
		t.Fatalf("unexpected entries %+v", got.Entries)
	}
	if !math.IsNaN(got.Entries[1].BeginTime) || got.Entries[1].Option != 1 {
		t.Errorf("unset times should load as NaN: %+v", got.Entries[1])
	}
	if len(got.Options) != 2 || got.Options[1].Style != "an8" {
		t.Errorf("unexpected options %+v", got.Options)
	}
}

func TestSaveReplacesEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &Project{
		VideoPath: "/v.mp4",
		Filename:  "v.mp4",
		Entries:   []subtitle.Entry{{BeginTime: 0, EndTime: 1, Text: "a"}, {BeginTime: 1, EndTime: 2, Text: "b"}},
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatal(err)
	}
	firstID := p.ID

	p2 := &Project{VideoPath: "/v.mp4", Filename: "v.mp4", Entries: []subtitle.Entry{{BeginTime: 3, EndTime: 4, Text: "c"}}}
	if err := s.Save(ctx, p2); err != nil {
		t.Fatal(err)
	}
	if p2.ID != firstID {
		t.Errorf("resave changed id from %s to %s", firstID, p2.ID)
	}

	got, err := s.Load(ctx, "/v.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Text != "c" {
		t.Errorf("entries not replaced: %+v", got.Entries)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load(context.Background(), "/nope.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }

	for i, path := range []string{"/a.mp4", "/b.mp4"} {
		clock = clock.Add(time.Duration(i) * time.Minute)
		p := &Project{VideoPath: path, Filename: filepath.Base(path), Duration: 10}
		if path == "/b.mp4" {
			p.Entries = []subtitle.Entry{{BeginTime: 0, EndTime: 1}}
		}
		if err := s.Save(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 2 || list[0].VideoPath != "/b.mp4" || list[0].EntryCount != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := s.Delete(ctx, "/b.mp4"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := s.Delete(ctx, "/b.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Load(ctx, "/b.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted project still loads: %v", err)
	}
}
