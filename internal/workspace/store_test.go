package workspace

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/media"
	"github.com/mgpai22/subtake/internal/store"
	"github.com/mgpai22/subtake/internal/waveform"
)

type fakeSource struct {
	duration float64
	noAudio  bool
	wav      map[string][]byte
	// closed before ExtractWAV for that path returns
	gates map[string]chan struct{}
	err   error
}

func (f *fakeSource) Probe(ctx context.Context, path string) (*media.Info, error) {
	return &media.Info{Path: path, Duration: f.duration, HasAudio: !f.noAudio}, nil
}

func (f *fakeSource) ExtractWAV(ctx context.Context, path string) ([]byte, error) {
	if gate, ok := f.gates[filepath.Base(path)]; ok {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.wav[filepath.Base(path)], nil
}

func toneWAV(t *testing.T, seconds int) []byte {
	t.Helper()
	samples := make([]float32, 4000*seconds)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(float64(i)/8))
	}
	wav, err := media.EncodeWAV(&media.PCM{SampleRate: 4000, Channels: [][]float32{samples}}, media.Int16)
	if err != nil {
		t.Fatal(err)
	}
	return wav
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestStore(t *testing.T, src Source, projects *store.Store) *Store {
	t.Helper()
	pipeline, err := waveform.NewPipeline(waveform.NewExtractor(media.WAVDecoder{}, nil), frame.Inline{}, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(Options{
		Reducer:  NewReducer(nil, frame.Inline{}, nil),
		Source:   src,
		Pipeline: pipeline,
		Projects: projects,
	})
}

func TestOpenDerivesAudioAndWave(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "clip.mp4")
	src := &fakeSource{duration: 2, wav: map[string][]byte{"clip.mp4": toneWAV(t, 2)}}
	s := newTestStore(t, src, nil)

	var notified int
	var mu sync.Mutex
	unsubscribe := s.Subscribe(func(State) {
		mu.Lock()
		notified++
		mu.Unlock()
	})
	defer unsubscribe()

	if err := s.Open(context.Background(), path); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	s.Wait()

	ws := s.State().Workspace
	if ws == nil || ws.History == nil {
		t.Fatal("expected an open workspace with a History")
	}
	if *ws.Origin.Duration != 2 {
		t.Errorf("duration = %v", *ws.Origin.Duration)
	}
	if ws.Origin.Audio == nil || len(ws.Origin.Audio.Data) == 0 {
		t.Error("audio not attached")
	}
	if ws.Wave == nil || ws.Wave.Failed || ws.Wave.Bitmap.Width != 40 {
		t.Errorf("unexpected wave %+v", ws.Wave)
	}

	mu.Lock()
	defer mu.Unlock()
	if notified < 4 {
		t.Errorf("expected a notification per dispatch, got %d", notified)
	}
}

func TestOpenEmptyAudioFailsWave(t *testing.T) {
	path := writeVideo(t, t.TempDir(), "silent.mp4")
	src := &fakeSource{duration: 1, wav: map[string][]byte{"silent.mp4": {}}}
	s := newTestStore(t, src, nil)

	if err := s.Open(context.Background(), path); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	s.Wait()

	ws := s.State().Workspace
	if ws.Wave == nil || !ws.Wave.Failed {
		t.Errorf("expected failed wave, got %+v", ws.Wave)
	}
	if ws.History == nil {
		t.Error("a failed wave must not block editing")
	}
}

func TestOpenWithoutAudioTrack(t *testing.T) {
	path := writeVideo(t, t.TempDir(), "mute.mp4")
	s := newTestStore(t, &fakeSource{duration: 1, noAudio: true}, nil)

	if err := s.Open(context.Background(), path); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	s.Wait()
	if w := s.State().Workspace.Wave; w == nil || !w.Failed {
		t.Errorf("expected failed wave, got %+v", w)
	}
}

func TestExtractErrorFailsWave(t *testing.T) {
	path := writeVideo(t, t.TempDir(), "broken.mp4")
	s := newTestStore(t, &fakeSource{duration: 1, err: errors.New("boom")}, nil)

	if err := s.Open(context.Background(), path); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	s.Wait()
	if w := s.State().Workspace.Wave; w == nil || !w.Failed {
		t.Errorf("expected failed wave, got %+v", w)
	}
}

func TestOpenTwice(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{duration: 1, noAudio: true}
	s := newTestStore(t, src, nil)

	if err := s.Open(context.Background(), writeVideo(t, dir, "a.mp4")); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(context.Background(), writeVideo(t, dir, "b.mp4")); !errors.Is(err, ErrProjectOpen) {
		t.Errorf("expected ErrProjectOpen, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	s := newTestStore(t, &fakeSource{}, nil)
	if err := s.Open(context.Background(), filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Error("expected error for a missing file")
	}
	if s.State().Workspace != nil {
		t.Error("failed open left a workspace")
	}
}

func TestStaleWaveDiscardedAfterReopen(t *testing.T) {
	dir := t.TempDir()
	first := writeVideo(t, dir, "first.mp4")
	second := writeVideo(t, dir, "second.mp4")

	gate := make(chan struct{})
	src := &fakeSource{
		duration: 1,
		wav: map[string][]byte{
			"first.mp4":  toneWAV(t, 2),
			"second.mp4": toneWAV(t, 1),
		},
		gates: map[string]chan struct{}{"first.mp4": gate},
	}
	s := newTestStore(t, src, nil)

	if err := s.Open(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	answer := s.RequestClose()
	s.ConfirmClose(true)
	if !<-answer {
		t.Fatal("close was not confirmed")
	}

	if err := s.Open(context.Background(), second); err != nil {
		t.Fatal(err)
	}
	close(gate)
	s.Wait()

	ws := s.State().Workspace
	if filepath.Base(ws.Path) != "second.mp4" {
		t.Fatalf("unexpected workspace %s", ws.Path)
	}
	if ws.Wave == nil || ws.Wave.Bitmap == nil || ws.Wave.Bitmap.Width != 20 {
		t.Errorf("wave should come from the second video, got %+v", ws.Wave)
	}
}

func TestSaveAndRestoreEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "talk.mp4")
	projects, err := store.Open(filepath.Join(dir, "subtake.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer projects.Close()

	src := &fakeSource{duration: 30, noAudio: true}
	s := newTestStore(t, src, projects)

	if err := s.Save(context.Background()); !errors.Is(err, ErrNoProject) {
		t.Errorf("save without a project: %v", err)
	}

	if err := s.Open(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	h := s.State().Workspace.History
	h.AppendItem(1, 2)
	h.WriteText(0, "hello")
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	s.RequestClose()
	s.ConfirmClose(true)
	s.Wait()

	if err := s.Open(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	got := s.State().Workspace.History.Subtitles()
	if len(got) != 1 || got[0].Text != "hello" || got[0].EndTime != 2 {
		t.Errorf("restored %+v", got)
	}
	if s.State().Workspace.History.CanUndo() {
		t.Error("restored entries should not be undoable")
	}
}
