package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/logging"
	"github.com/mgpai22/subtake/internal/media"
	"github.com/mgpai22/subtake/internal/store"
	"github.com/mgpai22/subtake/internal/waveform"
)

var (
	ErrProjectOpen = errors.New("a project is already open")
	ErrNoProject   = errors.New("no project is open")
	ErrBusy        = errors.New("another project is still loading")
)

// Source probes a video and extracts its audio track as WAV bytes.
type Source interface {
	Probe(ctx context.Context, path string) (*media.Info, error)
	ExtractWAV(ctx context.Context, path string) ([]byte, error)
}

// FFmpegSource is the Source backed by ffprobe and ffmpeg.
type FFmpegSource struct{}

func (FFmpegSource) Probe(ctx context.Context, path string) (*media.Info, error) {
	return media.Probe(ctx, path)
}

func (FFmpegSource) ExtractWAV(ctx context.Context, path string) ([]byte, error) {
	wav, _, err := media.ExtractWAV(ctx, path)
	return wav, err
}

type Options struct {
	Reducer  *Reducer
	Source   Source
	Pipeline *waveform.Pipeline
	// optional; enables Save and restores saved entries on Open
	Projects *store.Store
	Logger   *logging.Logger
}

// Store owns the State, serialises Dispatch and runs the load effects.
type Store struct {
	mu      sync.Mutex
	state   State
	reducer *Reducer

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int

	source   Source
	pipeline *waveform.Pipeline
	projects *store.Store
	logger   *logging.Logger

	opening frame.Latch
	wg      sync.WaitGroup
}

func NewStore(opts Options) *Store {
	reducer := opts.Reducer
	if reducer == nil {
		reducer = NewReducer(nil, nil, opts.Logger)
	}
	source := opts.Source
	if source == nil {
		source = FFmpegSource{}
	}
	return &Store{
		reducer:  reducer,
		subs:     make(map[int]func(State)),
		source:   source,
		pipeline: opts.Pipeline,
		projects: opts.Projects,
		logger:   logging.Or(opts.Logger).Named("store"),
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every committed state and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	next, effects := s.reducer.Reduce(s.state, a)
	s.state = next
	s.mu.Unlock()

	for _, fn := range effects {
		fn()
	}

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
}

// Open reads path, opens it as the project and resolves its duration. Audio
// extraction and the waveform continue in the background; see Wait.
func (s *Store) Open(ctx context.Context, path string) error {
	var opened *Workspace
	ran, err := s.opening.Do(ctx, func(ctx context.Context) error {
		ws, err := s.open(ctx, path)
		opened = ws
		return err
	})
	if !ran {
		return ErrBusy
	}
	if err != nil {
		return err
	}
	if opened == nil {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deriveAudio(ctx, opened.ID, path)
	}()
	return nil
}

func (s *Store) open(ctx context.Context, path string) (*Workspace, error) {
	if s.State().Workspace != nil {
		return nil, ErrProjectOpen
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read video: %w", err)
	}

	id := uuid.New()
	s.Dispatch(OpenVideo{
		ID:   id,
		Path: path,
		URL:  s.reducer.Blobs.Create(data, mimeFor(path)),
		Data: data,
	})
	ws := s.State().Workspace
	if ws == nil || ws.ID != id {
		return nil, ErrProjectOpen
	}
	s.logger.Infow("opened video", "path", path, "size", len(data))

	info, err := s.source.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}
	s.Dispatch(SetOriginDuration{ID: ws.ID, Duration: info.Duration})
	s.restore(ctx)

	if !info.HasAudio {
		s.logger.Warnw("video has no audio track", "path", path)
		s.Dispatch(SetAudioWave{ID: ws.ID, Wave: waveform.FailedWave})
		return nil, nil
	}
	return ws, nil
}

// restore seeds the new History from a saved project, if any.
func (s *Store) restore(ctx context.Context) {
	ws := s.State().Workspace
	if s.projects == nil || ws == nil || ws.History == nil {
		return
	}
	p, err := s.projects.Load(ctx, ws.Path)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warnw("could not load saved project", "path", ws.Path, "error", err)
		return
	}
	ws.History.Restore(history.Snapshot{Entries: p.Entries, Options: p.Options})
	if p.OperationMemory > 0 {
		ws.History.SetOperationMemorySize(p.OperationMemory)
	}
	s.logger.Infow("restored saved entries", "entries", len(p.Entries))
}

func (s *Store) deriveAudio(ctx context.Context, id uuid.UUID, path string) {
	wav, err := s.source.ExtractWAV(ctx, path)
	if err != nil {
		s.logger.Errorw("audio extraction failed", "path", path, "error", err)
		s.Dispatch(SetAudioWave{ID: id, Wave: waveform.FailedWave})
		return
	}
	s.Dispatch(SetOriginAudio{ID: id, URL: s.reducer.Blobs.Create(wav, "audio/wav"), Data: wav})

	if s.pipeline == nil {
		return
	}
	wave, err := s.pipeline.Build(ctx, wav)
	if err != nil {
		s.logger.Warnw("waveform cancelled", "error", err)
		return
	}
	s.Dispatch(SetAudioWave{ID: id, Wave: wave})
}

// Wait blocks until background work started by Open has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Save persists the open project's entries.
func (s *Store) Save(ctx context.Context) error {
	ws := s.State().Workspace
	if ws == nil || ws.History == nil {
		return ErrNoProject
	}
	if s.projects == nil {
		return errors.New("no project store configured")
	}

	snap := ws.History.Snapshot()
	return s.projects.Save(ctx, &store.Project{
		VideoPath:       ws.Path,
		Filename:        ws.Filename,
		Duration:        snap.Duration,
		OperationMemory: ws.History.OperationMemorySize(),
		Entries:         snap.Entries,
		Options:         snap.Options,
	})
}

// RequestClose dispatches CloseProject and returns the channel its answer
// arrives on.
func (s *Store) RequestClose() <-chan bool {
	answer := make(chan bool, 1)
	s.Dispatch(CloseProject{Resolve: func(ok bool) { answer <- ok }})
	return answer
}

// ConfirmClose answers a pending close request.
func (s *Store) ConfirmClose(ok bool) {
	s.Dispatch(UnsafeClose{OK: ok})
}
