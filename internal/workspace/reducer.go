package workspace

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mgpai22/subtake/internal/blob"
	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/logging"
	"github.com/mgpai22/subtake/internal/waveform"
)

// Reducer computes the next State for an action. Reduce touches nothing but
// the state; anything else, such as close resolvers and blob revokes, comes
// back as callbacks to run after the state is committed.
type Reducer struct {
	Blobs               *blob.Registry
	Scheduler           frame.Scheduler
	OperationMemorySize int
	Logger              *logging.Logger
}

func NewReducer(blobs *blob.Registry, sched frame.Scheduler, logger *logging.Logger) *Reducer {
	if blobs == nil {
		blobs = blob.NewRegistry()
	}
	return &Reducer{
		Blobs:     blobs,
		Scheduler: sched,
		Logger:    logging.Or(logger).Named("workspace"),
	}
}

func (r *Reducer) Reduce(s State, a Action) (State, []func()) {
	log := logging.Or(r.Logger)

	switch a := a.(type) {
	case OpenVideo:
		if s.Workspace != nil {
			log.Warnw("open ignored, a project is already open", "path", a.Path)
			return s, r.revoke(a.URL)
		}
		s.Workspace = &Workspace{
			ID:       a.ID,
			Path:     a.Path,
			Dir:      filepath.Dir(a.Path),
			Filename: filepath.Base(a.Path),
			Origin: Origin{
				URL:  a.URL,
				Data: a.Data,
				Size: int64(len(a.Data)),
			},
		}
		return s, nil

	case SetOriginDuration:
		ws, ok := r.current(s, a.ID)
		if !ok || ws.Origin.Duration != nil {
			return s, nil
		}
		d := a.Duration
		ws.Origin.Duration = &d
		ws.History = history.New(history.Config{
			Filename:            ws.Filename,
			Duration:            d,
			OperationMemorySize: r.OperationMemorySize,
			Scheduler:           r.Scheduler,
			Logger:              r.Logger,
		})
		s.Workspace = ws
		return s, nil

	case SetOriginAudio:
		ws, ok := r.current(s, a.ID)
		if !ok {
			return s, r.revoke(a.URL)
		}
		var effects []func()
		if ws.Origin.Audio != nil {
			effects = r.revoke(ws.Origin.Audio.URL)
		}
		ws.Origin.Audio = &Audio{
			URL:  a.URL,
			Data: a.Data,
		}
		s.Workspace = ws
		return s, effects

	case SetAudioWave:
		ws, ok := r.current(s, a.ID)
		if !ok || ws.Wave != nil {
			return s, nil
		}
		ws.Wave = a.Wave
		if ws.Wave == nil {
			ws.Wave = waveform.FailedWave
		}
		s.Workspace = ws
		return s, nil

	case CloseProject:
		if s.Workspace == nil || s.closing != nil {
			return s, []func(){resolver(a.Resolve, false)}
		}
		s.closing = a.Resolve
		if s.closing == nil {
			s.closing = func(bool) {}
		}
		return s, nil

	case UnsafeClose:
		if s.closing == nil {
			return s, nil
		}
		effects := []func(){resolver(s.closing, a.OK)}
		if !a.OK {
			s.closing = nil
			return s, effects
		}
		return State{}, append(effects, r.teardown(s.Workspace)...)
	}

	log.Warnw("unknown action", "action", a)
	return s, nil
}

// current returns a copy of the open workspace when id matches it
func (r *Reducer) current(s State, id uuid.UUID) (*Workspace, bool) {
	if s.Workspace == nil {
		return nil, false
	}
	if s.Workspace.ID != id {
		logging.Or(r.Logger).Debugw("dropping stale result", "workspace", s.Workspace.ID, "result", id)
		return nil, false
	}
	ws := *s.Workspace
	return &ws, true
}

// teardown releases every URL the workspace handed out.
func (r *Reducer) teardown(ws *Workspace) []func() {
	if ws == nil {
		return nil
	}
	urls := []string{ws.Origin.URL}
	if ws.Origin.Audio != nil {
		urls = append(urls, ws.Origin.Audio.URL)
	}
	return r.revoke(urls...)
}

func (r *Reducer) revoke(urls ...string) []func() {
	var effects []func()
	for _, u := range urls {
		if u == "" {
			continue
		}
		effects = append(effects, func() { r.Blobs.Revoke(u) })
	}
	return effects
}

func resolver(fn func(bool), v bool) func() {
	return func() {
		if fn != nil {
			fn(v)
		}
	}
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
}

func mimeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
