// Package workspace holds the single open project: the video, its derived
// audio and waveform, the edit history and the close confirmation flow.
// State changes go through Reduce; Store runs the I/O around it.
package workspace

import (
	"github.com/google/uuid"

	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/waveform"
)

type Audio struct {
	URL  string
	Data []byte
}

type Origin struct {
	URL  string
	Data []byte
	Size int64
	// set once, when the duration is known
	Duration *float64
	Audio    *Audio
}

// Workspace is one opened video. ID changes on every open and tags the
// results of background work so stale ones can be dropped.
type Workspace struct {
	ID       uuid.UUID
	Path     string
	Dir      string
	Filename string
	Origin   Origin
	Wave     *waveform.Wave
	// nil until the duration is known
	History *history.History
}

// State is the root of the project state machine.
type State struct {
	Workspace *Workspace
	closing   func(bool)
}

// Closing reports whether a close request awaits confirmation.
func (s State) Closing() bool {
	return s.closing != nil
}

// Action is anything Reduce accepts.
type Action interface {
	action()
}

// OpenVideo opens a project. Only valid when nothing is open. URL is the blob
// URL already created for Data; it is revoked when the open is rejected.
type OpenVideo struct {
	ID   uuid.UUID
	Path string
	URL  string
	Data []byte
}

// SetOriginDuration records the video duration and creates the History.
// Ignored once a duration is set.
type SetOriginDuration struct {
	ID       uuid.UUID
	Duration float64
}

// SetOriginAudio attaches the extracted audio track as WAV bytes, served
// under URL.
type SetOriginAudio struct {
	ID   uuid.UUID
	URL  string
	Data []byte
}

// SetAudioWave attaches the rendered wave; a nil Wave means failed.
type SetAudioWave struct {
	ID   uuid.UUID
	Wave *waveform.Wave
}

// CloseProject asks to close the project. Resolve receives false at once
// when nothing is open or a close is already pending, otherwise the answer
// given by UnsafeClose.
type CloseProject struct {
	Resolve func(bool)
}

// UnsafeClose answers the pending close request.
type UnsafeClose struct {
	OK bool
}

func (OpenVideo) action()         {}
func (SetOriginDuration) action() {}
func (SetOriginAudio) action()    {}
func (SetAudioWave) action()      {}
func (CloseProject) action()      {}
func (UnsafeClose) action()       {}
