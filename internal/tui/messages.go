package tui

import (
	"context"

	"github.com/mgpai22/subtake/internal/workspace"
)

// the workspace state was committed
type stateMsg struct{}

// the open History notified its subscribers
type historyMsg struct{}

type savedMsg struct {
	err error
}

type closeMsg struct {
	ok bool
}

// Project is the part of workspace.Store the editor drives.
type Project interface {
	State() workspace.State
	Save(ctx context.Context) error
	RequestClose() <-chan bool
	ConfirmClose(ok bool)
}
