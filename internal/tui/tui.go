// Package tui is the terminal subtitle editor for an open workspace.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgpai22/subtake/internal/workspace"
)

// Run shows the editor for s until the project is closed or ctx ends.
func Run(ctx context.Context, s *workspace.Store, opts Options) error {
	var p *tea.Program
	send := func(msg tea.Msg) { p.Send(msg) }

	opts.Project = s
	opts.Send = send
	p = tea.NewProgram(New(opts), tea.WithContext(ctx), tea.WithAltScreen())

	unsubscribe := s.Subscribe(func(workspace.State) { send(stateMsg{}) })
	defer unsubscribe()

	_, err := p.Run()
	return err
}
