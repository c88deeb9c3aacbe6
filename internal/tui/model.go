package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/logging"
	"github.com/mgpai22/subtake/internal/subtitle"
	"github.com/mgpai22/subtake/internal/workspace"
)

const (
	// seconds moved per [ or ] press
	nudgeStep = 0.1
	// length of a fresh preview range
	previewLength = 2.0
)

type mode int

const (
	browsing mode = iota
	editingText
	editingTime
	confirmingClose
)

type Options struct {
	Project    Project
	Debounce   time.Duration
	LockLength bool
	// edits are saved in the background; closing saves once more first
	AutoSave bool
	Logger   *logging.Logger
	// delivers messages from other goroutines; nil in tests
	Send func(tea.Msg)
}

type Model struct {
	project Project
	send    func(tea.Msg)
	logger  *logging.Logger

	history *history.History
	sub     history.Subscription

	table     table.Model
	input     textinput.Model
	spinner   spinner.Model
	mode      mode
	editIndex int

	debounce   *frame.Debounce
	lockLength bool
	autoSave   bool

	status   string
	err      error
	quitting bool
}

func New(opts Options) Model {
	send := opts.Send
	if send == nil {
		send = func(tea.Msg) {}
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 5},
			{Title: "Begin", Width: 12},
			{Title: "End", Width: 12},
			{Title: "Text", Width: 60},
		}),
		table.WithFocused(true),
		table.WithHeight(16),
	)

	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 512

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		project:    opts.Project,
		send:       send,
		logger:     logging.Or(opts.Logger).Named("tui"),
		table:      t,
		input:      in,
		spinner:    s,
		debounce:   frame.NewDebounce(opts.Debounce),
		lockLength: opts.LockLength,
		autoSave:   opts.AutoSave,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return stateMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m = m.attach()
		return m.refresh(), nil

	case historyMsg:
		if m.history != nil && m.history.ConsumeAutoSet() && m.mode != browsing {
			// an undo or redo replaced the row being edited
			m.mode = browsing
			m.input.Blur()
			m.status = "edit discarded"
		}
		return m.refresh(), nil

	case savedMsg:
		if msg.err != nil {
			m.logger.Errorw("save failed", "error", msg.err)
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = "saved"
		return m, nil

	case closeMsg:
		if msg.ok {
			m = m.detach()
			m.quitting = true
			return m, tea.Quit
		}
		m.mode = browsing
		m.status = ""
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(4, msg.Height-8))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case editingText, editingTime:
			return m.updateInput(msg)
		case confirmingClose:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.history

	switch msg.String() {
	case "q", "ctrl+c":
		return m.requestClose()
	}
	if h == nil {
		return m, nil
	}

	m.err = nil
	switch msg.String() {
	case "ctrl+z":
		h.Undo()
	case "ctrl+y":
		h.Redo()
	case "ctrl+s":
		return m, m.save()
	case "a":
		// held keys repeat fast; one append per debounce window
		if m.debounce.Allow() {
			h.AppendItem(math.NaN(), math.NaN())
			m = m.refresh()
			m.table.SetCursor(h.Len() - 1)
		}
	case "n":
		if h.Preview() != nil {
			h.CommitPreview()
			m.status = "range added"
		} else {
			h.WillAppendItem(m.nextBegin(), math.Min(m.nextBegin()+previewLength, h.Duration()))
		}
	case "esc":
		h.ClearWillAppendItem()
	case "enter", "e":
		if i := m.table.Cursor(); i >= 0 && i < h.Len() {
			m.mode = editingText
			m.editIndex = i
			m.input.SetValue(h.Subtitles()[i].Text)
			m.input.CursorEnd()
			m.input.Focus()
		}
	case "t":
		if i := m.table.Cursor(); i >= 0 && i < h.Len() {
			m.mode = editingTime
			m.editIndex = i
			m.input.SetValue(formatSpan(h.Subtitles()[i].Span()))
			m.input.CursorEnd()
			m.input.Focus()
		}
	case "[":
		m.nudge(-nudgeStep)
	case "]":
		m.nudge(nudgeStep)
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	return m.refresh(), nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = browsing
		m.input.Blur()
		return m, nil
	case "enter":
		if err := m.commitInput(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.mode = browsing
		m.input.Blur()
		return m.refresh(), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) commitInput() error {
	h := m.history
	if h == nil {
		return nil
	}

	switch m.mode {
	case editingText:
		h.WriteText(m.editIndex, subtitle.NormalizeText(m.input.Value()))
	case editingTime:
		span, err := parseSpan(m.input.Value())
		if err != nil {
			return err
		}
		if err := history.ValidateSpan(span, h.Duration()); err != nil {
			return err
		}
		h.WriteDuration(m.editIndex, span)
	}
	return nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.autoSave {
			return m, m.saveAndClose()
		}
		m.project.ConfirmClose(true)
	case "n", "N", "esc":
		m.project.ConfirmClose(false)
	}
	return m, nil
}

func (m Model) requestClose() (tea.Model, tea.Cmd) {
	if m.project == nil || m.project.State().Workspace == nil {
		m.quitting = true
		return m, tea.Quit
	}
	answer := m.project.RequestClose()
	m.mode = confirmingClose
	return m, func() tea.Msg { return closeMsg{ok: <-answer} }
}

// saveAndClose flushes the last edits before confirming the close; a failed
// save cancels it.
func (m Model) saveAndClose() tea.Cmd {
	project := m.project
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := project.Save(ctx); err != nil && !errors.Is(err, workspace.ErrNoProject) {
			project.ConfirmClose(false)
			return savedMsg{err: err}
		}
		project.ConfirmClose(true)
		return nil
	}
}

func (m Model) save() tea.Cmd {
	project := m.project
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return savedMsg{err: project.Save(ctx)}
	}
}

// end of the last timed entry, where a new range starts
func (m Model) nextBegin() float64 {
	begin := 0.0
	for _, e := range m.history.Subtitles() {
		if !math.IsNaN(e.EndTime) && e.EndTime > begin {
			begin = e.EndTime
		}
	}
	return math.Min(begin, m.history.Duration())
}

func (m Model) nudge(delta float64) {
	h := m.history
	i := m.table.Cursor()
	if i < 0 || i >= h.Len() {
		return
	}
	span := h.Subtitles()[i].Span()
	if math.IsNaN(span.BeginTime) {
		return
	}
	h.WriteDuration(i, history.ShiftSpan(span, span.BeginTime+delta, h.Duration(), m.lockLength))
}

// attach follows the workspace's History, resubscribing when it changes.
func (m Model) attach() Model {
	var h *history.History
	if m.project != nil {
		if ws := m.project.State().Workspace; ws != nil {
			h = ws.History
		}
	}
	if h == m.history {
		return m
	}
	m = m.detach()
	if h != nil {
		send := m.send
		m.sub = h.Subscribe(func(*history.History) { send(historyMsg{}) })
	}
	m.history = h
	return m
}

func (m Model) detach() Model {
	if m.history != nil {
		m.history.Unsubscribe(m.sub)
	}
	m.history = nil
	return m
}

func (m Model) refresh() Model {
	if m.history == nil {
		m.table.SetRows(nil)
		return m
	}
	m.table.SetRows(buildRows(m.history.Subtitles(), m.history.Preview()))
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	switch m.mode {
	case editingText, editingTime:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case confirmingClose:
		b.WriteString(PromptStyle.Render(m.closePrompt()))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(SuccessStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(DimTextStyle.Render(
		"a add  n range  e text  t time  [ ] nudge  ctrl+z undo  ctrl+y redo  ctrl+s save  q quit",
	))
	return b.String()
}

func (m Model) closePrompt() string {
	if m.autoSave {
		return "Changes are saved on close. Close the project? (y/n)"
	}
	return "Unsaved changes will be lost. Close the project? (y/n)"
}

func (m Model) header() string {
	if m.project == nil {
		return BulletStyle.Render("┌") + TitleStyle.Render("subtake")
	}
	ws := m.project.State().Workspace
	if ws == nil {
		return BulletStyle.Render("┌") + TitleStyle.Render("subtake") + DimTextStyle.Render("  no project")
	}

	parts := []string{humanize.Bytes(uint64(ws.Origin.Size))}
	if ws.Origin.Duration != nil {
		parts = append(parts, subtitle.FormatTime(*ws.Origin.Duration))
	}
	switch {
	case ws.Wave == nil:
		parts = append(parts, m.spinner.View()+"waveform")
	case ws.Wave.Failed || ws.Wave.Bitmap == nil:
		parts = append(parts, "no waveform")
	default:
		parts = append(parts, fmt.Sprintf("waveform %dpx", ws.Wave.Bitmap.Width))
	}
	if m.history != nil && m.history.CanUndo() {
		parts = append(parts, "edited")
	}

	return BulletStyle.Render("┌") + TitleStyle.Render(ws.Filename) +
		"  " + DimTextStyle.Render(strings.Join(parts, " · "))
}
