// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the wokuchat TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	workflow "github.com/wokushop/wokuchat/internal/chat"
	"github.com/wokushop/wokuchat/internal/config"
	"github.com/wokushop/wokuchat/internal/model"
	"github.com/wokushop/wokuchat/internal/store"
	"github.com/wokushop/wokuchat/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateWaiting                 // Send in flight
)

// Focus selects which pane receives key input.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State
	focus Focus

	// Styling
	theme *styles.Theme
	ui    config.UIConfig

	// Dimensions
	width  int
	height int
	ready  bool

	// Session state
	store    *store.Store
	wf       *workflow.Workflow
	snapshot model.State

	// Selected row in the sidebar (index into snapshot.Sessions)
	selected    int
	showSidebar bool

	// Streaming reply accumulated so far
	partial string

	// Event channels feeding Update
	stateCh chan model.State
	deltaCh chan string

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Markdown rendering (nil when disabled or init failed)
	renderer *glamour.TermRenderer

	modelName string
}

// New creates the chat view. The returned model owns the state and
// delta channels; wire them with StateNotifier and DeltaSink.
func New(theme *styles.Theme, cfg *config.Config, st *store.Store, wf *workflow.Workflow) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := &Model{
		state:       StateReady,
		focus:       FocusInput,
		theme:       theme,
		ui:          cfg.UI,
		store:       st,
		wf:          wf,
		snapshot:    st.Snapshot(),
		showSidebar: !cfg.UI.CompactMode,
		stateCh:     make(chan model.State, 1),
		deltaCh:     make(chan string, 64),
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		modelName:   cfg.Backend.Model,
	}

	if cfg.UI.Markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			m.renderer = renderer
		}
	}

	return m
}

// StateNotifier returns the callback to register with the store. It
// coalesces bursts: only the latest snapshot is kept when the UI is
// behind.
func (m *Model) StateNotifier() func(model.State) {
	ch := m.stateCh
	return func(s model.State) {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// DeltaSink returns the streaming delta callback for the completer.
func (m *Model) DeltaSink() func(string) {
	ch := m.deltaCh
	return func(delta string) {
		ch <- delta
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForState(m.stateCh),
		waitForDelta(m.deltaCh),
	)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		m.snapshot = msg.State
		m.clampSelected()
		// Once the final reply is in the store the accumulated partial
		// would render twice.
		if active, ok := m.snapshot.ActiveSession(); ok {
			if last, ok := active.LastMessage(); ok && last.Role == model.RoleAssistant {
				m.partial = ""
			}
		}
		m.updateViewport()
		return m, waitForState(m.stateCh)

	case StreamDeltaMsg:
		m.partial += msg.Delta
		m.updateViewport()
		return m, waitForDelta(m.deltaCh)

	case SendDoneMsg:
		m.state = StateReady
		m.partial = ""
		m.updateViewport()
		return m, nil

	case spinner.TickMsg:
		if m.state == StateWaiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+n":
		m.store.CreateSession()
		return m, nil

	case "ctrl+b":
		m.showSidebar = !m.showSidebar
		m.resize()
		return m, nil

	case "tab":
		if m.focus == FocusInput && m.showSidebar {
			m.focus = FocusSidebar
			m.input.Blur()
			m.syncSelectedToActive()
		} else {
			m.focus = FocusInput
			m.input.Focus()
		}
		return m, textinput.Blink
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submit()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "down", "j":
		if m.selected < len(m.snapshot.Sessions)-1 {
			m.selected++
		}
		return m, nil

	case "enter":
		if s, ok := m.selectedSession(); ok {
			m.store.SetActiveSession(s.ID)
		}
		m.focus = FocusInput
		m.input.Focus()
		return m, textinput.Blink

	case "d":
		if s, ok := m.selectedSession(); ok {
			m.store.DeleteSession(s.ID)
		}
		return m, nil

	case "esc":
		m.focus = FocusInput
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// submit hands the typed text to the send workflow on a background
// goroutine so the event loop stays responsive.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if text == "" || m.wf.Busy() {
		return m, nil
	}
	m.input.Reset()
	m.state = StateWaiting
	m.partial = ""

	send := func() tea.Msg {
		accepted := m.wf.Submit(context.Background(), text)
		return SendDoneMsg{Accepted: accepted}
	}
	return m, tea.Batch(send, m.spinner.Tick)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.resize()
	m.updateViewport()
	return m, nil
}

func (m *Model) resize() {
	w := m.width - 2
	if m.showSidebar {
		w -= sidebarWidth + 1
	}
	if w < 20 {
		w = 20
	}
	// Header, input border, input line, status bar.
	h := m.height - 5
	if h < 5 {
		h = 5
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = m.width - 6
}

func (m *Model) selectedSession() (model.ChatSession, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Sessions) {
		return model.ChatSession{}, false
	}
	return m.snapshot.Sessions[m.selected], true
}

func (m *Model) clampSelected() {
	if m.selected >= len(m.snapshot.Sessions) {
		m.selected = len(m.snapshot.Sessions) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) syncSelectedToActive() {
	for i, s := range m.snapshot.Sessions {
		if s.ID == m.snapshot.ActiveSessionID {
			m.selected = i
			return
		}
	}
	m.selected = 0
}

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
