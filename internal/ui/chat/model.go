// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. All generation state lives
// in the session; the model holds presentation state only.
type Model struct {
	sess *session.Session
	cfg  *config.Config

	theme *styles.Theme
	keys  KeyMap

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	throttle *RenderThrottle
	renderer *glamour.TermRenderer

	// statusMsg is a transient line shown in the status bar until the next
	// key press.
	statusMsg string
}

// New creates a chat model bound to a session.
func New(sess *session.Session, cfg *config.Config, theme *styles.Theme) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	return Model{
		sess:     sess,
		cfg:      cfg,
		theme:    theme,
		keys:     DefaultKeyMap(),
		viewport: vp,
		input:    ti,
		spinner:  sp,
		throttle: NewRenderThrottle(DefaultMaxFPS),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case spinner.TickMsg:
		if m.sess.Processing() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	// Layout: header + viewport + input box + status bar.
	const (
		headerHeight    = 1
		inputAreaHeight = 3
		statusBarHeight = 1
	)

	viewportHeight := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = viewportHeight

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.renderer = nil
	if m.cfg.UI.Markdown {
		wrap := m.width - 4
		if wrap < 20 {
			wrap = 20
		}
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		); err == nil {
			m.renderer = r
		}
	}

	m.refreshViewport()

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sess.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.sess.Processing() {
			m.sess.Cancel()
			m.refreshViewport()
			m.statusMsg = "Generation cancelled"
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keys.Retry):
		return m.resendLast(false)

	case key.Matches(msg, m.keys.RetryMax):
		return m.resendLast(true)

	case key.Matches(msg, m.keys.Clear):
		m.sess.Clear()
		m.refreshViewport()
		m.statusMsg = "Conversation cleared"
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleStreamTick rebuilds the transcript view on a capped cadence while a
// generation is in flight.
func (m Model) handleStreamTick(StreamTickMsg) (tea.Model, tea.Cmd) {
	if !m.sess.Processing() {
		// Stream ended between ticks: force the final content to render.
		if m.throttle.Force() {
			m.refreshViewport()
			m.viewport.GotoBottom()
		}
		return m, nil
	}

	m.throttle.MarkDirty()
	if m.throttle.ShouldRender() {
		m.refreshViewport()
		m.viewport.GotoBottom()
	}
	return m, streamTickCmd()
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	m.cfg = msg.Config
	m.sess.SetConfig(SessionConfig(msg.Config))
	m.statusMsg = "Configuration reloaded"
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// SUBMIT / RESEND
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	err := m.sess.Submit(context.Background(), text, session.SubmitOptions{})
	if err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}

	m.input.Reset()
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, streamTickCmd())
}

// resendLast regenerates the most recent assistant answer. With boost set,
// the request carries the enlarged token limit for truncated answers.
func (m Model) resendLast(boost bool) (tea.Model, tea.Cmd) {
	target := ""
	for _, msg := range m.sess.Transcript() {
		if msg.Role == model.RoleAssistant {
			target = msg.ID
		}
	}
	if target == "" {
		m.statusMsg = "Nothing to regenerate"
		return m, nil
	}

	err := m.sess.Resend(context.Background(), target, session.ResendOptions{
		UseMaxTokens: boost,
	})
	if err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}

	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, streamTickCmd())
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// SessionConfig maps file configuration onto session generation parameters.
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		ModelID:         cfg.Generation.Model,
		Style:           cfg.Generation.Style,
		Temperature:     cfg.Generation.Temperature,
		OutputFormat:    cfg.Generation.OutputFormat,
		Language:        cfg.Generation.Language,
		MaxTokens:       cfg.Generation.MaxTokens,
		MaxTokensBoost:  cfg.Generation.MaxTokensBoost,
		SendChatHistory: cfg.Generation.SendChatHistory,
		SystemPrompt:    cfg.Generation.SystemPrompt,
	}
}
