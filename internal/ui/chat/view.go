// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

// renderChat assembles the full chat view: header, transcript viewport,
// input box, and status bar.
func (m Model) renderChat() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	// Padding takes one column each side of the title.
	return m.theme.Header.Width(m.width).Render(
		headerTitle(m.sess.Store().Title(), m.width-2),
	)
}

// headerTitle fits the conversation title into the header, truncating by
// display width so double-width characters never overflow the line.
func headerTitle(title string, width int) string {
	if title == "" {
		title = "parley"
	}
	return util.TruncateWidth(title, width)
}

// renderMessages builds the transcript content for the viewport.
func (m Model) renderMessages() string {
	messages := m.sess.Transcript()
	if len(messages) == 0 {
		return m.theme.SystemText.Render("No messages yet. Type below to start.")
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" + msg.Content

	case model.RoleAssistant:
		return m.renderAssistant(msg)

	case model.RoleSystem:
		return m.theme.SystemText.Render(msg.Content)

	case model.RoleError:
		return m.theme.ErrorText.Render(msg.Content)

	default:
		return msg.Content
	}
}

func (m Model) renderAssistant(msg *model.Message) string {
	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())

	if msg.Loading && msg.Content == "" {
		return label + "\n" + m.spinner.View() + " thinking..."
	}

	body := msg.Content
	// Markdown rendering is applied to finished answers only; partial text
	// re-renders too often and glamour output jumps around mid-document.
	if !msg.Loading && m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}

	out := label + "\n" + body
	if note := m.finishNote(msg); note != "" {
		out += "\n" + note
	}
	return out
}

// finishNote returns the annotation line for non-graceful terminations.
func (m Model) finishNote(msg *model.Message) string {
	if msg.Loading {
		return ""
	}
	switch msg.FinishReason {
	case model.FinishCancelled:
		return m.theme.PartialNote.Render("[cancelled — partial answer kept]")
	case model.FinishLength:
		return m.theme.PartialNote.Render("[truncated — " +
			m.keys.RetryMax.Help().Key + " retries with a larger limit]")
	case model.FinishConnectionClosed:
		return m.theme.ErrorText.Render("[connection lost]")
	case model.FinishError:
		return m.theme.ErrorText.Render(m.errorNote())
	}
	return ""
}

func (m Model) errorNote() string {
	if err := m.sess.LastError(); err != nil {
		return "[error: " + err.Error() + "]"
	}
	return "[generation failed]"
}

func (m Model) renderInput() string {
	width := m.width - 4
	if width < 10 {
		width = 10
	}
	return m.theme.InputBox.Width(width).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	left := m.statusLeft()
	right := m.statusRight()

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(
		left + strings.Repeat(" ", gap) + right,
	)
}

func (m Model) statusLeft() string {
	if m.statusMsg != "" {
		return m.statusMsg
	}
	switch m.sess.State() {
	case session.StateConnecting:
		return m.spinner.View() + " connecting"
	case session.StateStreaming:
		return m.spinner.View() + " streaming  " +
			m.theme.Shortcut.Render(m.keys.Cancel.Help().Key) + " cancel"
	default:
		return m.theme.Shortcut.Render(m.keys.Submit.Help().Key) + " send  " +
			m.theme.Shortcut.Render(m.keys.Retry.Help().Key) + " retry  " +
			m.theme.Shortcut.Render(m.keys.Clear.Help().Key) + " clear  " +
			m.theme.Shortcut.Render(m.keys.Quit.Help().Key) + " quit"
	}
}

func (m Model) statusRight() string {
	store := m.sess.Store()
	tokens := store.EstimateTokens()
	if pct := store.ContextPercent(); pct > 0 {
		return fmt.Sprintf("~%d tok (%.0f%%)", tokens, pct)
	}
	return fmt.Sprintf("~%d tok", tokens)
}
