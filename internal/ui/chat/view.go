// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	workflow "github.com/wokushop/wokuchat/internal/chat"
	"github.com/wokushop/wokuchat/internal/model"
	"github.com/wokushop/wokuchat/internal/util"
)

// sidebarWidth is the fixed width of the session list pane.
const sidebarWidth = 24

// welcomeSuggestions seed an empty conversation with things to try.
var welcomeSuggestions = []string{
	"Explain what a goroutine is",
	"Draft a polite follow-up email",
	"Summarize the trade-offs of SQLite vs. flat files",
}

// View renders the chat view.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.theme.Header.Render("wokuchat") +
		m.theme.MessageMeta.Render("  "+m.modelName)

	body := m.viewport.View()
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}

	input := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		input,
		m.renderStatusBar(),
	)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Sessions"))
	b.WriteString("\n")

	if len(m.snapshot.Sessions) == 0 {
		b.WriteString(m.theme.SessionItem.Render("(none)"))
	}

	for i, s := range m.snapshot.Sessions {
		title := util.TruncateWidth(s.Title, sidebarWidth-4)
		marker := "  "
		style := m.theme.SessionItem
		if s.ID == m.snapshot.ActiveSessionID {
			marker = "* "
			style = m.theme.SessionActive
		}
		if m.focus == FocusSidebar && i == m.selected {
			marker = "> "
			style = m.theme.SessionSelected
		}
		b.WriteString(style.Render(marker + title))
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height).
		Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	active, ok := m.snapshot.ActiveSession()
	if !ok || (len(active.Messages) == 0 && m.partial == "") {
		return m.renderWelcome()
	}

	var b strings.Builder
	for _, msg := range active.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.state == StateWaiting {
		b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		if m.partial != "" {
			b.WriteString(m.partial)
			b.WriteString("\n")
		} else {
			b.WriteString(m.spinner.View())
			b.WriteString(m.theme.ThinkingText.Render(" thinking..."))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m *Model) renderMessage(msg model.Message) string {
	var b strings.Builder

	switch msg.Role {
	case model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render("You"))
	default:
		b.WriteString(m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
	}
	b.WriteString("\n")

	content := msg.Content
	if strings.HasPrefix(content, workflow.FailurePrefix) {
		b.WriteString(m.theme.FailureText.Render(content))
		b.WriteString("\n")
		return b.String()
	}

	if msg.Role == model.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	b.WriteString(strings.TrimRight(content, "\n"))
	b.WriteString("\n")

	if meta := m.renderMeta(msg); meta != "" {
		b.WriteString(m.theme.MessageMeta.Render(meta))
		b.WriteString("\n")
	}
	return b.String()
}

// renderMeta builds the latency and token usage line under an
// assistant reply, honoring the UI config toggles.
func (m *Model) renderMeta(msg model.Message) string {
	if msg.Role != model.RoleAssistant {
		return ""
	}
	var parts []string
	if m.ui.ShowResponseTime && msg.ResponseTime != nil {
		parts = append(parts, fmt.Sprintf("%.1fs", float64(*msg.ResponseTime)/1000))
	}
	if m.ui.ShowTokens && msg.Tokens != nil {
		parts = append(parts, fmt.Sprintf("%d tokens", msg.Tokens.Total))
	}
	return strings.Join(parts, " | ")
}

func (m *Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.theme.WelcomeTitle.Render("Welcome to wokuchat"))
	b.WriteString("\n\n")
	b.WriteString("Type a message below to start, or try:\n\n")
	for _, s := range welcomeSuggestions {
		b.WriteString(m.theme.WelcomeSuggestion.Render("- " + s))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	shortcuts := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+n", "new"},
		{"tab", "sessions"},
		{"ctrl+b", "sidebar"},
		{"ctrl+c", "quit"},
	}

	var parts []string
	for _, s := range shortcuts {
		parts = append(parts,
			m.theme.ShortcutKey.Render(s.key)+
				m.theme.ShortcutDesc.Render(" "+s.desc))
	}

	status := strings.Join(parts, "  ")
	if m.state == StateWaiting {
		status = m.spinner.View() + " " + status
	}
	return m.theme.StatusBar.Render(status)
}
