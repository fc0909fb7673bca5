// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	workflow "github.com/wokushop/wokuchat/internal/chat"
	"github.com/wokushop/wokuchat/internal/config"
	"github.com/wokushop/wokuchat/internal/model"
	"github.com/wokushop/wokuchat/internal/store"
	"github.com/wokushop/wokuchat/internal/ui/styles"
	"github.com/wokushop/wokuchat/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)

	errorStyle = lipgloss.NewStyle().Foreground(styles.Rose)

	metaStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	activeStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
)

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain-terminal chat loop with readline-style history.
// USABILITY: Supports arrow keys for history navigation and line editing.
type REPL struct {
	line        *liner.State
	historyFile string

	store *store.Store
	wf    *workflow.Workflow
	cfg   *config.Config

	// Streaming deltas print directly; set by DeltaSink.
	streamed bool

	renderer *glamour.TermRenderer
	out      *os.File
}

// New creates a REPL over the given store and workflow.
func New(cfg *config.Config, st *store.Store, wf *workflow.Workflow) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &REPL{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
		store:       st,
		wf:          wf,
		cfg:         cfg,
		out:         os.Stdout,
	}

	if cfg.UI.Markdown {
		renderer, rerr := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(TerminalWidth(80)),
		)
		if rerr == nil {
			r.renderer = renderer
		}
	}

	r.loadHistory()
	return r
}

// DeltaSink returns the streaming callback: deltas print as they
// arrive. The REPL remembers that output happened so the final reply
// is not printed twice.
func (r *REPL) DeltaSink() func(string) {
	return func(delta string) {
		r.streamed = true
		fmt.Fprint(r.out, delta)
	}
}

// Close saves history and releases the terminal.
func (r *REPL) Close() {
	r.saveHistory()
	r.line.Close()
}

// Run is the main REPL loop. It returns when the user quits or input
// reaches EOF.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "wokuchat - type /help for commands, /quit to exit")

	for {
		input, err := r.line.Prompt(promptStyle.Render("wokuchat> "))
		if err != nil {
			// Ctrl+C or EOF: exit gracefully.
			fmt.Fprintln(r.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !r.handleCommand(input) {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.send(ctx, input)
	}
}

// =============================================================================
// SENDING
// =============================================================================

func (r *REPL) send(ctx context.Context, input string) {
	r.streamed = false
	sessionID := r.store.ActiveSessionID()

	if !r.wf.Submit(ctx, input) {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error]")+" could not send message")
		return
	}
	if sessionID == "" {
		// Submit created the first session.
		sessionID = r.store.ActiveSessionID()
	}

	session, ok := r.store.Session(sessionID)
	if !ok || len(session.Messages) == 0 {
		return
	}
	reply := session.Messages[len(session.Messages)-1]
	if reply.Role != model.RoleAssistant {
		return
	}

	if r.streamed {
		// Deltas already on screen; close the line.
		fmt.Fprintln(r.out)
	} else {
		r.printReply(reply.Content)
	}
	if meta := formatMeta(reply, r.cfg.UI); meta != "" {
		fmt.Fprintln(r.out, metaStyle.Render(meta))
	}
}

func (r *REPL) printReply(content string) {
	if strings.HasPrefix(content, workflow.FailurePrefix) {
		fmt.Fprintln(r.out, errorStyle.Render(content))
		return
	}
	if r.renderer != nil {
		if rendered, err := r.renderer.Render(content); err == nil {
			fmt.Fprint(r.out, rendered)
			return
		}
	}
	fmt.Fprintln(r.out, highlightFencedBlocks(content))
}

// formatMeta builds the latency/token line under a reply.
func formatMeta(msg model.Message, ui config.UIConfig) string {
	var parts []string
	if ui.ShowResponseTime && msg.ResponseTime != nil {
		parts = append(parts, fmt.Sprintf("%.1fs", float64(*msg.ResponseTime)/1000))
	}
	if ui.ShowTokens && msg.Tokens != nil {
		parts = append(parts, fmt.Sprintf("%d tokens", msg.Tokens.Total))
	}
	return strings.Join(parts, " | ")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand executes a slash command. Returns false when the REPL
// should exit.
func (r *REPL) handleCommand(input string) bool {
	cmd, arg := splitCommand(input)

	switch cmd {
	case "/help":
		r.printHelp()

	case "/new":
		r.store.CreateSession()
		fmt.Fprintln(r.out, "Started a new chat.")

	case "/list":
		r.printSessions()

	case "/switch":
		if s, ok := r.sessionByArg(arg); ok {
			r.store.SetActiveSession(s.ID)
			fmt.Fprintf(r.out, "Switched to %q.\n", s.Title)
		}

	case "/delete":
		if s, ok := r.sessionByArg(arg); ok {
			r.store.DeleteSession(s.ID)
			fmt.Fprintf(r.out, "Deleted %q.\n", s.Title)
		}

	case "/title":
		if arg == "" {
			fmt.Fprintln(os.Stderr, errorStyle.Render("[Error]")+" usage: /title <new title>")
			break
		}
		if id := r.store.ActiveSessionID(); id != "" {
			r.store.UpdateSessionTitle(id, arg)
			fmt.Fprintln(r.out, "Title updated.")
		}

	case "/quit", "/exit":
		return false

	default:
		fmt.Fprintf(os.Stderr, "%s unknown command %s\n", errorStyle.Render("[Error]"), cmd)
	}
	return true
}

// splitCommand separates "/switch 2" into "/switch" and "2".
func splitCommand(input string) (string, string) {
	parts := strings.SplitN(input, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return cmd, arg
}

// sessionByArg resolves a 1-based list index from /list output.
func (r *REPL) sessionByArg(arg string) (model.ChatSession, bool) {
	sessions := r.store.Snapshot().Sessions
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error]")+" no sessions")
		return model.ChatSession{}, false
	}
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(sessions) {
		fmt.Fprintf(os.Stderr, "%s expected a session number 1-%d\n",
			errorStyle.Render("[Error]"), len(sessions))
		return model.ChatSession{}, false
	}
	return sessions[idx-1], true
}

func (r *REPL) printSessions() {
	snapshot := r.store.Snapshot()
	if len(snapshot.Sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions yet.")
		return
	}
	for i, s := range snapshot.Sessions {
		title := util.TruncateWidth(s.Title, 60)
		line := fmt.Sprintf("%2d. %s (%d messages)", i+1, title, len(s.Messages))
		if s.ID == snapshot.ActiveSessionID {
			line = activeStyle.Render(line + "  [active]")
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *REPL) printHelp() {
	help := []struct{ cmd, desc string }{
		{"/new", "start a new chat session"},
		{"/list", "list sessions"},
		{"/switch <n>", "switch to session n"},
		{"/delete <n>", "delete session n"},
		{"/title <text>", "rename the active session"},
		{"/help", "show this help"},
		{"/quit", "exit"},
	}
	for _, h := range help {
		fmt.Fprintf(r.out, "  %-14s %s\n", h.cmd, h.desc)
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func (r *REPL) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

// saveHistory persists command history with secure permissions.
func (r *REPL) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}
