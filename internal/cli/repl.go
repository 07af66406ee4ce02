// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line-oriented interactive chat.
//
// Command: repl (alias: chat)
// Short:   Chat without the full-screen TUI
//
// Interactive commands:
//   /help, /h        Show available commands
//   /clear, /c       Clear the conversation
//   /retry, /r       Regenerate the last answer
//   /retry-max       Regenerate with the enlarged token limit
//   /edit <text>     Replace the last question and regenerate
//   /delete, /d      Delete the last answer
//   /rate-up         Rate the last answer up
//   /rate-down       Rate the last answer down
//   /status, /s      Show session status
//   /quit, /q        Exit
//   Ctrl+C           Cancel current generation
//   Ctrl+D           Exit

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &replInput{
		line:        line,
		historyFile: filepath.Join(dir, "history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *replInput) read(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

func (in *replInput) close() {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL HANDLER
// =============================================================================

// HandleRepl runs the line-oriented chat loop.
func HandleRepl(args Args) error {
	sess, cfg, err := buildSession(args)
	if err != nil {
		return err
	}

	useMarkdown := cfg.UI.Markdown && IsStdoutTTY()

	fmt.Println()
	fmt.Println(welcomeStyle.Render("parley chat"))
	fmt.Printf("%s %s\n", infoStyle.Render("Session:"), sess.ID())
	fmt.Printf("%s %s\n", infoStyle.Render("Model:"), cfg.Generation.Model)
	if args.File != "" {
		fmt.Printf("%s %s\n", infoStyle.Render("File:"), args.File)
	}
	if args.Image != "" {
		fmt.Printf("%s %s\n", infoStyle.Render("Image:"), args.Image)
	}
	fmt.Println(infoStyle.Render("Type a message and press Enter. Commands: /help, /quit"))
	fmt.Println()

	// --file/--image accompany the first question of the session.
	pendingAttach := args.File != "" || args.Image != ""

	input := newReplInput()
	defer input.close()

	// Ctrl+C cancels the in-flight generation; liner handles it at the
	// prompt itself.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if sess.Processing() {
				sess.Cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		text, err := input.read(promptStyle.Render("parley> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D): exit gracefully.
			fmt.Println()
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			cont, err := handleReplCommand(text, sess, cfg.UI.WordWrap, useMarkdown)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !cont {
				fmt.Println(infoStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}
		if strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		var opts session.SubmitOptions
		if pendingAttach {
			text, opts, err = withAttachments(text, args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
				continue
			}
			pendingAttach = false
		}
		if err := replAsk(sess, text, opts, cfg.UI.WordWrap, useMarkdown); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// replAsk submits one prompt and prints the streamed answer.
func replAsk(sess *session.Session, text string, opts session.SubmitOptions, wrap int, useMarkdown bool) error {
	if err := sess.Submit(context.Background(), text, opts); err != nil {
		return err
	}
	return printAnswer(sess, wrap, useMarkdown)
}

// printAnswer drains the current generation to stdout and annotates
// non-graceful endings.
func printAnswer(sess *session.Session, wrap int, useMarkdown bool) error {
	fmt.Println()
	answer, err := drainAnswer(sess, !useMarkdown)
	if err != nil {
		fmt.Println()
		return err
	}
	if useMarkdown {
		fmt.Println(renderMarkdown(answer, wrap))
	} else {
		fmt.Println()
	}

	if msg := lastAssistant(sess); msg != nil {
		switch msg.FinishReason {
		case model.FinishCancelled:
			fmt.Println(warningStyle.Render("[cancelled — partial answer kept]"))
		case model.FinishLength:
			fmt.Println(warningStyle.Render("[truncated — /retry-max regenerates with a larger limit]"))
		}
	}
	fmt.Println()
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleReplCommand processes a slash command. Returns false to exit.
func handleReplCommand(cmd string, sess *session.Session, wrap int, useMarkdown bool) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))

	switch command {
	case "/help", "/h", "/?", "/":
		printReplHelp()
		return true, nil

	case "/clear", "/c":
		sess.Clear()
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/retry", "/r":
		return true, replResend(sess, session.ResendOptions{}, wrap, useMarkdown)

	case "/retry-max":
		return true, replResend(sess, session.ResendOptions{UseMaxTokens: true}, wrap, useMarkdown)

	case "/edit":
		if rest == "" {
			return true, fmt.Errorf("usage: /edit <replacement text>")
		}
		return true, replResend(sess, session.ResendOptions{Override: rest}, wrap, useMarkdown)

	case "/delete", "/d":
		last := lastAssistant(sess)
		if last == nil {
			return true, fmt.Errorf("nothing to delete")
		}
		if sess.Delete(last.ID) {
			fmt.Println(commandStyle.Render("[Last answer deleted]"))
		}
		return true, nil

	case "/rate-up", "/rate-down":
		last := lastAssistant(sess)
		if last == nil || last.Loading {
			return true, fmt.Errorf("nothing to rate yet")
		}
		if last.Error {
			return true, fmt.Errorf("failed answers cannot be rated")
		}
		rating, note := session.RatingUp, "[Rated up]"
		if command == "/rate-down" {
			rating, note = session.RatingDown, "[Rated down]"
		}
		sess.Rate(last.ID, rating)
		fmt.Println(commandStyle.Render(note))
		return true, nil

	case "/status", "/s":
		printReplStatus(sess)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// replResend regenerates the last answer in place.
func replResend(sess *session.Session, opts session.ResendOptions, wrap int, useMarkdown bool) error {
	last := lastAssistant(sess)
	if last == nil {
		return fmt.Errorf("nothing to regenerate yet")
	}
	if err := sess.Resend(context.Background(), last.ID, opts); err != nil {
		return err
	}
	return printAnswer(sess, wrap, useMarkdown)
}

func printReplHelp() {
	fmt.Println()
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear the conversation"},
		{"/retry, /r", "Regenerate the last answer"},
		{"/retry-max", "Regenerate with the enlarged token limit"},
		{"/edit <text>", "Replace the last question and regenerate"},
		{"/delete, /d", "Delete the last answer"},
		{"/rate-up", "Rate the last answer up"},
		{"/rate-down", "Rate the last answer down"},
		{"/status, /s", "Show session status"},
		{"/quit, /q", "Exit"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-14s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current generation, Ctrl+D exits"))
	fmt.Println()
}

func printReplStatus(sess *session.Session) {
	store := sess.Store()
	fmt.Println()
	fmt.Printf("  %s %s\n", infoStyle.Render("Session:"), sess.ID())
	fmt.Printf("  %s %s\n", infoStyle.Render("Title:"), store.Title())
	fmt.Printf("  %s %d\n", infoStyle.Render("Messages:"), store.Len())
	if pct := store.ContextPercent(); pct > 0 {
		fmt.Printf("  %s ~%d (%.0f%% of context)\n",
			infoStyle.Render("Tokens:"), store.EstimateTokens(), pct)
	} else {
		fmt.Printf("  %s ~%d\n", infoStyle.Render("Tokens:"), store.EstimateTokens())
	}
	fmt.Printf("  %s %s\n", infoStyle.Render("State:"), sess.State().String())
	fmt.Println()
}
