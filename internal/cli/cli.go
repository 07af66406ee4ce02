// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command dispatch and shared setup for the parley CLI.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/transport"
	"github.com/jeranaias/parley/internal/ui/chat"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ARGUMENTS
// =============================================================================

// Args holds the flags shared by all commands.
type Args struct {
	ConfigPath string
	SessionID  string
	Model      string
	Plain      bool

	// File is a text file attached to the question; its content is inlined
	// into the prompt. Image is attached as a base64 side payload.
	File  string
	Image string

	// Positional holds the non-flag arguments after the command word.
	Positional []string
}

// parseArgs splits flags from positional arguments. Flag formats follow the
// usual conventions: --flag value and --flag=value.
func parseArgs(raw []string) Args {
	var args Args
	i := 0
	for i < len(raw) {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") {
			args.Positional = append(args.Positional, arg)
			i++
			continue
		}

		name := strings.TrimLeft(arg, "-")
		value := ""
		hasValue := false
		if eq := strings.Index(name, "="); eq >= 0 {
			value = name[eq+1:]
			name = name[:eq]
			hasValue = true
		}
		takeValue := func() string {
			if hasValue {
				return value
			}
			if i+1 < len(raw) {
				i++
				return raw[i]
			}
			return ""
		}

		switch name {
		case "config", "c":
			args.ConfigPath = takeValue()
		case "session", "s":
			args.SessionID = takeValue()
		case "model", "m":
			args.Model = takeValue()
		case "file", "f":
			args.File = takeValue()
		case "image", "i":
			args.Image = takeValue()
		case "plain", "no-markdown":
			args.Plain = true
		default:
			fmt.Fprintf(os.Stderr, "Warning: unknown flag --%s ignored\n", name)
		}
		i++
	}
	return args
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run dispatches the command line and returns the process exit code.
func Run(argv []string) int {
	cmd := ""
	rest := argv
	if len(argv) > 0 && !strings.HasPrefix(argv[0], "-") {
		cmd = argv[0]
		rest = argv[1:]
	}

	switch cmd {
	case "", "tui":
		if err := RunTUI(parseArgs(rest)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0

	case "ask":
		if err := HandleAsk(parseArgs(rest)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0

	case "repl", "chat":
		if err := HandleRepl(parseArgs(rest)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0

	case "version", "--version", "-v":
		fmt.Printf("parley %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return 0

	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`parley - streaming chat client

Usage:
  parley [flags]             Start the interactive TUI
  parley ask [flags] <text>  Ask one question, print the answer
  parley repl [flags]        Line-oriented chat session
  parley version             Print version information
  parley help                Print this help

Flags:
  -c, --config PATH    Config file (default ~/.parley/config.toml)
  -s, --session ID     Reuse a session id
  -m, --model NAME     Override the configured model
  -f, --file PATH      Attach a text file to the question
  -i, --image PATH     Attach an image to the question
      --plain          Disable markdown rendering
`)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// buildSession loads configuration and wires the transport, feedback, and
// session layers. Every command goes through here.
func buildSession(args Args) (*session.Session, *config.Config, error) {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if args.Model != "" {
		cfg.Generation.Model = args.Model
	}
	if args.Plain {
		cfg.UI.Markdown = false
	}

	client := transport.NewClient(cfg.Server.BaseURL, cfg.Server.AppID, cfg.Server.APIKey)
	feedback := session.NewFeedbackClient(cfg.Server.BaseURL, cfg.Server.AppID, cfg.Server.APIKey)

	sess := session.New(
		args.SessionID,
		session.NewClientTransport(client),
		chat.SessionConfig(cfg),
		session.WithFeedback(feedback),
	)
	sess.Store().SetMaxTokens(contextWindowTokens)
	return sess, cfg, nil
}

// contextWindowTokens is the assumed backend context window, used only for
// the usage percentage in status output.
const contextWindowTokens = 8192
