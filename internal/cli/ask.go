// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask
// Short:   Ask a single question and print the answer
//
// Examples:
//   parley ask "what is a goroutine"
//   parley ask -m large "explain the scheduler"
//   parley ask -f main.go "review this file"
//   echo "question" | parley ask

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/parley/internal/attach"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/transport"
)

// askPollInterval is how often the transcript is sampled while streaming.
const askPollInterval = 50 * time.Millisecond

// HandleAsk handles the "ask" command: submit one prompt, stream the answer
// to stdout, exit.
func HandleAsk(args Args) error {
	question := strings.TrimSpace(strings.Join(args.Positional, " "))
	if question == "" && !IsTTY() {
		// No argument and stdin is piped: read the question from it.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return errors.New("no question given (pass text or pipe it on stdin)")
	}

	text, opts, err := withAttachments(question, args)
	if err != nil {
		return err
	}

	sess, cfg, err := buildSession(args)
	if err != nil {
		return err
	}

	useMarkdown := cfg.UI.Markdown && IsStdoutTTY()

	if err := sess.Submit(context.Background(), text, opts); err != nil {
		return err
	}

	answer, err := drainAnswer(sess, !useMarkdown)
	if err != nil {
		return err
	}

	// Markdown mode collects the whole answer and renders once; streaming
	// partial markdown produces broken formatting.
	if useMarkdown {
		fmt.Println(renderMarkdown(answer, cfg.UI.WordWrap))
	} else {
		fmt.Println()
	}
	return nil
}

// withAttachments resolves --file/--image into the submitted text and side
// payloads. File content is inlined into the prompt and the inlined form is
// what a resend resubmits, so the file survives a retry. Images travel as
// base64 payloads alongside the message.
func withAttachments(question string, args Args) (string, session.SubmitOptions, error) {
	var opts session.SubmitOptions
	text := question

	if args.File != "" {
		att, err := attach.File(args.File)
		if err != nil {
			return "", opts, err
		}
		opts.Files = []model.Attachment{att}
		text = attach.InlineFileText(question, att)
	}
	if args.Image != "" {
		att, err := attach.Image(args.Image)
		if err != nil {
			return "", opts, err
		}
		opts.Images = []model.Attachment{att}
	}
	return text, opts, nil
}

// drainAnswer waits for the in-flight generation to finish, optionally
// echoing deltas to stdout as they arrive. Returns the final answer text.
func drainAnswer(sess *session.Session, echo bool) (string, error) {
	printed := 0
	var last *model.Message

	for {
		if msg := lastAssistant(sess); msg != nil {
			last = msg
			if echo && len(msg.Content) > printed {
				fmt.Print(msg.Content[printed:])
				printed = len(msg.Content)
			}
		}
		if !sess.Processing() {
			break
		}
		time.Sleep(askPollInterval)
	}

	// Final sample: content may have landed between the last poll and the
	// idle transition.
	if msg := lastAssistant(sess); msg != nil {
		last = msg
		if echo && len(msg.Content) > printed {
			fmt.Print(msg.Content[printed:])
		}
	}

	if last == nil {
		return "", errors.New("no answer received")
	}
	if last.Error {
		return "", askError(sess.LastError())
	}
	return last.Content, nil
}

func lastAssistant(sess *session.Session) *model.Message {
	var found *model.Message
	for _, msg := range sess.Transcript() {
		if msg.Role == model.RoleAssistant {
			found = msg
		}
	}
	return found
}

// askError maps transport failures onto actionable one-shot errors.
func askError(err error) error {
	switch {
	case err == nil:
		return errors.New("generation failed")
	case errors.Is(err, transport.ErrAuthRequired):
		return errors.New("authentication required: set PARLEY_API_KEY or server.api_key in the config")
	case transport.IsConnectionDrop(err):
		return fmt.Errorf("connection to the backend was lost: %w", err)
	default:
		return err
	}
}

// renderMarkdown renders markdown for terminal output, falling back to the
// raw text when the renderer cannot be built.
func renderMarkdown(text string, wordWrap int) string {
	if wordWrap <= 0 {
		wordWrap = TerminalWidth()
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
