// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen TUI entry point.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/ui/chat"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// RunTUI starts the full-screen chat interface.
func RunTUI(args Args) error {
	sess, cfg, err := buildSession(args)
	if err != nil {
		return err
	}

	theme := styles.NewTheme(ColorProfile())
	program := tea.NewProgram(
		chat.New(sess, cfg, theme),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// The config file is watched while the TUI runs; edits land in the view
	// as ConfigReloadedMsg without a restart.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	configPath := args.ConfigPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	go func() {
		err := config.Watch(watchCtx, configPath, func(reloaded *config.Config) {
			if args.Model != "" {
				reloaded.Generation.Model = args.Model
			}
			if args.Plain {
				reloaded.UI.Markdown = false
			}
			program.Send(chat.ConfigReloadedMsg{Config: reloaded})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("cli: config watch disabled: %v", err)
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	return nil
}
