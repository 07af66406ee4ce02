// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the parley command line interface.
//
// Commands:
//
//	parley              Start the interactive TUI (default)
//	parley ask <text>   One-shot question, answer to stdout
//	parley repl         Line-oriented chat without the full TUI
//	parley version      Print version information
//	parley help         Print usage
//
// All commands share the session layer; the CLI only decides how input is
// read and how the transcript is printed.
package cli
