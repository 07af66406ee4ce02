// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the streaming chat session manager.
//
// A Session wraps the transcript store, the history assembler and the
// generation controller behind a small operation set (submit, cancel, edit,
// resend, delete, clear) so that every front end — the TUI chat view, the
// one-shot ask command and the REPL — shares one implementation.
//
// The generation controller is the state machine at the center: it enforces
// at most one generation in flight per session, wires stream events into
// transcript mutations, and converts every transport-level failure into
// message-level state. Nothing here is fatal to the process; each failure
// resolves to a terminal message state with a retry affordance.
package session
