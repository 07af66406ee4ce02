// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts.
//
// A Transcript is the ordered message list for one chat session. It is the
// only mutable shared state in the session core: the generation controller
// mutates it while streaming, and the UI layers render from snapshots of it.
// The package performs no I/O and never blocks.
//
// Messages carry declarative state (loading, error, finish reason) so that
// callers never have to observe transport-level failures directly.
package model
