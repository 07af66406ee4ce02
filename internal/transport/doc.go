// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport owns the streaming connection to the chat backend.
//
// Generation uses a two-phase handshake: the caller first opens the
// server-push stream for a {app, chat} pair, waits for the connected event,
// and only then performs the side-channel Send that actually triggers
// generation. Opening the stream first guarantees no chunk can be missed
// between connection setup and the first byte.
//
// The wire protocol is translated into four event kinds (connected, chunk,
// done, error) delivered on a channel. Chunk events carry the cumulative
// decoded text, not a delta, so the caller's merge logic is idempotent and
// order-independent within a single connection.
//
// The package does not retry; retry policy belongs to the caller.
package transport
