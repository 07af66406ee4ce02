// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The view owns no generation logic: it renders snapshots of the session
// transcript and forwards key presses to the session facade. While a
// generation is in flight it re-renders on a capped tick so streaming looks
// smooth without redrawing on every chunk.
package chat
