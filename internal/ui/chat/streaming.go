// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// RenderThrottle caps how often the transcript viewport is rebuilt while a
// response is streaming. Rebuilding on every chunk causes flicker and high
// CPU; rebuilding on a fixed cadence keeps updates smooth.
//
// Thread-safety: chunk application happens on the stream goroutine while
// rendering happens in the Bubble Tea loop, so state is mutex-protected.
type RenderThrottle struct {
	mu         sync.Mutex
	dirty      bool
	lastRender time.Time
	minGap     time.Duration
}

// DefaultMaxFPS is the default render cadence for streaming updates.
const DefaultMaxFPS = 30

// NewRenderThrottle creates a throttle capped at the given frame rate.
// Rates outside (0, 60] fall back to DefaultMaxFPS.
func NewRenderThrottle(maxFPS int) *RenderThrottle {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = DefaultMaxFPS
	}
	return &RenderThrottle{
		minGap: time.Second / time.Duration(maxFPS),
	}
}

// MarkDirty records that transcript content changed since the last render.
func (rt *RenderThrottle) MarkDirty() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.dirty = true
}

// ShouldRender reports whether a rebuild is due, and if so consumes the
// dirty flag and starts a new frame interval.
func (rt *RenderThrottle) ShouldRender() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.dirty {
		return false
	}
	if time.Since(rt.lastRender) < rt.minGap {
		return false
	}
	rt.dirty = false
	rt.lastRender = time.Now()
	return true
}

// Force consumes the dirty flag regardless of cadence. Used when a stream
// finishes so the final content always renders.
func (rt *RenderThrottle) Force() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	was := rt.dirty
	rt.dirty = false
	rt.lastRender = time.Now()
	return was
}

// Reset clears pending state. Used when a stream is cancelled.
func (rt *RenderThrottle) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.dirty = false
	rt.lastRender = time.Now()
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next streaming re-render check.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
