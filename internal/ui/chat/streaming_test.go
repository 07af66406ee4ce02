// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
	"time"
)

func TestThrottleCleanByDefault(t *testing.T) {
	rt := NewRenderThrottle(30)
	if rt.ShouldRender() {
		t.Error("fresh throttle must not render")
	}
}

func TestThrottleRendersWhenDirty(t *testing.T) {
	rt := NewRenderThrottle(30)
	rt.MarkDirty()
	if !rt.ShouldRender() {
		t.Error("dirty throttle with elapsed interval must render")
	}
	// The dirty flag was consumed.
	if rt.ShouldRender() {
		t.Error("second call must not render again")
	}
}

func TestThrottleEnforcesCadence(t *testing.T) {
	rt := NewRenderThrottle(30) // ~33ms between frames
	rt.MarkDirty()
	if !rt.ShouldRender() {
		t.Fatal("first render due")
	}

	// Immediately dirty again: within the frame interval, so suppressed.
	rt.MarkDirty()
	if rt.ShouldRender() {
		t.Error("render within min gap must be suppressed")
	}

	time.Sleep(40 * time.Millisecond)
	if !rt.ShouldRender() {
		t.Error("render after min gap must pass")
	}
}

func TestThrottleForce(t *testing.T) {
	rt := NewRenderThrottle(30)
	rt.MarkDirty()
	rt.ShouldRender()

	// Within the gap, but Force ignores cadence.
	rt.MarkDirty()
	if !rt.Force() {
		t.Error("force with pending content must report dirty")
	}
	if rt.Force() {
		t.Error("force with nothing pending must report clean")
	}
}

func TestThrottleReset(t *testing.T) {
	rt := NewRenderThrottle(30)
	rt.MarkDirty()
	rt.Reset()
	time.Sleep(40 * time.Millisecond)
	if rt.ShouldRender() {
		t.Error("reset must drop pending state")
	}
}

func TestThrottleFallbackRate(t *testing.T) {
	// Out-of-range rates fall back to the default cadence.
	for _, fps := range []int{0, -5, 1000} {
		rt := NewRenderThrottle(fps)
		want := time.Second / time.Duration(DefaultMaxFPS)
		if rt.minGap != want {
			t.Errorf("fps %d: minGap = %v, want %v", fps, rt.minGap, want)
		}
	}
}

func TestThrottleConcurrentMarkDirty(t *testing.T) {
	rt := NewRenderThrottle(30)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rt.MarkDirty()
				rt.ShouldRender()
			}
		}()
	}
	wg.Wait()

	rt.MarkDirty()
	rt.Force()
	if rt.Force() {
		t.Error("throttle left dirty after drain")
	}
}
