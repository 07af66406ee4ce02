// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/parley/internal/config"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// StreamTickMsg drives the capped-rate re-render loop while a generation is
// in flight.
type StreamTickMsg struct {
	Time time.Time
}

// ConfigReloadedMsg carries a hot-reloaded configuration into the view. It is
// injected from the config watcher goroutine via Program.Send.
type ConfigReloadedMsg struct {
	Config *config.Config
}
