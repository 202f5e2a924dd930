// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"polysynth/internal/config"
)

// Output drives an Engine from a device callback.
type Output interface {
	// Start opens the device and begins calling Engine.Render.
	Start() error
	// Close stops playback and releases the device.
	Close() error
}

// NewOutput returns the backend selected by cfg.Audio.Backend. The
// PortAudio backend requires Initialize to have been called.
func NewOutput(cfg *config.Config, engine *Engine) (Output, error) {
	switch cfg.Audio.Backend {
	case config.BackendPortAudio:
		return newPortAudioOutput(cfg, engine)
	case config.BackendOto:
		return newOtoOutput(cfg, engine)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStreamSetupFailed, cfg.Audio.Backend)
	}
}
