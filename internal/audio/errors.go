// SPDX-License-Identifier: MIT
package audio

import "errors"

// Startup failures surfaced to the caller. Once a stream runs, the render
// path never returns errors.
var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrStreamSetupFailed = errors.New("audio stream setup failed")
)
