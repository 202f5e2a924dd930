// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "polysynth/internal/log"
	"polysynth/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from the YAML file at path. If path is empty
// it looks for config.yaml in the working directory and falls back to the
// built-in defaults. ENV_* overrides are applied after the file, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section against the limits in config.go.
func (c *Config) Validate() error {
	invalid := func(format string, v ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, v...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	// Audio
	switch c.Audio.Backend {
	case BackendPortAudio, BackendOto:
	default:
		return invalid("audio.backend %q must be %q or %q", c.Audio.Backend, BackendPortAudio, BackendOto)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		return invalid("audio.output_device %d must be >= %d", c.Audio.OutputDevice, MinDeviceID)
	}
	if math.IsNaN(c.Audio.SampleRate) || c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %.0f must be within [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return invalid("audio.frames_per_buffer %d must be within [1, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.OutputChannels < 1 || c.Audio.OutputChannels > MaxChannels {
		return invalid("audio.output_channels %d must be within [1, %d]", c.Audio.OutputChannels, MaxChannels)
	}

	// Synth
	if c.Synth.Voices < 1 || c.Synth.Voices > MaxVoices {
		return invalid("synth.voices %d must be within [1, %d]", c.Synth.Voices, MaxVoices)
	}
	if c.Synth.QueueCapacity < 1 || c.Synth.QueueCapacity > MaxQueueCapacity {
		return invalid("synth.queue_capacity %d must be within [1, %d]", c.Synth.QueueCapacity, MaxQueueCapacity)
	}
	if !(c.Synth.Amplitude >= 0 && c.Synth.Amplitude <= 1) {
		return invalid("synth.amplitude %f must be within [0, 1]", c.Synth.Amplitude)
	}
	if !(c.Synth.Frequency > MinFrequency && c.Synth.Frequency <= MaxFrequency) {
		return invalid("synth.frequency %f must be within (%.0f, %.0f]", c.Synth.Frequency, MinFrequency, MaxFrequency)
	}

	// Recording
	if c.Recording.Enabled {
		if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
			return invalid("recording.bit_depth %d must be 16 or 24", c.Recording.BitDepth)
		}
		if c.Recording.OutputFile == "" && c.Recording.OutputDir == "" {
			return invalid("recording.output_dir or recording.output_file must be set when recording")
		}
	}

	// Control
	if c.Control.WebSocketEnabled && !strings.Contains(c.Control.WebSocketAddress, ":") {
		return invalid("control.websocket_address %q appears invalid (missing port?)", c.Control.WebSocketAddress)
	}

	// Transport
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return invalid("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.UDPEnabled || c.Control.WebSocketEnabled {
		if !bitint.IsPowerOfTwo(c.Transport.FFTSize) || c.Transport.FFTSize < MinFFTSize || c.Transport.FFTSize > MaxFFTSize {
			return invalid("transport.fft_size %d must be a power of two within [%d, %d]", c.Transport.FFTSize, MinFFTSize, MaxFFTSize)
		}
	}

	return nil
}

// RecordingPath returns the WAV file to record into, generating a
// timestamped name when none is configured.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	name := "polysynth-" + now.UTC().Format("02-01-2006-150405") + ".wav"
	return filepath.Join(c.Recording.OutputDir, name)
}

// applyEnvOverrides applies ENV_* variables on top of file values. Unparsable
// values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	lookupBool := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
				applog.Infof("configuration: overriding %s from env: %v", key, b)
			} else {
				applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
			}
		}
	}
	lookupInt := func(key string, dst *int) {
		if val, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
				applog.Infof("configuration: overriding %s from env: %d", key, n)
			} else {
				applog.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
			}
		}
	}
	lookupString := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			applog.Infof("configuration: overriding %s from env: %s", key, val)
		}
	}

	// ENV_{...} general overrides.
	lookupBool("ENV_DEBUG", &c.Debug)
	lookupString("ENV_LOG_LEVEL", &c.LogLevel)

	// ENV_AUDIO_{...}
	lookupString("ENV_AUDIO_BACKEND", &c.Audio.Backend)
	lookupInt("ENV_AUDIO_OUTPUT_DEVICE", &c.Audio.OutputDevice)

	// ENV_SYNTH_{...}
	lookupInt("ENV_SYNTH_VOICES", &c.Synth.Voices)

	// ENV_UDP_{...}
	lookupBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	lookupString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Infof("configuration: overriding ENV_UDP_SEND_INTERVAL from env: %s", dur)
		} else {
			applog.Warnf("configuration: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}
