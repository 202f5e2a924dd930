// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the synthesizer. Values outside the limits are
// rejected by Validate.
const (
	// Audio output
	DefaultBackend         = BackendPortAudio
	DefaultDeviceID        = MinDeviceID // System default output device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false
	DefaultChannels        = 2 // Mono source, duplicated to stereo

	// Synth core
	DefaultVoices        = 8
	DefaultQueueCapacity = 256
	DefaultAmplitude     = 1.0
	DefaultFrequency     = 440.0

	// Recording
	DefaultRecord    = false
	DefaultBitDepth  = 16
	DefaultOutputDir = "."

	// Control surfaces
	DefaultWebSocketEnabled = false
	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultMIDIEnabled      = false
	DefaultTUI              = false

	// Spectrum publishing
	DefaultUDPEnabled       = false
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz
	DefaultFFTSize          = 2048
	DefaultFFTWindow        = "Hann"

	// Hardware and processing limits
	MinDeviceID       = -1     // -1 represents the system default device
	MinSampleRate     = 8000   // Hz
	MaxSampleRate     = 192000 // Hz
	MaxBufferFrames   = 8192
	MaxChannels       = 32
	MaxVoices         = 128
	MaxQueueCapacity  = 1 << 16
	MinFrequency      = 0.0
	MaxFrequency      = 20000.0
	MinFFTSize        = 64
	MaxFFTSize        = 1 << 15
	DefaultLogLevel   = "info"
	DefaultConfigFile = "config.yaml"
)

// Output backends.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// Config holds all runtime configuration. It is built from defaults, an
// optional YAML file, ENV_* overrides and finally command line flags.
type Config struct {
	Debug       bool            `yaml:"debug"`
	LogLevel    string          `yaml:"log_level"`
	Command     string          `yaml:"-"` // One-off command instead of running the engine (e.g. "list").
	Interactive bool            `yaml:"-"` // Browse devices in the TUI instead of printing them.
	Audio       AudioConfig     `yaml:"audio"`
	Synth       SynthConfig     `yaml:"synth"`
	Recording   RecordingConfig `yaml:"recording"`
	Control     ControlConfig   `yaml:"control"`
	Transport   TransportConfig `yaml:"transport"`
}

// AudioConfig describes the output stream handed to the device binding.
type AudioConfig struct {
	Backend         string  `yaml:"backend"`           // "portaudio" or "oto".
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Fixed for the lifetime of the stream.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low output latency.
	OutputChannels  int     `yaml:"output_channels"`   // The mono signal is copied to every channel.
}

// SynthConfig sizes the voice pool and the control queue.
type SynthConfig struct {
	Voices        int     `yaml:"voices"`         // Polyphony limit N.
	QueueCapacity int     `yaml:"queue_capacity"` // Rounded up to a power of two.
	Amplitude     float64 `yaml:"amplitude"`      // Initial master amplitude [0, 1].
	Frequency     float64 `yaml:"frequency"`      // Initial frequency knob position in Hz.
}

// RecordingConfig controls the WAV recorder fed by the monitor tap.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputDir  string `yaml:"output_dir"`
	OutputFile string `yaml:"output_file"` // Empty picks a timestamped name in OutputDir.
	BitDepth   int    `yaml:"bit_depth"`   // 16 or 24.
}

// ControlConfig enables the message producers.
type ControlConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`
	WebSocketAddress string `yaml:"websocket_address"`
	MIDIEnabled      bool   `yaml:"midi_enabled"`
	MIDIPort         string `yaml:"midi_port"` // Substring of the input port name; empty takes the first port.
	TUI              bool   `yaml:"tui"`       // Terminal keyboard.
}

// TransportConfig controls spectrum publishing over UDP.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	FFTSize          int           `yaml:"fft_size"`
	FFTWindow        string        `yaml:"fft_window"`
}

// NewConfig returns a Config populated with the defaults above.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			OutputChannels:  DefaultChannels,
		},
		Synth: SynthConfig{
			Voices:        DefaultVoices,
			QueueCapacity: DefaultQueueCapacity,
			Amplitude:     DefaultAmplitude,
			Frequency:     DefaultFrequency,
		},
		Recording: RecordingConfig{
			Enabled:   DefaultRecord,
			OutputDir: DefaultOutputDir,
			BitDepth:  DefaultBitDepth,
		},
		Control: ControlConfig{
			WebSocketEnabled: DefaultWebSocketEnabled,
			WebSocketAddress: DefaultWebSocketAddress,
			MIDIEnabled:      DefaultMIDIEnabled,
			TUI:              DefaultTUI,
		},
		Transport: TransportConfig{
			UDPEnabled:       DefaultUDPEnabled,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			FFTSize:          DefaultFFTSize,
			FFTWindow:        DefaultFFTWindow,
		},
	}
}
