// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"

	"polysynth/internal/config"
	"polysynth/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrNoCommand is returned when the arguments only asked for help or the
// version, so there is nothing to run.
var ErrNoCommand = errors.New("no command to run")

// flagValues receives raw flag values. Only flags the user set are copied
// onto the loaded configuration.
type flagValues struct {
	configFile string

	backend         string
	device          int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool

	voices    int
	amplitude float64
	frequency float64

	record bool
	output string

	websocket     bool
	websocketAddr string
	midi          bool
	midiPort      string
	tui           bool

	udp       bool
	udpTarget string

	verbose bool
}

// ParseArgs builds the configuration from defaults, the config file,
// ENV_* overrides and finally the command line, in that order.
func ParseArgs(args []string) (*config.Config, error) {
	var cfg *config.Config
	rootCmd := newRootCommand(&cfg)
	if args == nil {
		args = []string{} // cobra reads os.Args for nil
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNoCommand
	}
	return cfg, nil
}

func newRootCommand(out **config.Config) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	var (
		f           flagValues
		interactive bool
	)

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(f.configFile)
		if err != nil {
			return err
		}
		applyFlags(cmd.Flags(), &f, cfg)
		cfg.Command = command
		cfg.Interactive = interactive
		if err := cfg.Validate(); err != nil {
			return err
		}
		*out = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "")
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "list")
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Browse devices and pick a sample rate in the terminal UI")
	rootCmd.AddCommand(listCmd)

	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&f.configFile, "config", "f", "",
		"Path to a YAML config file (default: ./config.yaml if present)")

	// Audio Device Configuration
	flags.StringVar(&f.backend, "backend", config.DefaultBackend,
		"Audio backend: portaudio or oto")
	flags.IntVarP(&f.device, "device", "d", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	flags.Float64VarP(&f.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&f.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.IntVarP(&f.channels, "channels", "c", config.DefaultChannels,
		"Number of output channels; the mono voice mix is copied to each")
	flags.BoolVarP(&f.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use the device's low output latency")

	// Synth Configuration
	flags.IntVarP(&f.voices, "voices", "n", config.DefaultVoices,
		"Maximum simultaneous voices")
	flags.Float64VarP(&f.amplitude, "amplitude", "a", config.DefaultAmplitude,
		"Initial master amplitude (0-1)")
	flags.Float64Var(&f.frequency, "frequency", config.DefaultFrequency,
		"Initial frequency knob position in Hz")

	// Recording Configuration
	flags.BoolVarP(&f.record, "record", "r", config.DefaultRecord,
		"Record the synth output to a WAV file")
	flags.StringVarP(&f.output, "output", "o", "",
		"Output file name. Default is polysynth-DD-MM-YYYY-HHMMSS.wav")

	// Control Configuration
	flags.BoolVarP(&f.websocket, "websocket", "w", config.DefaultWebSocketEnabled,
		"Accept control messages and publish status over WebSocket")
	flags.StringVar(&f.websocketAddr, "websocket-addr", config.DefaultWebSocketAddress,
		"WebSocket listen address")
	flags.BoolVarP(&f.midi, "midi", "m", config.DefaultMIDIEnabled,
		"Play notes from a MIDI input port")
	flags.StringVar(&f.midiPort, "midi-port", "",
		"MIDI input port name (substring); default is the first port")
	flags.BoolVarP(&f.tui, "tui", "t", config.DefaultTUI,
		"Play from the terminal keyboard")

	// Transport Configuration
	flags.BoolVar(&f.udp, "udp", config.DefaultUDPEnabled,
		"Publish the output spectrum over UDP")
	flags.StringVar(&f.udpTarget, "udp-target", config.DefaultUDPTargetAddress,
		"UDP spectrum target address")

	// Debug Configuration
	flags.BoolVarP(&f.verbose, "verbose", "v", false,
		"Show verbose output")

	return rootCmd
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(flags *pflag.FlagSet, f *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	set("backend", func() { cfg.Audio.Backend = f.backend })
	set("device", func() { cfg.Audio.OutputDevice = f.device })
	set("sample-rate", func() { cfg.Audio.SampleRate = f.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = f.framesPerBuffer })
	set("channels", func() { cfg.Audio.OutputChannels = f.channels })
	set("low-latency", func() { cfg.Audio.LowLatency = f.lowLatency })

	set("voices", func() { cfg.Synth.Voices = f.voices })
	set("amplitude", func() { cfg.Synth.Amplitude = f.amplitude })
	set("frequency", func() { cfg.Synth.Frequency = f.frequency })

	set("record", func() { cfg.Recording.Enabled = f.record })
	set("output", func() { cfg.Recording.OutputFile = f.output })

	set("websocket", func() { cfg.Control.WebSocketEnabled = f.websocket })
	set("websocket-addr", func() { cfg.Control.WebSocketAddress = f.websocketAddr })
	set("midi", func() { cfg.Control.MIDIEnabled = f.midi })
	set("midi-port", func() { cfg.Control.MIDIPort = f.midiPort })
	set("tui", func() { cfg.Control.TUI = f.tui })

	set("udp", func() { cfg.Transport.UDPEnabled = f.udp })
	set("udp-target", func() { cfg.Transport.UDPTargetAddress = f.udpTarget })

	set("verbose", func() {
		if f.verbose {
			cfg.Debug = true
			cfg.LogLevel = "debug"
		}
	})
}
