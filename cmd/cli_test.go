// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"polysynth/internal/config"
)

// inEmptyDir keeps a developer's ./config.yaml out of the test.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestParseArgsDefaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}
	want := config.NewConfig()
	if cfg.Audio != want.Audio || cfg.Synth != want.Synth || cfg.Control != want.Control {
		t.Errorf("config = %+v, want defaults %+v", cfg, want)
	}
	if cfg.Command != "" {
		t.Errorf("Command = %q, want empty", cfg.Command)
	}
}

func TestParseArgsFlags(t *testing.T) {
	inEmptyDir(t)

	cfg, err := ParseArgs([]string{
		"-d", "3", "--backend", "oto", "-n", "16", "-a", "0.5",
		"-c", "1", "--tui", "-w", "--websocket-addr", "0.0.0.0:9000", "-v",
	})
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"device", cfg.Audio.OutputDevice, 3},
		{"backend", cfg.Audio.Backend, config.BackendOto},
		{"voices", cfg.Synth.Voices, 16},
		{"amplitude", cfg.Synth.Amplitude, 0.5},
		{"channels", cfg.Audio.OutputChannels, 1},
		{"tui", cfg.Control.TUI, true},
		{"websocket", cfg.Control.WebSocketEnabled, true},
		{"websocket-addr", cfg.Control.WebSocketAddress, "0.0.0.0:9000"},
		{"log level", cfg.LogLevel, "debug"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	dir := inEmptyDir(t)
	path := filepath.Join(dir, "synth.yaml")
	data := []byte("audio:\n  sample_rate: 48000\nsynth:\n  voices: 4\n  amplitude: 0.25\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseArgs([]string{"--config", path, "--voices", "6"})
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}
	if cfg.Synth.Voices != 6 {
		t.Errorf("voices = %d, want flag value 6", cfg.Synth.Voices)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Synth.Amplitude != 0.25 {
		t.Errorf("file values lost: sample rate %v, amplitude %v", cfg.Audio.SampleRate, cfg.Synth.Amplitude)
	}
}

func TestParseArgsEnvBetweenFileAndFlags(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("ENV_SYNTH_VOICES", "12")

	cfg, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Synth.Voices != 12 {
		t.Errorf("voices = %d, want env value 12", cfg.Synth.Voices)
	}

	cfg, err = ParseArgs([]string{"-n", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Synth.Voices != 2 {
		t.Errorf("voices = %d, want flag value 2", cfg.Synth.Voices)
	}
}

func TestParseArgsList(t *testing.T) {
	inEmptyDir(t)

	cfg, err := ParseArgs([]string{"list", "-i"})
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}
	if cfg.Command != "list" || !cfg.Interactive {
		t.Errorf("Command = %q, Interactive = %v", cfg.Command, cfg.Interactive)
	}
}

func TestParseArgsInvalid(t *testing.T) {
	inEmptyDir(t)

	tests := []struct {
		name string
		args []string
	}{
		{"Zero voices", []string{"--voices", "0"}},
		{"Amplitude above one", []string{"-a", "1.5"}},
		{"Unknown backend", []string{"--backend", "jack"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArgs(tt.args); !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := ParseArgs([]string{"--no-such-flag"}); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, err := ParseArgs([]string{"extra"}); err == nil {
		t.Error("expected error for positional argument")
	}
}

func TestHelpRunsNothing(t *testing.T) {
	inEmptyDir(t)

	var cfg *config.Config
	root := newRootCommand(&cfg)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if cfg != nil {
		t.Error("help produced a config")
	}
}
