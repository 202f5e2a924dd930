// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"polysynth/cmd"
	"polysynth/internal/analysis"
	"polysynth/internal/audio"
	"polysynth/internal/config"
	"polysynth/internal/control"
	"polysynth/internal/log"
	"polysynth/internal/transport"
	"polysynth/internal/transport/udp"
	"polysynth/internal/tui"
	"polysynth/pkg/build"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

const (
	statusInterval    = 100 * time.Millisecond
	logStatusInterval = time.Second
	tuiLogFile        = "polysynth.log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

// run is the whole program. The flow is divided into three phases:
//
// 1. Startup Phase (Cold Path):
//   - Parse configuration, set up logging
//   - Initialize PortAudio when it is needed
//   - Execute one-off commands if requested
//   - Build the engine, output, recorder and analysers
//
// 2. Concurrent Phase (Hot Path):
//   - The device callback renders audio
//   - Control surfaces feed the queue; the monitor drains the tap
//
// 3. Shutdown Phase (Cold Path):
//   - A signal or quitting the TUI cancels every goroutine
//   - The stream closes, then the recording is finalized
func run(args []string) error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("build: %v, using development metadata", err)
	}

	cfg, err := cmd.ParseArgs(args)
	if errors.Is(err, cmd.ErrNoCommand) {
		return nil
	}
	if err != nil {
		return err
	}

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	// The TUI owns the terminal, so logs go to a file while it runs.
	if cfg.Control.TUI || cfg.Interactive {
		f, err := tea.LogToFile(tuiLogFile, "")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	log.Infof("%s", build.GetBuildFlags())

	// One thread for the audio callback, one for everything else.
	runtime.GOMAXPROCS(2)

	if cfg.Command == "list" || cfg.Audio.Backend == config.BackendPortAudio {
		if err := audio.Initialize(); err != nil {
			return fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
		}
		defer audio.Terminate()
	}

	if cfg.Command != "" {
		return executeCommand(cfg)
	}

	queue := control.NewQueue(cfg.Synth.QueueCapacity)
	engine, err := audio.NewEngine(cfg, queue)
	if err != nil {
		return err
	}
	output, err := audio.NewOutput(cfg, engine)
	if err != nil {
		return err
	}

	var recorder *audio.Recorder
	if cfg.Recording.Enabled {
		path := cfg.RecordingPath(time.Now())
		recorder = audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.OutputChannels, cfg.Recording.BitDepth)
		if err := recorder.Start(path); err != nil {
			return err
		}
		defer func() {
			if err := recorder.Stop(); err != nil {
				log.Errorf("Error stopping recording: %v", err)
				return
			}
			fmt.Printf("\nRecording saved to: %s\n", path)
		}()
		log.Infof("Recording to %s", path)
	}

	var spectrum *analysis.FFTProcessor
	var processors []audio.BlockProcessor
	if cfg.Transport.UDPEnabled || cfg.Control.WebSocketEnabled || cfg.Control.TUI {
		window, err := analysis.ParseWindowFunc(cfg.Transport.FFTWindow)
		if err != nil {
			log.Warnf("%v, using %v", err, window)
		}
		spectrum, err = analysis.NewFFTProcessor(cfg.Transport.FFTSize, cfg.Audio.SampleRate, window)
		if err != nil {
			return err
		}
		defer spectrum.Close()
		processors = append(processors, spectrum)
	}
	monitor := audio.NewMonitor(engine, recorder, processors...)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// CRITICAL: Start of real-time audio processing. From here on the
	// device calls Engine.Render on its own thread.
	if err := output.Start(); err != nil {
		return err
	}
	defer func() {
		if err := output.Close(); err != nil {
			log.Errorf("Error closing audio output: %v", err)
		}
	}()
	log.Infof("Audio: %s output started (%.0f Hz, %d ch, %d voices)",
		cfg.Audio.Backend, cfg.Audio.SampleRate, cfg.Audio.OutputChannels, cfg.Synth.Voices)

	g.Go(func() error { return monitor.Run(ctx) })

	var status transport.Transport
	interval := statusInterval
	if cfg.Control.WebSocketEnabled {
		ws := transport.NewWebSocketServer(cfg.Control.WebSocketAddress, queue)
		if err := ws.Start(); err != nil {
			return err
		}
		defer ws.Close()
		status = ws
	} else if cfg.Debug {
		status = transport.NewLoggingTransport()
		interval = logStatusInterval
	}
	if status != nil {
		var bands *analysis.BandEnergyProcessor
		if spectrum != nil {
			bands = analysis.NewBandEnergyProcessor(status, spectrum)
		}
		g.Go(func() error { return publishStatus(ctx, engine, bands, status, interval) })
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, spectrum)
		if err != nil {
			return err
		}
		g.Go(func() error { return publisher.Run(ctx) })
	}

	if cfg.Control.MIDIEnabled {
		g.Go(func() error {
			// A missing MIDI device leaves the other surfaces running.
			if err := control.ListenMIDI(ctx, cfg.Control.MIDIPort, queue); err != nil {
				log.Warnf("MIDI input disabled: %v", err)
			}
			return nil
		})
	}

	if cfg.Control.TUI {
		keyboard := tui.NewKeyboardModel(queue, engine, spectrum, cfg.Synth.Amplitude, cfg.Synth.Frequency)
		g.Go(func() error {
			defer stop() // quitting the keyboard ends the program
			return tui.StartKeyboardUI(ctx, keyboard)
		})
	} else {
		fmt.Printf("%s running. Press Ctrl+C to stop.\n", build.GetBuildFlags().Name)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	err = g.Wait()
	log.Infof("Shutting down")
	return err
}

// publishStatus sends the engine snapshot and band levels every interval.
func publishStatus(ctx context.Context, engine *audio.Engine, bands *analysis.BandEnergyProcessor, t transport.Transport, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.Send(engine.Snapshot()); err != nil {
				log.Warnf("Status: %v", err)
			}
			if bands != nil {
				bands.Process()
			}
		}
	}
}

// executeCommand handles one-off commands that don't require the audio
// engine to be running, such as listing available audio devices.
func executeCommand(cfg *config.Config) error {
	switch cfg.Command {
	case "list":
		if !cfg.Interactive {
			return audio.ListDevices(os.Stdout)
		}
		sel, ok, err := tui.StartDeviceListUI()
		if err != nil || !ok {
			return err
		}
		fmt.Printf("Selected %s\nRun with: --device %d --sample-rate %.0f\n", sel.DeviceName, sel.DeviceID, sel.SampleRate)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}
