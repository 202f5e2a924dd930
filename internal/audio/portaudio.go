// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"time"

	"polysynth/internal/config"

	"github.com/gordonklaus/portaudio"
)

type portAudioOutput struct {
	engine *Engine

	device          *portaudio.DeviceInfo
	latency         time.Duration
	sampleRate      float64
	framesPerBuffer int

	stream *portaudio.Stream
}

func newPortAudioOutput(cfg *config.Config, engine *Engine) (*portAudioOutput, error) {
	device, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}
	if device.MaxOutputChannels < engine.Channels() {
		return nil, fmt.Errorf("%w: device %s has %d output channels, need %d",
			ErrStreamSetupFailed, device.Name, device.MaxOutputChannels, engine.Channels())
	}

	o := &portAudioOutput{
		engine:          engine,
		device:          device,
		sampleRate:      engine.SampleRate(),
		framesPerBuffer: cfg.Audio.FramesPerBuffer,
	}
	if cfg.Audio.LowLatency {
		o.latency = device.DefaultLowOutputLatency
	} else {
		o.latency = device.DefaultHighOutputLatency
	}

	return o, nil
}

func (o *portAudioOutput) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: o.engine.Channels(),
			Device:   o.device,
			Latency:  o.latency,
		},
		FramesPerBuffer: o.framesPerBuffer,
		SampleRate:      o.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, o.processOutputStream)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamSetupFailed, err)
	}
	o.stream = stream

	if err := o.stream.Start(); err != nil {
		o.stream.Close()
		o.stream = nil
		return fmt.Errorf("%w: %w", ErrStreamSetupFailed, err)
	}

	return nil
}

func (o *portAudioOutput) Close() error {
	if o.stream == nil {
		return nil
	}

	if err := o.stream.Stop(); err != nil {
		return err
	}
	if err := o.stream.Close(); err != nil {
		return err
	}
	o.stream = nil

	return nil
}

// processOutputStream is the device callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (o *portAudioOutput) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	o.engine.Render(out)
}
