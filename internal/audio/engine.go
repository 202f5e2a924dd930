// SPDX-License-Identifier: MIT
/*
Package audio binds the synth core to an output device:
- Engine drains the control queue and renders interleaved float32 frames
- PortAudio and oto backends call Engine.Render from their callbacks
- A monitor tap feeds WAV recording and spectrum analysis off the audio thread

Thread Safety:
- The Pool and master amplitude are owned by the render callback alone
- Control messages arrive through a wait-free queue
- Status for other goroutines is published through atomics only
- Buffers are pre-allocated; Render does not allocate
*/
package audio

import (
	"fmt"
	"math"
	"sync/atomic"

	"polysynth/internal/config"
	"polysynth/internal/control"
	"polysynth/internal/ringbuf"
	"polysynth/internal/synth"
)

// tapSeconds sizes the monitor tap.
const tapSeconds = 1

// Engine renders the voice pool into device buffers and applies queued
// control messages between callbacks.
type Engine struct {
	// Fixed at construction.
	sampleRate float64
	channels   int

	// Owned by the render callback.
	pool      *synth.Pool
	queue     *control.Queue
	amplitude float64

	// Mono copy of the output for the monitor goroutine.
	tap *ringbuf.Ring[float32]

	stats engineStats
}

// engineStats is written by the render callback and read by anyone.
type engineStats struct {
	callbacks     atomic.Uint64
	frames        atomic.Uint64
	messages      atomic.Uint64
	invalidParams atomic.Uint64
	amplitude     atomic.Uint64 // math.Float64bits
	activeVoices  atomic.Int64
	voiceHz       []atomic.Uint64
	voiceOn       []atomic.Bool
}

// NewEngine builds the voice pool described by cfg. queue is the consumer
// end the engine drains once per Render.
func NewEngine(cfg *config.Config, queue *control.Queue) (*Engine, error) {
	if cfg.Audio.OutputChannels < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrStreamSetupFailed, cfg.Audio.OutputChannels)
	}

	pool, err := synth.NewPool(cfg.Audio.SampleRate, cfg.Synth.Voices)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamSetupFailed, err)
	}

	e := &Engine{
		sampleRate: cfg.Audio.SampleRate,
		channels:   cfg.Audio.OutputChannels,
		pool:       pool,
		queue:      queue,
		tap:        ringbuf.New[float32](int(cfg.Audio.SampleRate) * tapSeconds),
		stats: engineStats{
			voiceHz: make([]atomic.Uint64, pool.Len()),
			voiceOn: make([]atomic.Bool, pool.Len()),
		},
	}

	// The frequency knob starts on voice 0, like an unplayed mono synth.
	e.apply(control.SetAmplitude(cfg.Synth.Amplitude))
	e.apply(control.SetFrequency(cfg.Synth.Frequency))
	e.publish(0)

	return e, nil
}

// Render is the buffer-filling callback. It applies every pending control
// message, then writes one sample per frame to all channels of out. A
// trailing partial frame is zeroed.
func (e *Engine) Render(out []float32) {
	e.Drain()

	ch := e.channels
	frames := len(out) / ch
	for f := range frames {
		s := e.NextSample()
		frame := out[f*ch : f*ch+ch]
		for i := range frame {
			frame[i] = s
		}
	}
	clear(out[frames*ch:])

	e.publish(frames)
}

// NextSample renders one mono sample scaled by the master amplitude.
// Non-finite values are replaced with silence.
func (e *Engine) NextSample() float32 {
	v := e.pool.NextSample() * e.amplitude
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := float32(v)
	e.tap.TryPush(s)
	return s
}

// Drain applies all pending control messages in arrival order and returns
// how many were applied. At most one queue's worth is taken per call so a
// busy producer cannot stall the callback. An empty queue is not an error.
func (e *Engine) Drain() int {
	n := 0
	for n < e.queue.Cap() {
		m, ok := e.queue.TryReceive()
		if !ok {
			break
		}
		e.apply(m)
		n++
	}
	e.stats.messages.Add(uint64(n))
	return n
}

// apply runs on the audio thread, so clamped values are only counted.
func (e *Engine) apply(m control.Message) {
	ok := true
	switch m.Kind {
	case control.KindSetAmplitude:
		e.amplitude, ok = clampAmplitude(m.Value)
	case control.KindSetFrequency:
		ok = e.pool.Retune(m.Value)
	case control.KindNoteTrigger:
		_, ok = e.pool.Trigger(m.Value)
	case control.KindNoteRelease:
		e.pool.NoteOff(m.Value)
	case control.KindAllNotesOff:
		e.pool.AllNotesOff()
	default:
		ok = false
	}
	if !ok {
		e.stats.invalidParams.Add(1)
	}
}

// clampAmplitude keeps the master gain within [0, 1] and reports false when
// v was out of range.
func clampAmplitude(v float64) (float64, bool) {
	switch {
	case v >= 0 && v <= 1:
		return v, true
	case v > 1:
		return 1, false
	default: // negative or NaN
		return 0, false
	}
}

func (e *Engine) publish(frames int) {
	e.stats.callbacks.Add(1)
	e.stats.frames.Add(uint64(frames))
	e.stats.amplitude.Store(math.Float64bits(e.amplitude))
	e.stats.activeVoices.Store(int64(e.pool.ActiveCount()))
	for i := range e.stats.voiceHz {
		v := e.pool.Voice(i)
		e.stats.voiceHz[i].Store(math.Float64bits(v.Frequency()))
		e.stats.voiceOn[i].Store(v.Active())
	}
}

// SampleRate returns the fixed stream rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Channels returns the output channel count.
func (e *Engine) Channels() int { return e.channels }

// Tap returns the monitor ring filled with every rendered mono sample.
func (e *Engine) Tap() *ringbuf.Ring[float32] { return e.tap }
