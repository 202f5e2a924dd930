// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrAlreadyRecording = errors.New("already recording")

// Recorder writes the monitor tap to a PCM WAV file. The mono tap is
// duplicated across channels so the file matches what the device played.
// Recorder never runs on the audio thread.
type Recorder struct {
	sampleRate int
	channels   int
	bitDepth   int
	scale      float64

	mu          sync.Mutex
	isRecording atomic.Bool
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	written     int64
}

func NewRecorder(sampleRate float64, channels, bitDepth int) *Recorder {
	return &Recorder{
		sampleRate: int(sampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		scale:      float64(int64(1)<<(bitDepth-1) - 1),
	}
}

func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return ErrAlreadyRecording
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	r.outputFile = file

	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, r.channels, 1)

	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.channels,
			SampleRate:  r.sampleRate,
		},
		SourceBitDepth: r.bitDepth,
		Data:           make([]int, 0, r.sampleRate/10*r.channels),
	}
	r.written = 0

	r.isRecording.Store(true)

	return nil
}

// Write appends mono samples, clipped to [-1, 1]. It is a no-op when not
// recording.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRecording.Load() || len(samples) == 0 {
		return nil
	}

	n := len(samples) * r.channels
	if cap(r.sampleBuf.Data) < n {
		r.sampleBuf.Data = make([]int, n)
	}
	data := r.sampleBuf.Data[:n]
	for i, s := range samples {
		v := int(math.Round(math.Max(-1, math.Min(1, float64(s))) * r.scale))
		for c := range r.channels {
			data[i*r.channels+c] = v
		}
	}
	r.sampleBuf.Data = data

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	r.written += int64(len(samples))
	return nil
}

// Stop finalizes the WAV header and closes the file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRecording.Load() {
		return nil
	}

	r.isRecording.Store(false)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			r.outputFile.Close()
			r.outputFile = nil
			r.wavEncoder = nil
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}

// Recording reports whether a file is open.
func (r *Recorder) Recording() bool { return r.isRecording.Load() }

// Frames returns the number of frames written to the current or last file.
func (r *Recorder) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
