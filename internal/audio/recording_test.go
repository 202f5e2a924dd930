// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"polysynth/internal/control"

	"github.com/go-audio/wav"
)

func decodeWAV(t *testing.T, filename string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatalf("%s is not a valid WAV file", filename)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	return d, buf.Data
}

func TestRecorderStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	r := NewRecorder(testSampleRate, 2, 16)

	if err := r.Start(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if !r.Recording() {
		t.Error("Recorder should be in recording state")
	}
	if err := r.Start(filename); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start error = %v, want ErrAlreadyRecording", err)
	}

	if err := r.Write([]float32{0, 0.5, -0.5, 2, -2}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if r.Recording() {
		t.Error("Recorder should not be in recording state after stopping")
	}
	if r.Frames() != 5 {
		t.Errorf("Frames = %d, want 5", r.Frames())
	}

	d, data := decodeWAV(t, filename)
	if d.NumChans != 2 || d.SampleRate != testSampleRate || d.BitDepth != 16 {
		t.Errorf("header = %d ch, %d Hz, %d bit", d.NumChans, d.SampleRate, d.BitDepth)
	}
	want := []int{0, 0, 16384, 16384, -16384, -16384, 32767, 32767, -32767, -32767}
	if len(data) != len(want) {
		t.Fatalf("got %d samples, want %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, data[i], want[i])
		}
	}
}

func TestRecorderIdle(t *testing.T) {
	r := NewRecorder(testSampleRate, 1, 16)
	if err := r.Write([]float32{1, 2, 3}); err != nil {
		t.Errorf("Write while idle error: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop while idle error: %v", err)
	}
}

func TestRecorderBadPath(t *testing.T) {
	r := NewRecorder(testSampleRate, 1, 16)
	if err := r.Start(filepath.Join(t.TempDir(), "missing", "out.wav")); err == nil {
		t.Error("expected error creating file in missing directory")
	}
	if r.Recording() {
		t.Error("Recorder should not be recording after failed start")
	}
}

type countingProcessor struct {
	samples int
}

func (c *countingProcessor) Process(block []float32) { c.samples += len(block) }

func TestMonitorPoll(t *testing.T) {
	e, q := newTestEngine(t, 4, 2)
	filename := filepath.Join(t.TempDir(), "monitor.wav")
	r := NewRecorder(e.SampleRate(), e.Channels(), 24)
	if err := r.Start(filename); err != nil {
		t.Fatal(err)
	}
	counter := &countingProcessor{}
	m := NewMonitor(e, r, counter)

	q.Send(control.NoteTrigger(440))
	out := make([]float32, testFrameSize*2)
	for range 10 {
		e.Render(out)
	}

	if n := m.Poll(); n != 10*testFrameSize {
		t.Errorf("Poll() = %d, want %d", n, 10*testFrameSize)
	}
	if counter.samples != 10*testFrameSize {
		t.Errorf("processor saw %d samples, want %d", counter.samples, 10*testFrameSize)
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	_, data := decodeWAV(t, filename)
	if len(data) != 10*testFrameSize*2 {
		t.Errorf("recorded %d samples, want %d", len(data), 10*testFrameSize*2)
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	e, q := newTestEngine(t, 4, 1)
	counter := &countingProcessor{}
	m := NewMonitor(e, nil, counter)

	q.Send(control.NoteTrigger(440))
	e.Render(make([]float32, testFrameSize))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); err != nil {
		t.Errorf("Run error: %v", err)
	}
	if counter.samples != testFrameSize {
		t.Errorf("final drain saw %d samples, want %d", counter.samples, testFrameSize)
	}
}
