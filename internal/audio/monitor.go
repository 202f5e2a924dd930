// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"time"

	"polysynth/internal/log"
)

const (
	monitorInterval = 10 * time.Millisecond
	reportInterval  = time.Second
	monitorBlock    = 1024
)

// BlockProcessor consumes mono output blocks on the monitor goroutine.
type BlockProcessor interface {
	Process(block []float32)
}

// Monitor drains the engine's tap into a recorder and analysers, and logs
// counters the audio thread cannot log itself.
type Monitor struct {
	engine     *Engine
	recorder   *Recorder
	processors []BlockProcessor
	block      []float32

	lastReport   time.Time
	lastInvalid  uint64
	lastDropped  uint64
	lastTapDrops uint64
}

// NewMonitor returns a monitor for engine. recorder may be nil.
func NewMonitor(engine *Engine, recorder *Recorder, processors ...BlockProcessor) *Monitor {
	return &Monitor{
		engine:     engine,
		recorder:   recorder,
		processors: processors,
		block:      make([]float32, monitorBlock),
	}
}

// Run polls until ctx is cancelled, then drains what is left.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Poll()
			m.report()
			return nil
		case now := <-ticker.C:
			m.Poll()
			if now.Sub(m.lastReport) >= reportInterval {
				m.report()
				m.lastReport = now
			}
		}
	}
}

// Poll moves everything currently in the tap to the consumers and returns
// the number of samples moved.
func (m *Monitor) Poll() int {
	total := 0
	tap := m.engine.Tap()
	for {
		n := tap.PopInto(m.block)
		if n == 0 {
			return total
		}
		total += n
		block := m.block[:n]

		if m.recorder != nil && m.recorder.Recording() {
			if err := m.recorder.Write(block); err != nil {
				log.Errorf("Recording stopped: %v", err)
				if err := m.recorder.Stop(); err != nil {
					log.Errorf("Error closing recording: %v", err)
				}
			}
		}
		for _, p := range m.processors {
			p.Process(block)
		}
	}
}

func (m *Monitor) report() {
	s := m.engine.Snapshot()

	if d := s.InvalidParams - m.lastInvalid; d > 0 {
		log.Warnf("Clamped %d invalid control parameters", d)
	}
	if d := s.DroppedMessages - m.lastDropped; d > 0 {
		log.Warnf("Dropped %d control messages, queue full", d)
	}
	if d := s.DroppedSamples - m.lastTapDrops; d > 0 {
		log.Debugf("Monitor fell behind by %d samples", d)
	}

	m.lastInvalid = s.InvalidParams
	m.lastDropped = s.DroppedMessages
	m.lastTapDrops = s.DroppedSamples
}
