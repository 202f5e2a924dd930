// SPDX-License-Identifier: MIT
package udp

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"polysynth/internal/analysis"
	"polysynth/internal/log"
)

// maxMagnitudes is the largest bin count the uint16 header can describe.
const maxMagnitudes = math.MaxUint16

// PacketSender is the datagram sink used by UDPPublisher.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically fetches FFT magnitudes, packs them into the
// spectrum packet format, and sends them with a PacketSender. It runs in a
// separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   PacketSender
	spectrum analysis.FFTResultProvider
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Pre-allocated buffers so a tick does not allocate.
	magBuffer []float64
	f32Buffer []float32
	packet    []byte
}

// NewUDPPublisher creates a publisher. If interval is not positive it
// defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, spectrum analysis.FFTResultProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: UDP sender cannot be nil")
	}
	if spectrum == nil {
		return nil, errors.New("UDPPublisher: spectrum provider cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := min(spectrum.GetFFTSize()/2+1, maxMagnitudes)
	log.Infof("UDPPublisher: Initializing (Interval: %s, FFT Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:    sender,
		spectrum:  spectrum,
		interval:  interval,
		magBuffer: make([]float64, spectrum.GetFFTSize()/2+1),
		f32Buffer: make([]float32, bins),
		packet:    make([]byte, 0, HeaderSize+4*bins),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Captured so the goroutine never reads p.ticker or p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Calling Stop on a stopped publisher is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

// Run publishes until ctx is cancelled.
func (p *UDPPublisher) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()
	return p.Stop()
}

// Sequence returns the sequence number of the last packet built.
func (p *UDPPublisher) Sequence() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequenceNum
}

func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.spectrum.GetMagnitudesInto(p.magBuffer); err != nil {
		log.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return
	}

	for i := range p.f32Buffer {
		p.f32Buffer[i] = float32(p.magBuffer[i])
	}

	p.mu.Lock()
	p.sequenceNum++
	seq := p.sequenceNum
	p.mu.Unlock()

	p.packet = AppendPacket(p.packet[:0], seq, time.Now().UnixNano(), p.f32Buffer)

	// Send failures are logged by the sender.
	if err := p.sender.Send(p.packet); err == nil {
		log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", seq, len(p.packet))
	}
}

// Close stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
