// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"polysynth/internal/log"
	"polysynth/internal/transport"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name    string
	LowHz   float64
	HighHz  float64
	Energy  float64 // Holds the calculated energy for the current frame
	numBins int     // Internal counter for normalization
}

// DefaultBands splits the audible range for a level meter. The top band
// ends at the Nyquist frequency for sampleRate.
func DefaultBands(sampleRate float64) []*FrequencyBand {
	return []*FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// BandEnergyProcessor calculates energy across frequency bands from FFT data.
type BandEnergyProcessor struct {
	transport   transport.Transport
	bands       []*FrequencyBand
	fftProvider FFTResultProvider
	magnitudes  []float64
}

// NewBandEnergyProcessor creates a processor over fftProvider. transport may
// be nil when levels are only read through Compute.
func NewBandEnergyProcessor(transport transport.Transport, fftProvider FFTResultProvider) *BandEnergyProcessor {
	if fftProvider == nil {
		panic("BandEnergyProcessor requires a non-nil FFTResultProvider")
	}
	bands := DefaultBands(fftProvider.GetSampleRate())
	log.Debugf("Analysis: Initializing BandEnergyProcessor with %d bands.", len(bands))
	return &BandEnergyProcessor{
		transport:   transport,
		bands:       bands,
		fftProvider: fftProvider,
		magnitudes:  make([]float64, fftProvider.GetFFTSize()/2+1),
	}
}

// Bands returns the configured bands with energies from the last Compute.
func (p *BandEnergyProcessor) Bands() []*FrequencyBand { return p.bands }

// Compute returns a message with the RMS magnitude of each band, clamped
// to [0, 1], keyed by band name.
func (p *BandEnergyProcessor) Compute() map[string]any {
	if err := p.fftProvider.GetMagnitudesInto(p.magnitudes); err != nil {
		log.Errorf("BandEnergyProcessor: %v", err)
		return nil
	}

	for _, band := range p.bands {
		band.Energy = 0
		band.numBins = 0
	}

	for i, m := range p.magnitudes {
		freq := p.fftProvider.GetFrequencyForBin(i)
		for _, band := range p.bands {
			if freq >= band.LowHz && freq < band.HighHz {
				band.Energy += m * m
				band.numBins++
				break
			}
		}
	}

	bandData := map[string]any{"type": "band_energy"}
	for _, band := range p.bands {
		avg := 0.0
		if band.numBins > 0 {
			avg = band.Energy / float64(band.numBins)
		}
		bandData[band.Name] = math.Min(1.0, math.Sqrt(avg))
	}
	return bandData
}

// Process computes band levels and sends them over the transport.
func (p *BandEnergyProcessor) Process() {
	if p.transport == nil {
		return
	}
	bandData := p.Compute()
	if bandData == nil {
		return
	}
	if err := p.transport.Send(bandData); err != nil {
		log.Warnf("BandEnergyProcessor: Error sending band energy data: %v", err)
	}
}
