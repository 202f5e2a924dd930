// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"polysynth/internal/config"

	"github.com/ebitengine/oto/v3"
)

const bytesPerSample = 4 // float32 little endian

// otoOutput plays the engine through oto's pull model: the player reads
// rendered bytes from the output whenever its buffer runs low.
type otoOutput struct {
	engine *Engine
	ctx    *oto.Context
	player *oto.Player
	buf    []float32
}

func newOtoOutput(cfg *config.Config, engine *Engine) (*otoOutput, error) {
	bufferSize := time.Duration(float64(cfg.Audio.FramesPerBuffer) / cfg.Audio.SampleRate * float64(time.Second))

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(cfg.Audio.SampleRate),
		ChannelCount: engine.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	<-ready

	return &otoOutput{
		engine: engine,
		ctx:    ctx,
		buf:    make([]float32, cfg.Audio.FramesPerBuffer*engine.Channels()),
	}, nil
}

func (o *otoOutput) Start() error {
	o.player = o.ctx.NewPlayer(o)
	o.player.Play()
	return nil
}

func (o *otoOutput) Close() error {
	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	return err
}

// Read implements io.Reader for the oto player. Only whole frames are
// rendered; a request smaller than one frame is answered with silence.
func (o *otoOutput) Read(p []byte) (int, error) {
	ch := o.engine.Channels()
	samples := len(p) / bytesPerSample / ch * ch
	if samples == 0 {
		clear(p)
		return len(p), nil
	}

	if samples > len(o.buf) {
		// Only when the player asks for more than its configured buffer.
		o.buf = make([]float32, samples)
	}
	out := o.buf[:samples]
	o.engine.Render(out)

	for i, s := range out {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(s))
	}
	return samples * bytesPerSample, nil
}
