// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Array of FFT magnitudes |
+-----------------------------------------------------------------------------+
*/
const HeaderSize = 4 + 8 + 2

var ErrShortPacket = errors.New("short spectrum packet")

// Packet is one decoded spectrum datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Magnitudes []float32
}

// AppendPacket encodes a packet onto dst and returns the extended slice.
func AppendPacket(dst []byte, seq uint32, timestamp int64, magnitudes []float32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(magnitudes)))
	for _, m := range magnitudes {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(m))
	}
	return dst
}

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	payload := b[HeaderSize:]
	if len(payload) < n*4 {
		return Packet{}, fmt.Errorf("%w: %d magnitudes in %d bytes", ErrShortPacket, n, len(payload))
	}
	p.Magnitudes = make([]float32, n)
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[i*4:]))
	}
	return p, nil
}
