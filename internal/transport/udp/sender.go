// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"polysynth/internal/log"
)

var ErrSenderClosed = errors.New("UDP sender is closed")

// UDPSender writes spectrum packets to one connected UDP peer.
type UDPSender struct {
	mu     sync.Mutex // guards conn against Close
	conn   *net.UDPConn
	target string

	sent   atomic.Uint64
	failed atomic.Uint64
	down   bool // last write failed; only the first failure of a run is logged
}

// NewUDPSender dials targetAddress ("host:port"). UDP dialing only fixes the
// peer, so this succeeds even when nothing is listening yet.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve UDP target %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial UDP target %q: %w", targetAddress, err)
	}

	log.Infof("UDPSender: Sending spectrum to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn, target: addr.String()}, nil
}

// Send writes packet as a single datagram.
func (s *UDPSender) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrSenderClosed
	}

	if _, err := s.conn.Write(packet); err != nil {
		s.failed.Add(1)
		// A missing listener shows up as connection refused on every tick.
		if !s.down {
			log.Warnf("UDPSender: %s unreachable: %v", s.target, err)
			s.down = true
		}
		return fmt.Errorf("send UDP packet: %w", err)
	}

	if s.down {
		log.Infof("UDPSender: %s reachable again", s.target)
		s.down = false
	}
	s.sent.Add(1)
	return nil
}

// Sent returns the number of packets written successfully.
func (s *UDPSender) Sent() uint64 { return s.sent.Load() }

// Failed returns the number of packets the socket rejected.
func (s *UDPSender) Failed() uint64 { return s.failed.Load() }

// Close releases the socket. Later sends fail with ErrSenderClosed.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	log.Debugf("UDPSender: Closing (%d sent, %d failed)", s.sent.Load(), s.failed.Load())
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("close UDP connection: %w", err)
	}
	return nil
}
