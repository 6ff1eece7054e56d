package udp

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"syscall"

	applog "micstream/internal/log"
)

// UDPSender sends datagrams to a single destination from an ephemeral local port.
type UDPSender struct {
	conn       *net.UDPConn
	targetAddr netip.AddrPort
	mu         sync.Mutex // Protects conn during Close
	closed     bool
}

// NewUDPSender opens a socket bound to an ephemeral local port with target
// as its default destination. No packets are exchanged.
func NewUDPSender(target netip.AddrPort) (*UDPSender, error) {
	// We don't need to bind to a specific local port for sending,
	// so we use nil for the local address in DialUDP.
	conn, err := net.DialUDP("udp", nil, net.UDPAddrFromAddrPort(target))
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket for target '%s': %w", target, err)
	}

	applog.Debugf("UDP Sender: %s -> %s", conn.LocalAddr(), target)

	return &UDPSender{
		conn:       conn,
		targetAddr: target,
	}, nil
}

// Target returns the destination datagrams are sent to.
func (s *UDPSender) Target() netip.AddrPort { return s.targetAddr }

// Send transmits data as a single datagram. There is no acknowledgement and
// no retry.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	n, err := s.conn.Write(data)
	if err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("short UDP write: %d of %d bytes", n, len(data))
	}
	return nil
}

// Close closes the underlying UDP connection.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Already closed
	}

	s.closed = true
	applog.Debugf("UDP Sender: Closing socket to %s", s.targetAddr)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

// IsTransient reports whether a send error only means the datagram was lost.
// A connected UDP socket surfaces an earlier ICMP port-unreachable as
// ECONNREFUSED on the next write; that is loss, not a broken socket.
func IsTransient(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// Ensure UDPSender satisfies the io.Closer interface
var _ interface{ Close() error } = (*UDPSender)(nil)
