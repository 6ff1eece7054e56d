package session

import (
	"errors"
	"fmt"
	"net/netip"

	"micstream/internal/audio"
)

var (
	// ErrInvalidAddress is returned synchronously by Start when the
	// destination is not a numeric IPv4 or IPv6 literal.
	ErrInvalidAddress = errors.New("invalid destination address")
	// ErrAlreadyStreaming is returned by Start while a session is active.
	ErrAlreadyStreaming = errors.New("already streaming")
	// ErrDeviceUnavailable ends a session whose capture device could not be
	// opened, started or read.
	ErrDeviceUnavailable = audio.ErrDeviceUnavailable
	// ErrTransportFailure ends a session whose socket could not be created
	// or whose send failed.
	ErrTransportFailure = errors.New("transport failure")
)

// ParseDestination validates host as a numeric IP literal and pairs it with
// port. Hostnames are rejected; nothing is resolved.
func ParseDestination(host string, port int) (netip.AddrPort, error) {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidAddress, host)
	}
	return netip.AddrPortFrom(addr, uint16(port)), nil
}

// failureCause labels err for metrics.
func failureCause(err error) string {
	switch {
	case errors.Is(err, ErrTransportFailure):
		return "transport"
	case errors.Is(err, ErrDeviceUnavailable):
		return "device"
	default:
		return "other"
	}
}
