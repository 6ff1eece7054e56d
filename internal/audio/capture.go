// SPDX-License-Identifier: MIT
/*
Package audio provides the capture side of the streamer:
- CaptureSource, the capability interface the session depends on
- A PortAudio source reading the microphone in blocking mode
- A synthetic tone source for running without hardware
- Frame sizing, PCM packing and an input level meter

A Capture yields fixed-size frames of 16-bit little-endian PCM. The frame
size is fixed when the device is opened and never changes afterwards.
*/
package audio

import (
	"errors"

	"micstream/internal/config"
)

var (
	// ErrDeviceUnavailable is returned when the device cannot be opened or
	// started at the requested format (busy, unsupported, access denied).
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrAlreadyStarted    = errors.New("capture already started")
	ErrNotStarted        = errors.New("capture not started")
	ErrClosed            = errors.New("capture closed")
)

// CaptureSource opens capture devices. Implementations exist per backend.
type CaptureSource interface {
	Open(cfg config.StreamConfig) (Capture, error)
}

// Capture is an open device handle.
//
// Start begins physical capture and may only be called once.
// ReadFrame blocks until exactly FrameSize bytes are available; the returned
// slice is only valid until the next call.
// Close stops capture and releases the device. It is idempotent and safe to
// call in any state.
type Capture interface {
	Start() error
	ReadFrame() ([]byte, error)
	FrameSize() int
	Close() error
}
