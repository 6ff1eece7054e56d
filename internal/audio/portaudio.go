package audio

import (
	"errors"
	"fmt"
	"sync"

	"micstream/internal/config"
	applog "micstream/internal/log"

	"github.com/gordonklaus/portaudio"
)

// paStream is the subset of *portaudio.Stream used for blocking capture.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
}

// paOpenStreamFunc opens a blocking input stream that fills buf on Read.
var paOpenStreamFunc = func(params portaudio.StreamParameters, buf []int16) (paStream, error) {
	return portaudio.OpenStream(params, buf)
}

// PortAudioSource captures from a PortAudio input device.
// Initialize must have been called before Open.
type PortAudioSource struct {
	DeviceID   int  // config.MinDeviceID selects the system default.
	LowLatency bool // Size frames from the low (rather than high) input latency.
}

// Open acquires the device at cfg's format. The frame size is derived once
// from the device's reported input latency.
func (s *PortAudioSource) Open(cfg config.StreamConfig) (Capture, error) {
	device, err := InputDevice(s.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if device.MaxInputChannels < cfg.Channels {
		return nil, fmt.Errorf("%w: %s has %d input channels, need %d",
			ErrDeviceUnavailable, device.Name, device.MaxInputChannels, cfg.Channels)
	}

	latency := device.DefaultHighInputLatency
	if s.LowLatency {
		latency = device.DefaultLowInputLatency
	}
	frames := FramesForLatency(cfg.SampleRate, latency)

	samples := make([]int16, frames*cfg.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: frames,
	}

	stream, err := paOpenStreamFunc(params, samples)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s at %.0f Hz: %v", ErrDeviceUnavailable, device.Name, cfg.SampleRate, err)
	}

	applog.Infof("Capture: opened %q (%d frames per buffer, %d bytes per frame, latency %s)",
		device.Name, frames, len(samples)*config.BytesPerSample, latency)

	return &paCapture{
		stream:  stream,
		samples: samples,
		frame:   make([]byte, len(samples)*config.BytesPerSample),
	}, nil
}

type paCapture struct {
	stream  paStream
	samples []int16
	frame   []byte

	started   bool
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func (c *paCapture) FrameSize() int { return len(c.frame) }

func (c *paCapture) Start() error {
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}
	c.started = true
	return nil
}

func (c *paCapture) ReadFrame() ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if !c.started {
		return nil, ErrNotStarted
	}
	if err := c.stream.Read(); err != nil {
		// The buffer is still filled on overflow; earlier samples were lost.
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("read stream: %w", err)
		}
		applog.Debugf("Capture: input overflowed")
	}
	PutInt16LE(c.frame, c.samples)
	return c.frame, nil
}

func (c *paCapture) Close() error {
	c.closeOnce.Do(func() {
		c.closed = true
		if c.started {
			if err := c.stream.Stop(); err != nil {
				applog.Warnf("Capture: error stopping stream: %v", err)
			}
		}
		if err := c.stream.Close(); err != nil {
			c.closeErr = fmt.Errorf("close stream: %w", err)
		}
	})
	return c.closeErr
}
