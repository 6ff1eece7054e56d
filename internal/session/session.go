// SPDX-License-Identifier: MIT

// Package session runs a single microphone-to-UDP stream: it validates the
// destination, owns the capture and the socket for the lifetime of a run,
// and reports lifecycle changes as events.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"micstream/internal/audio"
	"micstream/internal/config"
	applog "micstream/internal/log"
	"micstream/internal/metrics"
	"micstream/internal/transport/udp"
)

// Sender delivers one frame per datagram to a fixed destination.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// Dialer opens a Sender for dest.
type Dialer func(dest netip.AddrPort) (Sender, error)

// FrameTap receives a copy of every frame before it is sent.
type FrameTap interface {
	WriteFrame(frame []byte) error
}

func dialUDP(dest netip.AddrPort) (Sender, error) {
	s, err := udp.NewUDPSender(dest)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Option func(*Session)

// WithDialer replaces the UDP dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dial = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTap copies captured frames to t. Tap errors are logged and otherwise
// ignored.
func WithTap(t FrameTap) Option {
	return func(s *Session) { s.tap = t }
}

// WithEventBuffer sets how many undelivered events are kept before the
// oldest is discarded.
func WithEventBuffer(n int) Option {
	return func(s *Session) { s.eventBuffer = n }
}

// run is one Streaming period. The loop goroutine owns the capture and the
// sender; everything else only cancels it.
type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	dest    netip.AddrPort
	started time.Time
	done    chan struct{}
}

// Session is an Idle/Streaming state machine. Its methods are safe for
// concurrent use.
type Session struct {
	cfg         config.StreamConfig
	source      audio.CaptureSource
	dial        Dialer
	metrics     *metrics.Metrics
	tap         FrameTap
	eventBuffer int

	state atomic.Int32

	mu       sync.Mutex // Serializes transitions and event emission
	run      *run
	lastDone chan struct{}
	lastErr  error
	events   *eventQueue
}

// New returns an Idle session capturing from source in cfg's format.
func New(cfg config.StreamConfig, source audio.CaptureSource, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream config: %w", err)
	}
	if source == nil {
		return nil, errors.New("capture source is required")
	}

	s := &Session{
		cfg:         cfg,
		source:      source,
		dial:        dialUDP,
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = newEventQueue(s.eventBuffer, s.metrics.EventDropped)

	closed := make(chan struct{})
	close(closed)
	s.lastDone = closed

	return s, nil
}

func (s *Session) State() State { return State(s.state.Load()) }

// Events delivers lifecycle notifications in emission order.
func (s *Session) Events() <-chan Event { return s.events.ch }

// Destination returns the current target, or the zero value while Idle.
func (s *Session) Destination() netip.AddrPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return netip.AddrPort{}
	}
	return s.run.dest
}

// Done is closed once the most recent run has released its capture and
// socket.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDone
}

// Err returns the error that ended the most recent failed run, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start begins streaming to host, which must be a numeric IP literal.
// It returns once the session is Streaming; resource acquisition happens
// in the background and failures are reported as events.
func (s *Session) Start(host string) error {
	dest, err := ParseDestination(host, s.cfg.Port)
	if err != nil {
		applog.Warnf("Session: rejected destination %q", host)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		return ErrAlreadyStreaming
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		ctx:     ctx,
		cancel:  cancel,
		dest:    dest,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	prev := s.lastDone
	s.run = r
	s.lastDone = r.done
	s.lastErr = nil

	s.state.Store(int32(Streaming))
	s.metrics.SessionStarted()
	s.events.publish(StateChanged(Streaming))
	s.events.publish(InfoMessage(MsgStreamStarted))
	applog.Infof("Session: streaming to %s", dest)

	go s.loop(r, prev)
	return nil
}

// Stop ends the active run. It does nothing while Idle. The capture and
// socket are released by the loop within one frame period; wait on Done
// to observe that.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.run
	if r == nil {
		return
	}
	s.run = nil
	r.cancel()

	s.state.Store(int32(Idle))
	s.metrics.SessionEnded(time.Since(r.started).Seconds(), "")
	s.events.publish(StateChanged(Idle))
	s.events.publish(InfoMessage(MsgStreamStopped))
	applog.Infof("Session: stopped streaming to %s", r.dest)
}

// Close stops any active run and waits for its resources to be released.
func (s *Session) Close(ctx context.Context) error {
	s.Stop()
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) loop(r *run, prev <-chan struct{}) {
	defer close(r.done)

	// Never hold the device twice: let the previous run release it first.
	select {
	case <-prev:
	case <-r.ctx.Done():
		return
	}

	if err := s.stream(r); err != nil {
		s.fail(r, err)
	}
}

// stream acquires the socket and the capture, then forwards frames until
// r is cancelled or something fails. Resources are released before it
// returns.
func (s *Session) stream(r *run) error {
	sender, err := s.dial(r.dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	defer func() {
		if err := sender.Close(); err != nil {
			applog.Warnf("Session: error closing socket: %v", err)
		}
	}()

	capture, err := s.source.Open(s.cfg)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			applog.Warnf("Session: error closing capture: %v", err)
		}
	}()

	frameSize := capture.FrameSize()
	if frameSize <= 0 || frameSize > config.MaxDatagramSize {
		return fmt.Errorf("%w: frame size %d bytes does not fit a datagram", ErrDeviceUnavailable, frameSize)
	}

	if err := capture.Start(); err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	applog.Debugf("Session: capture started, %d bytes per datagram", frameSize)

	var meter audio.LevelMeter
	for r.ctx.Err() == nil {
		frame, err := capture.ReadFrame()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		if len(frame) != frameSize {
			return fmt.Errorf("%w: short frame of %d bytes", ErrDeviceUnavailable, len(frame))
		}
		// Stopped while the read was blocked: drop the frame.
		if r.ctx.Err() != nil {
			break
		}

		if s.metrics != nil {
			s.metrics.FrameCaptured(meter.DBFS(frame))
		}
		if s.tap != nil {
			if err := s.tap.WriteFrame(frame); err != nil {
				applog.Warnf("Session: frame tap: %v", err)
			}
		}

		if err := sender.Send(frame); err != nil {
			s.metrics.SendError()
			if udp.IsTransient(err) {
				applog.Debugf("Session: datagram lost: %v", err)
				continue
			}
			return fmt.Errorf("%w: %v", ErrTransportFailure, err)
		}
		s.metrics.DatagramSent(len(frame))
	}
	return nil
}

// fail moves r's session to Idle unless it was already stopped.
func (s *Session) fail(r *run, err error) {
	applog.Errorf("Session: stream to %s failed: %v", r.dest, err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != r {
		return
	}
	s.run = nil
	s.lastErr = err
	r.cancel()

	s.state.Store(int32(Idle))
	s.metrics.SessionEnded(time.Since(r.started).Seconds(), failureCause(err))
	s.events.publish(StateChanged(Idle))
	s.events.publish(ErrorMessage(MsgStreamFailed))
}
