package audio

import (
	"math"
	"sync"
	"time"

	"micstream/internal/config"
)

const DefaultToneFrames = 1024

// ToneSource is a synthetic CaptureSource producing a sine wave. Reads are
// paced at the real-time rate of the configured format unless NoPacing is set.
type ToneSource struct {
	Frequency       float64 // Hz
	Amplitude       float64 // 0..1 of full scale; 0 means 0.5
	FramesPerBuffer int     // 0 means DefaultToneFrames
	NoPacing        bool
}

func (s *ToneSource) Open(cfg config.StreamConfig) (Capture, error) {
	frames := s.FramesPerBuffer
	if frames <= 0 {
		frames = DefaultToneFrames
	}
	amp := s.Amplitude
	if amp <= 0 || amp > 1 {
		amp = 0.5
	}
	return &toneCapture{
		cfg:      cfg,
		step:     2 * math.Pi * s.Frequency / cfg.SampleRate,
		scale:    amp * math.MaxInt16,
		samples:  make([]int16, frames*cfg.Channels),
		frame:    make([]byte, frames*cfg.BytesPerFrame()),
		period:   cfg.FrameDuration(frames),
		noPacing: s.NoPacing,
	}, nil
}

type toneCapture struct {
	cfg      config.StreamConfig
	step     float64
	scale    float64
	phase    float64
	samples  []int16
	frame    []byte
	period   time.Duration
	noPacing bool

	mu      sync.Mutex
	started bool
	closed  bool
	next    time.Time
}

func (c *toneCapture) FrameSize() int { return len(c.frame) }

func (c *toneCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	c.next = time.Now()
	return nil
}

func (c *toneCapture) ReadFrame() ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if !c.started {
		c.mu.Unlock()
		return nil, ErrNotStarted
	}
	c.next = c.next.Add(c.period)
	wait := time.Until(c.next)
	c.mu.Unlock()

	if !c.noPacing && wait > 0 {
		time.Sleep(wait)
	}

	channels := c.cfg.Channels
	for i := 0; i < len(c.samples); i += channels {
		v := int16(math.Sin(c.phase) * c.scale)
		for ch := 0; ch < channels; ch++ {
			c.samples[i+ch] = v
		}
		c.phase += c.step
		if c.phase >= 2*math.Pi {
			c.phase -= 2 * math.Pi
		}
	}
	PutInt16LE(c.frame, c.samples)
	return c.frame, nil
}

func (c *toneCapture) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
