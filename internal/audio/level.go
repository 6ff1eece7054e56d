package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SilenceDBFS is reported for an all-zero frame.
const SilenceDBFS = -96.0

// LevelMeter measures the RMS level of 16-bit PCM frames. It reuses its
// scratch buffer and is not safe for concurrent use.
type LevelMeter struct {
	buf []float64
}

// DBFS returns the RMS level of frame relative to full scale, floored at
// SilenceDBFS.
func (m *LevelMeter) DBFS(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return SilenceDBFS
	}
	if cap(m.buf) < n {
		m.buf = make([]float64, n)
	}
	m.buf = m.buf[:n]
	for i := range m.buf {
		s := int16(uint16(frame[2*i]) | uint16(frame[2*i+1])<<8)
		m.buf[i] = float64(s) / 32768
	}

	rms := floats.Norm(m.buf, 2) / math.Sqrt(float64(n))
	if rms == 0 {
		return SilenceDBFS
	}
	return math.Max(20*math.Log10(rms), SilenceDBFS)
}
