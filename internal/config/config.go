package config

import (
	"fmt"
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for the capture-and-stream engine.
const (
	// Default values for the stream configuration
	DefaultChannels    = 1           // Mono audio
	DefaultInputDevice = MinDeviceID // Default to system default device
	DefaultLowLatency  = true        // Smallest buffer the device reports as safe
	DefaultPort        = 44456       // Receiver UDP port
	DefaultSampleRate  = 48000       // Hz
	DefaultLogLevel    = "info"
	DefaultToneFreq    = 0 // 0 disables the synthetic tone source

	// Hardware and processing limits
	MinDeviceID        = -1     // -1 represents system default device
	MinSampleRate      = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate      = 192000 // Maximum supported sample rate (Hz)
	MinFramesPerBuffer = 64
	MaxFramesPerBuffer = 8192 // Maximum frames per buffer (power of 2)
	MaxChannels        = 2

	// BytesPerSample is fixed: samples are 16-bit signed PCM.
	BytesPerSample = 2

	// Largest payload a single UDP datagram can carry over IPv4.
	MaxDatagramSize = 65507
)

// Encoding names the on-wire sample format.
type Encoding string

const PCM16 Encoding = "pcm_s16le"

// StreamConfig is the immutable format and port a session streams with.
// It is derived once from Config and never mutated mid-session.
type StreamConfig struct {
	SampleRate float64
	Channels   int
	Encoding   Encoding
	Port       int
}

// DefaultStreamConfig returns 48 kHz mono 16-bit PCM to port 44456.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Encoding:   PCM16,
		Port:       DefaultPort,
	}
}

// BytesPerFrame is the size of one sample frame across all channels.
func (s StreamConfig) BytesPerFrame() int {
	return s.Channels * BytesPerSample
}

// FrameDuration returns the wall-clock length of a buffer holding frames
// sample frames.
func (s StreamConfig) FrameDuration(frames int) time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / s.SampleRate * float64(time.Second))
}

func (s StreamConfig) Validate() error {
	if s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample rate %.0f out of range [%d, %d]", s.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if s.Channels < 1 || s.Channels > MaxChannels {
		return fmt.Errorf("channels must be between 1 and %d, got %d", MaxChannels, s.Channels)
	}
	if s.Encoding != PCM16 {
		return fmt.Errorf("unsupported encoding %q", s.Encoding)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	return nil
}
