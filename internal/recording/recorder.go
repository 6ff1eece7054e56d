// SPDX-License-Identifier: MIT

// Package recording keeps a local WAV copy of the frames a session captures.
package recording

import (
	"fmt"
	"os"
	"sync"

	"micstream/internal/audio"
	"micstream/internal/config"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// Recorder writes 16-bit PCM frames to a WAV file. It is safe for
// concurrent use; writes after Close are rejected.
type Recorder struct {
	mu         sync.Mutex
	path       string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *goaudio.IntBuffer
	frames     int
}

// Create opens path for writing and prepares a WAV encoder for cfg's format.
func Create(path string, cfg config.StreamConfig) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}

	return &Recorder{
		path:       path,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, int(cfg.SampleRate), config.BytesPerSample*8, cfg.Channels, wavFormatPCM),
		sampleBuf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: cfg.Channels,
				SampleRate:  int(cfg.SampleRate),
			},
			SourceBitDepth: config.BytesPerSample * 8,
		},
	}, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// WriteFrame appends one little-endian PCM frame.
func (r *Recorder) WriteFrame(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder == nil {
		return fmt.Errorf("recording closed")
	}
	r.sampleBuf.Data = audio.DecodeInt16LE(r.sampleBuf.Data, frame)
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	r.frames++
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder == nil {
		return nil
	}

	encErr := r.wavEncoder.Close()
	r.wavEncoder = nil
	fileErr := r.outputFile.Close()
	r.outputFile = nil

	if encErr != nil {
		return fmt.Errorf("finalize recording: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close recording: %w", fileErr)
	}
	return nil
}
