// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of streaming (e.g., "list", "version").
	Audio     AudioConfig     `yaml:"audio"`             // Capture device settings.
	Stream    StreamSettings  `yaml:"stream"`            // Destination settings.
	Recording RecordingConfig `yaml:"recording"`         // Local WAV tap.
	Monitor   MonitorConfig   `yaml:"monitor"`           // Event feed and metrics endpoints.

	// Set from the command line only.
	Interactive bool `yaml:"-"`
}

// AudioConfig holds settings related to the capture device.
type AudioConfig struct {
	InputDevice int     `yaml:"input_device"` // PortAudio device index for audio input (-1 for default).
	SampleRate  float64 `yaml:"sample_rate"`  // Sample rate in Hz.
	Channels    int     `yaml:"channels"`     // 1 for mono, 2 for stereo.
	LowLatency  bool    `yaml:"low_latency"`  // Size frames from the device's low input latency.
	ToneFreq    float64 `yaml:"tone_hz"`      // Stream a synthetic sine instead of the microphone when > 0.
}

// StreamSettings holds where datagrams go.
type StreamSettings struct {
	Port        int    `yaml:"port"`        // Receiver UDP port.
	Destination string `yaml:"destination"` // Receiver IP literal; may be given on the command line instead.
}

// RecordingConfig holds settings for the optional local copy of the stream.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// MonitorConfig holds addresses for the observer endpoints. Empty disables.
type MonitorConfig struct {
	EventsAddress  string `yaml:"events_address"`  // WebSocket event feed, e.g. ":8080".
	MetricsAddress string `yaml:"metrics_address"` // Prometheus endpoint, e.g. ":9090".
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice: DefaultInputDevice,
			SampleRate:  DefaultSampleRate,
			Channels:    DefaultChannels,
			LowLatency:  DefaultLowLatency,
			ToneFreq:    DefaultToneFreq,
		},
		Stream: StreamSettings{
			Port: DefaultPort,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it loads a .env file when present,
// applies environment variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{"config.yaml", "config.yml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	// Apply environment variable overrides AFTER loading from file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports variables from a .env file without overriding the real
// environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// StreamConfig derives the immutable per-session format.
func (c *Config) StreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		Encoding:   PCM16,
		Port:       c.Stream.Port,
	}
}

func (c *Config) Validate() error {
	if err := c.StreamConfig().Validate(); err != nil {
		return err
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.ToneFreq < 0 || c.Audio.ToneFreq >= c.Audio.SampleRate/2 {
		return fmt.Errorf("audio.tone_hz must be in [0, %.0f), got %.1f", c.Audio.SampleRate/2, c.Audio.ToneFreq)
	}
	if c.Recording.Enabled && c.Recording.OutputFile == "" {
		return fmt.Errorf("recording.output_file must be set when recording is enabled")
	}
	return nil
}

// applyEnvOverrides lets ENV_* variables replace file values. Malformed
// numeric values are rejected rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("ENV_DEBUG: %w", err)
		}
		c.Debug = b
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		rate, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("ENV_SAMPLE_RATE: %w", err)
		}
		c.Audio.SampleRate = rate
	}
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		id, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("ENV_INPUT_DEVICE: %w", err)
		}
		c.Audio.InputDevice = id
	}

	// ENV_STREAM_{...}
	// These are specific to the transport layer.
	if val, ok := os.LookupEnv("ENV_STREAM_PORT"); ok {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("ENV_STREAM_PORT: %w", err)
		}
		c.Stream.Port = port
	}
	if val, ok := os.LookupEnv("ENV_STREAM_DESTINATION"); ok {
		c.Stream.Destination = val
	}
	return nil
}
