package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"micstream/internal/config"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "stream with defaults",
			args: []string{"stream", "10.0.0.5"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Command != "stream" || cfg.Stream.Destination != "10.0.0.5" {
					t.Errorf("command %q destination %q", cfg.Command, cfg.Stream.Destination)
				}
				if cfg.Stream.Port != config.DefaultPort || cfg.Audio.SampleRate != config.DefaultSampleRate {
					t.Errorf("defaults not applied: port %d rate %.0f", cfg.Stream.Port, cfg.Audio.SampleRate)
				}
				if cfg.Interactive {
					t.Error("interactive should default to false")
				}
			},
		},
		{
			name: "flags override defaults",
			args: []string{"stream", "::1", "--port", "5000", "-s", "16000", "--tone", "440", "--monitor", ":8080", "--metrics", ":9090", "-v"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Stream.Port != 5000 {
					t.Errorf("port = %d, want 5000", cfg.Stream.Port)
				}
				if cfg.Audio.SampleRate != 16000 {
					t.Errorf("sample rate = %.0f, want 16000", cfg.Audio.SampleRate)
				}
				if cfg.Audio.ToneFreq != 440 {
					t.Errorf("tone = %.0f, want 440", cfg.Audio.ToneFreq)
				}
				if cfg.Monitor.EventsAddress != ":8080" || cfg.Monitor.MetricsAddress != ":9090" {
					t.Errorf("monitor = %+v", cfg.Monitor)
				}
				if !cfg.Debug || cfg.LogLevel != "debug" {
					t.Errorf("verbose not applied: debug %v level %q", cfg.Debug, cfg.LogLevel)
				}
			},
		},
		{
			name: "interactive needs no destination",
			args: []string{"stream", "--interactive"},
			check: func(t *testing.T, cfg *config.Config) {
				if !cfg.Interactive || cfg.Stream.Destination != "" {
					t.Errorf("interactive %v destination %q", cfg.Interactive, cfg.Stream.Destination)
				}
			},
		},
		{
			name: "record to file",
			args: []string{"stream", "10.0.0.5", "--record", "out.wav"},
			check: func(t *testing.T, cfg *config.Config) {
				if !cfg.Recording.Enabled || cfg.Recording.OutputFile != "out.wav" {
					t.Errorf("recording = %+v", cfg.Recording)
				}
			},
		},
		{
			name: "record with generated name",
			args: []string{"stream", "10.0.0.5", "-r", "auto"},
			check: func(t *testing.T, cfg *config.Config) {
				if !strings.HasPrefix(cfg.Recording.OutputFile, "recording-") || !strings.HasSuffix(cfg.Recording.OutputFile, ".wav") {
					t.Errorf("output file = %q", cfg.Recording.OutputFile)
				}
			},
		},
		{
			name: "list",
			args: []string{"list"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Command != "list" {
					t.Errorf("command = %q, want list", cfg.Command)
				}
			},
		},
		{
			name: "version",
			args: []string{"version"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Command != "version" {
					t.Errorf("command = %q, want version", cfg.Command)
				}
			},
		},
		{
			name:    "stream needs a destination",
			args:    []string{"stream"},
			wantErr: "destination IP is required",
		},
		{
			name:    "too many arguments",
			args:    []string{"stream", "10.0.0.5", "10.0.0.6"},
			wantErr: "accepts at most 1 arg",
		},
		{
			name:    "invalid sample rate",
			args:    []string{"stream", "10.0.0.5", "--sample-rate", "1"},
			wantErr: "invalid configuration",
		},
		{
			name:    "missing config file",
			args:    []string{"list", "--config", "nope.yaml"},
			wantErr: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())

			cfg, err := ParseArgs(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseArgs(%v) error = %v, want %q", tt.args, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs(%v): %v", tt.args, err)
			}
			if cfg == nil {
				t.Fatalf("ParseArgs(%v) returned no config", tt.args)
			}
			tt.check(t, cfg)
		})
	}
}

func TestParseArgs_ConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := "audio:\n  sample_rate: 44100\nstream:\n  port: 6000\n  destination: 192.168.1.20\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseArgs([]string{"stream", "--port", "7000"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample rate = %.0f, want 44100 from file", cfg.Audio.SampleRate)
	}
	if cfg.Stream.Port != 7000 {
		t.Errorf("port = %d, want 7000 from flag", cfg.Stream.Port)
	}
	if cfg.Stream.Destination != "192.168.1.20" {
		t.Errorf("destination = %q, want the file's", cfg.Stream.Destination)
	}
}

func TestParseArgs_Help(t *testing.T) {
	chdir(t, t.TempDir())
	for _, args := range [][]string{{"--help"}, {"--version"}} {
		cfg, err := ParseArgs(args)
		if err != nil || cfg != nil {
			t.Errorf("ParseArgs(%v) = %v, %v; want nil, nil", args, cfg, err)
		}
	}
}

func TestDefaultRecordingName(t *testing.T) {
	ts := time.Date(2025, 4, 13, 9, 5, 7, 0, time.UTC)
	if got, want := DefaultRecordingName(ts), "recording-13-04-2025-090507.wav"; got != want {
		t.Errorf("DefaultRecordingName() = %q, want %q", got, want)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
