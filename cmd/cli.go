package cmd

import (
	"errors"
	"fmt"
	"time"

	"micstream/internal/config"
	"micstream/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues holds command-line values until the config file has been
// loaded; only flags the user actually set override the file.
type flagValues struct {
	configPath  string
	deviceID    int
	channels    int
	sampleRate  float64
	lowLatency  bool
	port        int
	toneFreq    float64
	record      string
	monitor     string
	metrics     string
	verbose     bool
	interactive bool
}

// ParseArgs parses args (without the program name) into a Config. A nil
// Config with a nil error means help was printed and there is nothing to do.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.Get()
	var (
		flags   flagValues
		options *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cfg, &flags, cmd.Flags())
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			options = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Stream command
	streamCmd := &cobra.Command{
		Use:   "stream [ip]",
		Short: "Stream the microphone to a receiver",
		Long: "Stream the microphone to <ip> until interrupted. With --interactive,\n" +
			"read start/stop commands from standard input instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "stream"
			options.Interactive = flags.interactive
			if len(args) == 1 {
				options.Stream.Destination = args[0]
			}
			if options.Stream.Destination == "" && !options.Interactive {
				return errors.New("a destination IP is required (or use --interactive)")
			}
			return nil
		},
	}
	streamCmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false,
		"Control streaming with start/stop commands on standard input")
	rootCmd.AddCommand(streamCmd)

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "list"
			return nil
		},
	})

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "version"
			return nil
		},
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.deviceID, "device", "d", config.DefaultInputDevice,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Size datagrams from the device's low input latency")
	pf.Float64Var(&flags.toneFreq, "tone", config.DefaultToneFreq,
		"Stream a sine wave of this frequency (Hz) instead of the microphone")

	// Stream Configuration
	pf.IntVarP(&flags.port, "port", "p", config.DefaultPort,
		"Receiver UDP port")

	// Recording Configuration
	pf.StringVarP(&flags.record, "record", "r", "",
		"Also write the captured audio to this WAV file ('auto' for a timestamped name)")

	// Monitoring Configuration
	pf.StringVar(&flags.monitor, "monitor", "",
		"Serve session events over WebSocket on this address, e.g. :8080")
	pf.StringVar(&flags.metrics, "metrics", "",
		"Serve Prometheus metrics on this address, e.g. :9090")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options == nil || options.Command == "" {
		return nil, nil
	}
	return options, nil
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cfg *config.Config, f *flagValues, set *pflag.FlagSet) {
	if set.Changed("device") {
		cfg.Audio.InputDevice = f.deviceID
	}
	if set.Changed("channels") {
		cfg.Audio.Channels = f.channels
	}
	if set.Changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if set.Changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if set.Changed("tone") {
		cfg.Audio.ToneFreq = f.toneFreq
	}
	if set.Changed("port") {
		cfg.Stream.Port = f.port
	}
	if set.Changed("record") {
		cfg.Recording.Enabled = f.record != ""
		cfg.Recording.OutputFile = f.record
	}
	if cfg.Recording.Enabled && (cfg.Recording.OutputFile == "" || cfg.Recording.OutputFile == "auto") {
		cfg.Recording.OutputFile = DefaultRecordingName(time.Now())
	}
	if set.Changed("monitor") {
		cfg.Monitor.EventsAddress = f.monitor
	}
	if set.Changed("metrics") {
		cfg.Monitor.MetricsAddress = f.metrics
	}
	if f.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}

// DefaultRecordingName returns recording-DD-MM-YYYY-HHMMSS.wav for t in UTC.
func DefaultRecordingName(t time.Time) string {
	return "recording-" + t.UTC().Format("02-01-2006-150405") + ".wav"
}
