package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"micstream/cmd"
	"micstream/internal/audio"
	"micstream/internal/config"
	"micstream/internal/console"
	applog "micstream/internal/log"
	"micstream/internal/metrics"
	"micstream/internal/recording"
	"micstream/internal/session"
	"micstream/internal/transport"
	"micstream/pkg/build"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 3 * time.Second

// main is the entry point for the microphone streamer.
// The program flow is divided into three phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and the config file
//   - Execute one-off commands (list, version) if requested
//
// 2. Streaming Phase:
//   - Wire the capture source, metrics, recording tap and event sinks
//   - Start the session, or hand control to the interactive console
//
// 3. Shutdown Phase:
//   - Handle termination signals or a failed session
//   - Stop the session and wait for the device and socket to be released
//   - Flush the recording and close the observer endpoints
func main() {
	// ==================== STARTUP PHASE ====================

	// Development builds have no link-time flags; that is not fatal.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build info: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		return
	}

	configureLogging(cfg)

	if err := execute(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func configureLogging(cfg *config.Config) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}

func execute(cfg *config.Config) error {
	switch cfg.Command {
	case "version":
		fmt.Println(build.Get())
		return nil
	case "list":
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(os.Stdout)
	case "stream":
		return stream(cfg)
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// ==================== STREAMING PHASE ====================

func stream(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	streamCfg := cfg.StreamConfig()

	var source audio.CaptureSource
	if cfg.Audio.ToneFreq > 0 {
		applog.Infof("Capture: synthetic %.0f Hz tone", cfg.Audio.ToneFreq)
		source = &audio.ToneSource{Frequency: cfg.Audio.ToneFreq}
	} else {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		source = &audio.PortAudioSource{DeviceID: cfg.Audio.InputDevice, LowLatency: cfg.Audio.LowLatency}
	}

	opts := []session.Option{}

	if addr := cfg.Monitor.MetricsAddress; addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, session.WithMetrics(metrics.NewMetrics(reg)))

		srv := serveMetrics(addr, reg)
		defer shutdownServer(srv)
	}

	if cfg.Recording.Enabled {
		rec, err := recording.Create(cfg.Recording.OutputFile, streamCfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				applog.Errorf("Recording: %v", err)
				return
			}
			fmt.Printf("\nRecording saved to: %s (%d frames)\n", rec.Path(), rec.Frames())
		}()
		opts = append(opts, session.WithTap(rec))
	}

	sess, err := session.New(streamCfg, source, opts...)
	if err != nil {
		return err
	}

	sinks := transport.Fanout{transport.NewLoggingTransport()}
	if addr := cfg.Monitor.EventsAddress; addr != "" {
		wst := transport.NewWebSocketTransport(addr)
		wst.SetSnapshot(func() any { return session.StateChanged(sess.State()) })
		if err := wst.Start(); err != nil {
			return fmt.Errorf("event monitor: %w", err)
		}
		sinks = append(sinks, wst)
	}
	defer sinks.Close()

	fwdCtx, cancelFwd := context.WithCancel(context.Background())
	fwdDone := make(chan struct{})
	go func() {
		defer close(fwdDone)
		transport.Forward(fwdCtx, sess.Events(), sinks, func(err error) {
			applog.Debugf("Event delivery: %v", err)
		})
	}()

	runErr := drive(ctx, cfg, sess)

	// ==================== SHUTDOWN PHASE ====================

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sess.Close(shutdownCtx); err != nil {
		applog.Warnf("Session: capture was not released in time: %v", err)
	}

	cancelFwd()
	<-fwdDone
	drainEvents(sess, sinks)

	return runErr
}

// drive runs the session until the user is done with it.
func drive(ctx context.Context, cfg *config.Config, sess *session.Session) error {
	if cfg.Interactive {
		err := console.Run(ctx, os.Stdin, os.Stdout, sess)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if err := sess.Start(cfg.Stream.Destination); err != nil {
		return err
	}

	// Nothing else stops a non-interactive session, so Done closing
	// before a signal means the run failed.
	select {
	case <-ctx.Done():
		return nil
	case <-sess.Done():
		if err := sess.Err(); err != nil {
			return fmt.Errorf("stream to %s ended: %w", cfg.Stream.Destination, err)
		}
		return nil
	}
}

func drainEvents(sess *session.Session, sinks transport.Transport) {
	for {
		select {
		case ev := <-sess.Events():
			sinks.Send(ev)
		default:
			return
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		applog.Infof("Metrics: serving on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("Metrics: server error: %v", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		applog.Warnf("Metrics: shutdown: %v", err)
	}
}
