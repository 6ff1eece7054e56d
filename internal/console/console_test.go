package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"micstream/internal/session"
)

type fakeController struct {
	mu    sync.Mutex
	state session.State
	dest  netip.AddrPort
	calls []string
}

func (f *fakeController) Start(host string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start "+host)
	if f.state == session.Streaming {
		return session.ErrAlreadyStreaming
	}
	dest, err := session.ParseDestination(host, 44456)
	if err != nil {
		return err
	}
	f.state, f.dest = session.Streaming, dest
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	f.state, f.dest = session.Idle, netip.AddrPort{}
}

func (f *fakeController) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) Destination() netip.AddrPort {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dest
}

func TestExecute(t *testing.T) {
	tests := []struct {
		line      string
		wantOut   string
		wantQuit  bool
		wantState session.State
	}{
		{"", "", false, session.Idle},
		{"status", "idle", false, session.Idle},
		{"start", "usage: start <ip>", false, session.Idle},
		{"start localhost", "not a valid IP address", false, session.Idle},
		{"start 10.0.0.5", "", false, session.Streaming},
		{"START 10.0.0.6", "already streaming", false, session.Streaming},
		{"status", "streaming to 10.0.0.5:44456", false, session.Streaming},
		{"bogus", `unknown command "bogus"`, false, session.Streaming},
		{"stop", "", false, session.Idle},
		{"stop", "", false, session.Idle},
		{"quit", "", true, session.Idle},
	}

	c := &fakeController{}
	for _, tt := range tests {
		var out bytes.Buffer
		quit := Execute(tt.line, &out, c)
		if quit != tt.wantQuit {
			t.Errorf("Execute(%q) quit = %v, want %v", tt.line, quit, tt.wantQuit)
		}
		if tt.wantOut == "" && out.Len() != 0 {
			t.Errorf("Execute(%q) printed %q, want nothing", tt.line, out.String())
		}
		if !strings.Contains(out.String(), tt.wantOut) {
			t.Errorf("Execute(%q) printed %q, want it to contain %q", tt.line, out.String(), tt.wantOut)
		}
		if got := c.State(); got != tt.wantState {
			t.Errorf("after %q state = %s, want %s", tt.line, got, tt.wantState)
		}
	}
}

func TestRun_EndOfInput(t *testing.T) {
	c := &fakeController{}
	in := strings.NewReader("start 192.168.1.20\nstatus\nstop\n")
	var out bytes.Buffer

	if err := Run(context.Background(), in, &out, c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"start 192.168.1.20", "stop"}
	if strings.Join(c.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", c.calls, want)
	}
	if !strings.Contains(out.String(), "streaming to 192.168.1.20:44456") {
		t.Errorf("status missing from output: %q", out.String())
	}
}

func TestRun_QuitStopsSession(t *testing.T) {
	c := &fakeController{}
	in := strings.NewReader("start ::1\nquit\nstart 10.0.0.1\n")

	if err := Run(context.Background(), in, io.Discard, c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.State() != session.Idle {
		t.Errorf("state after quit = %s, want idle", c.State())
	}
	if n := len(c.calls); n != 2 {
		t.Errorf("commands after quit were executed: %v", c.calls)
	}
}

func TestRun_Cancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, pr, io.Discard, &fakeController{}) }()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
