package transport

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	applog "micstream/internal/log"

	"github.com/gorilla/websocket"
)

type recordingTransport struct {
	mu     sync.Mutex
	got    []any
	err    error
	closed bool
}

func (r *recordingTransport) Send(data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, data)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.err
}

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingTransport{}
	b := &recordingTransport{err: boom}
	f := Fanout{a, b}

	if err := f.Send("hello"); !errors.Is(err, boom) {
		t.Errorf("Send() = %v, want %v", err, boom)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("each transport should receive the message once, got %d and %d", len(a.got), len(b.got))
	}
	if err := f.Close(); !errors.Is(err, boom) {
		t.Errorf("Close() = %v, want %v", err, boom)
	}
	if !a.closed || !b.closed {
		t.Error("Close must reach every transport")
	}
}

func TestForward(t *testing.T) {
	in := make(chan int, 3)
	in <- 1
	in <- 2
	in <- 3
	close(in)

	rt := &recordingTransport{err: errors.New("ignored")}
	var errCount int
	Forward(context.Background(), in, rt, func(error) { errCount++ })

	if len(rt.got) != 3 {
		t.Fatalf("forwarded %d values, want 3", len(rt.got))
	}
	for i, v := range rt.got {
		if v.(int) != i+1 {
			t.Errorf("value %d = %v, want %d", i, v, i+1)
		}
	}
	if errCount != 3 {
		t.Errorf("onErr called %d times, want 3", errCount)
	}
}

func TestForward_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Forward(ctx, make(chan int), &recordingTransport{}, nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after cancel")
	}
}

type errorEvent string

func (e errorEvent) IsError() bool { return true }

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	t.Cleanup(func() { applog.SetOutput(os.Stderr) })

	lt := NewLoggingTransport()
	lt.Send("state: streaming")
	lt.Send(errorEvent("error: Something went wrong"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), lines)
	}
	for i, want := range []struct{ level, msg string }{
		{"info", "state: streaming"},
		{"error", "error: Something went wrong"},
	} {
		if !strings.Contains(lines[i], `"level":"`+want.level+`"`) || !strings.Contains(lines[i], `"message":"`+want.msg+`"`) {
			t.Errorf("line %d = %s, want level %s and message %q", i, lines[i], want.level, want.msg)
		}
	}
}

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + EventsPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

type message struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

func TestWebSocketTransport_Broadcast(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	wst.SetSnapshot(func() any { return message{Type: "state", State: "idle"} })

	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	conn := dialEvents(t, srv)

	// The snapshot is written after the client is registered.
	var first message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.State != "idle" {
		t.Errorf("snapshot state = %q, want idle", first.State)
	}

	if err := wst.Send(message{Type: "state", State: "streaming"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var got message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if got.Type != "state" || got.State != "streaming" {
		t.Errorf("broadcast = %+v", got)
	}
	if n := wst.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}
}

func TestWebSocketTransport_Close(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	if err := wst.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if wst.Addr() == nil {
		t.Fatal("Addr() is nil after Start")
	}

	if err := wst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := wst.Send("late"); err == nil {
		t.Error("Send after Close should fail")
	}
}
