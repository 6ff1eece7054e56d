package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// User-facing messages carried by events.
const (
	MsgStreamStarted = "Stream Started!"
	MsgStreamStopped = "Stream Stopped!"
	MsgStreamFailed  = "Something went wrong. Please try again."
)

const DefaultEventBuffer = 64

// State is the session lifecycle state.
type State int32

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// EventKind distinguishes the three notifications a session emits.
type EventKind int

const (
	EventInfo EventKind = iota
	EventError
	EventStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventInfo:
		return "info"
	case EventError:
		return "error"
	case EventStateChanged:
		return "state"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a notification for observers. It has no effect on the session.
type Event struct {
	Kind    EventKind
	Message string // EventInfo and EventError
	State   State  // EventStateChanged
	Time    time.Time
}

func InfoMessage(text string) Event {
	return Event{Kind: EventInfo, Message: text, Time: time.Now()}
}

func ErrorMessage(text string) Event {
	return Event{Kind: EventError, Message: text, Time: time.Now()}
}

func StateChanged(s State) Event {
	return Event{Kind: EventStateChanged, State: s, Time: time.Now()}
}

func (e Event) String() string {
	if e.Kind == EventStateChanged {
		return fmt.Sprintf("state: %s", e.State)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e Event) IsError() bool { return e.Kind == EventError }

// MarshalJSON encodes the event for the monitor feed, e.g.
// {"type":"state","state":"streaming","time":"..."}.
func (e Event) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string    `json:"type"`
		Message string    `json:"message,omitempty"`
		State   string    `json:"state,omitempty"`
		Time    time.Time `json:"time"`
	}{
		Type: e.Kind.String(),
		Time: e.Time,
	}
	if e.Kind == EventStateChanged {
		out.State = e.State.String()
	} else {
		out.Message = e.Message
	}
	return json.Marshal(out)
}

// eventQueue is a bounded channel that discards its oldest entry when full,
// so publishing never blocks. Publishers must be serialized by the caller.
type eventQueue struct {
	ch     chan Event
	onDrop func()
}

func newEventQueue(size int, onDrop func()) *eventQueue {
	if size < 1 {
		size = 1
	}
	return &eventQueue{ch: make(chan Event, size), onDrop: onDrop}
}

func (q *eventQueue) publish(ev Event) {
	for {
		select {
		case q.ch <- ev:
			return
		default:
		}
		select {
		case <-q.ch:
			if q.onDrop != nil {
				q.onDrop()
			}
		default:
		}
	}
}
