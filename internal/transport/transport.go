// Package transport delivers session events to observers outside the
// session: the log, WebSocket monitors, or several at once.
package transport

import (
	"context"
	"errors"
)

// Transport defines a generic interface for sending events.
// Implementations must be safe for concurrent use and must not block.
type Transport interface {
	Send(data any) error
	Close() error
}

// Fanout sends to every transport in order.
type Fanout []Transport

func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forward sends everything received on in to t until in is closed or ctx
// is done. Send errors are passed to onErr if it is non-nil.
func Forward[T any](ctx context.Context, in <-chan T, t Transport, onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-in:
			if !ok {
				return
			}
			if err := t.Send(v); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

var _ Transport = Fanout(nil)
