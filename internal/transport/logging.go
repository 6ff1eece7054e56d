package transport

import (
	applog "micstream/internal/log"
)

// LoggingTransport implements the Transport interface by writing each
// event to the application log. Values reporting IsError() are logged at
// error level.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Debug("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(data any) error {
	if e, ok := data.(interface{ IsError() bool }); ok && e.IsError() {
		applog.Errorf("%v", data)
		return nil
	}
	applog.Infof("%v", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
