// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"polysynth/internal/log"
)

// LoggingTransport implements Transport by writing frames to the debug log.
// It stands in when no network listener is configured.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame as JSON, or with %+v if it does not marshal.
func (lt *LoggingTransport) Send(data any) error {
	if log.GetLevel() > log.LevelDebug {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Debugf("LOG_TRANSPORT: (%T) %+v", data, data)
		return nil
	}
	log.Debugf("LOG_TRANSPORT: %s", jsonData)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
