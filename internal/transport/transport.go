// SPDX-License-Identifier: MIT
package transport

// Transport defines a generic interface for sending status or analysis
// frames to listeners. Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}
