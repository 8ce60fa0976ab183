// Package core holds the transport contracts shared by the signaling router
// and its adapters.
package core

// Frame is a raw encoded payload (a JSON signaling event).
type Frame []byte

// Conn abstracts a live signaling transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	// TrySend enqueues a frame without blocking. Returns an error when the
	// connection is closed or its send buffer is full (backpressure).
	TrySend(Frame) error
	Close()
}
