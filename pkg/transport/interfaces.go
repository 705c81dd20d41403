package transport

import "time"

// ServerConnection is the daemon's end of one client connection as seen
// by message handlers.
type ServerConnection interface {
	ConnID() string
	RemoteAddr() string
	Send(data []byte) error
	Close() error
}

// ClientConnection is a client's connection to a daemon. Receive fails
// with the read deadline error when no frame arrives within timeout; a
// zero timeout blocks.
type ClientConnection interface {
	ConnID() string
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

var (
	_ ServerConnection = (*ServerConn)(nil)
	_ ClientConnection = (*ClientConn)(nil)
)
