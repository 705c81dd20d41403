package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/model"
)

// ErrConnectionClosed is returned when using a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// DefaultConnectTimeout bounds Dial when the context has no deadline.
const DefaultConnectTimeout = 5 * time.Second

// ClientConfig configures Dial. Zero values select the defaults.
type ClientConfig struct {
	MaxMessageSize uint32        // DefaultMaxMessageSize when zero
	ConnectTimeout time.Duration // used when ctx has no deadline
	Logger         log.Logger    // protocol log, optional
}

// Dial connects to a daemon. It makes exactly one attempt; any failure,
// including an unparseable address, is returned as *model.ConnectionError.
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}

	addr, err := ParseAddress(address)
	if err != nil {
		return nil, &model.ConnectionError{Address: address, Err: err}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, addr.Network, addr.Addr)
	if err != nil {
		return nil, &model.ConnectionError{Address: addr.String(), Err: err}
	}

	connID := uuid.New().String()
	framer := NewFramer(conn, config.MaxMessageSize)
	if config.Logger != nil {
		framer.SetLogger(config.Logger, connID)
	}

	return &ClientConn{
		conn:    conn,
		framer:  framer,
		address: addr,
		connID:  connID,
		closeCh: make(chan struct{}),
	}, nil
}

// ClientConn is a client's end of a daemon connection. Send may be used
// concurrently; Receive calls are serialized.
type ClientConn struct {
	conn      net.Conn
	framer    *Framer
	address   Address
	connID    string
	closeCh   chan struct{}
	closeOnce sync.Once
	readMu    sync.Mutex
}

func (c *ClientConn) Address() Address { return c.address }

func (c *ClientConn) ConnID() string { return c.connID }

func (c *ClientConn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

func (c *ClientConn) Send(data []byte) error {
	if c.closed() {
		return ErrConnectionClosed
	}
	return c.framer.WriteFrame(data)
}

// Receive waits for the next frame. A zero timeout waits until a frame
// arrives or the connection closes.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.closed() {
		return nil, ErrConnectionClosed
	}
	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	data, err := c.framer.ReadFrame()
	if err != nil && c.closed() {
		return nil, ErrConnectionClosed
	}
	return data, err
}

func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
