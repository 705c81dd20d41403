package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/libratbag/ratbag-go/pkg/log"
)

// ServerConfig configures a Server. Zero values select the defaults.
type ServerConfig struct {
	Address        string      // see ParseAddress; DefaultAddress when empty
	SocketMode     os.FileMode // permissions of a unix socket, 0660 when zero
	MaxMessageSize uint32      // DefaultMaxMessageSize when zero
	Logger         log.Logger  // protocol log, optional

	OnConnect    func(conn *ServerConn)
	OnDisconnect func(conn *ServerConn)

	// OnMessage runs on the connection's read goroutine, so requests of
	// one connection are handled in arrival order.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError receives accept failures (with a nil conn) and broken frames.
	OnError func(conn *ServerConn, err error)
}

// Server accepts client connections on a unix or tcp stream socket.
type Server struct {
	config   ServerConfig
	addr     Address
	listener net.Listener

	connsMu sync.RWMutex
	conns   map[*ServerConn]struct{}

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer validates config.Address; nothing is opened until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.SocketMode == 0 {
		config.SocketMode = 0660
	}

	addr, err := ParseAddress(config.Address)
	if err != nil {
		return nil, err
	}

	return &Server{
		config: config,
		addr:   addr,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start listens on the configured address and accepts connections until
// Stop. A stale unix socket left by an earlier daemon is removed first.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	if s.addr.IsUnix() {
		if err := os.MkdirAll(filepath.Dir(s.addr.Addr), 0755); err != nil {
			return fmt.Errorf("failed to create socket directory: %w", err)
		}
		if err := removeStaleSocket(s.addr.Addr); err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
	}

	listener, err := net.Listen(s.addr.Network, s.addr.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if s.addr.IsUnix() {
		if err := os.Chmod(s.addr.Addr, s.config.SocketMode); err != nil {
			listener.Close()
			return fmt.Errorf("failed to set socket mode: %w", err)
		}
	}
	s.listener = listener

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every connection, then waits for their
// goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	// Closing a unix listener unlinks the socket.
	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()

	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// Address returns the configured address in parseable form. For tcp
// listeners on port 0 the bound port is filled in.
func (s *Server) Address() string {
	if s.listener != nil && !s.addr.IsUnix() {
		return Address{Network: "tcp", Addr: s.listener.Addr().String()}.String()
	}
	return s.addr.String()
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	remote := remoteName(conn)

	framer := NewFramer(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID)
	}

	sconn := &ServerConn{
		conn:    conn,
		framer:  framer,
		server:  s,
		closeCh: make(chan struct{}),
		remote:  remote,
		connID:  connID,
	}

	s.logState(connID, remote, "", "CONNECTED")

	s.connsMu.Lock()
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()
	sconn.Close()

	s.logState(connID, remote, "CONNECTED", "DISCONNECTED")

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logState(connID, remote, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	ev := log.NewStateEvent(log.LayerTransport, log.StateEntityConnection, oldState, newState)
	ev.ConnectionID = connID
	ev.LocalRole = log.RoleDaemon
	ev.RemoteAddr = remote
	s.config.Logger.Log(ev)
}

// remoteName returns a printable peer name. Unix peers have no address, so
// they are named after the socket.
func remoteName(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil && a.String() != "" && a.String() != "<nil>" {
		return a.String()
	}
	if a := conn.LocalAddr(); a != nil {
		return "unix:" + a.String()
	}
	return "unknown"
}

// ServerConn is the daemon's end of one client connection. Frames are
// written whole under the framer's lock, so Send may be called from any
// goroutine.
type ServerConn struct {
	conn      net.Conn
	framer    *Framer
	server    *Server
	closeCh   chan struct{}
	closeOnce sync.Once
	remote    string
	connID    string
}

func (c *ServerConn) RemoteAddr() string { return c.remote }

func (c *ServerConn) ConnID() string { return c.connID }

func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case <-c.server.ctx.Done():
			return
		default:
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.closing() {
				c.readFailed(err)
			}
			return
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

// closing reports whether the connection or the server is shutting down,
// in which case read errors are expected.
func (c *ServerConn) closing() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return !c.server.running.Load()
	}
}

// readFailed reports a broken or oversized frame. The connection is dropped
// afterwards since framing cannot resynchronize.
func (c *ServerConn) readFailed(err error) {
	if l := c.server.config.Logger; l != nil {
		ev := log.NewErrorEvent(log.LayerTransport, err, "read frame", nil)
		ev.ConnectionID = c.connID
		ev.LocalRole = log.RoleDaemon
		ev.RemoteAddr = c.remote
		l.Log(ev)
	}
	if c.server.config.OnError != nil {
		c.server.config.OnError(c, err)
	}
}
