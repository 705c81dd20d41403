package interaction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/transport"
	"github.com/libratbag/ratbag-go/pkg/version"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// RequestSender is the interface for sending requests over a connection.
type RequestSender interface {
	Send(data []byte) error
}

// Client provides a typed API over the object protocol.
type Client struct {
	mu sync.RWMutex

	sender   RequestSender
	timeout  time.Duration
	protocol log.Logger
	connID   string

	nextMsgID atomic.Uint32

	// Pending requests awaiting responses
	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	closed  bool
	lostErr error
}

// NewClient creates a client that sends through sender. Responses must be
// fed to HandleResponse; Connect does this itself.
func NewClient(sender RequestSender) *Client {
	return &Client{
		sender:  sender,
		timeout: DefaultTimeout,
		pending: make(map[uint32]chan *wire.Response),
	}
}

// Connect dials a daemon and starts reading responses. A daemon that cannot
// be reached yields *model.ConnectionError; there is no retry.
func Connect(ctx context.Context, address string, cfg transport.ClientConfig) (*Client, error) {
	conn, err := transport.Dial(ctx, address, cfg)
	if err != nil {
		return nil, err
	}
	c := NewClient(conn)
	c.protocol = cfg.Logger
	c.connID = conn.ConnID()
	go c.receiveLoop(conn)
	return c, nil
}

func (c *Client) receiveLoop(conn transport.ClientConnection) {
	for {
		data, err := conn.Receive(0)
		if err != nil {
			c.connectionLost(conn, err)
			return
		}
		resp, err := wire.DecodeResponse(data)
		if err != nil {
			continue
		}
		if c.protocol != nil {
			ev := log.NewResponseEvent(c.connID, log.DirectionIn, resp, 0)
			ev.LocalRole = log.RoleClient
			c.protocol.Log(ev)
		}
		_ = c.HandleResponse(resp)
	}
}

// connectionLost fails every pending and future request.
func (c *Client) connectionLost(conn transport.ClientConnection, err error) {
	c.mu.Lock()
	if c.lostErr == nil && !c.closed {
		addr := ""
		if cc, ok := conn.(*transport.ClientConn); ok {
			addr = cc.Address().String()
		}
		c.lostErr = &model.ConnectionError{Address: addr, Err: err}
	}
	c.mu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Close closes the client and the underlying connection, if it has one.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if closer, ok := c.sender.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextMsgID.Add(1); id != 0 {
			return id
		}
	}
}

// failure returns why no request can be sent, or nil.
func (c *Client) failure() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return c.lostErr
}

// Do sends a request and waits for its response. Error statuses are
// returned as *StatusError.
func (c *Client) Do(ctx context.Context, op wire.Operation, path, member string, payload any) (any, error) {
	req := &wire.Request{
		MessageID: c.nextMessageID(),
		Operation: op,
		Path:      path,
		Member:    member,
		Payload:   payload,
	}
	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Status.IsSuccess() {
		return nil, &StatusError{Status: resp.Status, Message: wire.ExtractErrorMessage(resp.Payload)}
	}
	return resp.Payload, nil
}

func (c *Client) sendRequest(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	if err := c.failure(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

	if c.protocol != nil {
		ev := log.NewRequestEvent(c.connID, log.DirectionOut, req)
		ev.LocalRole = log.RoleClient
		c.protocol.Log(ev)
	}

	if err := c.sender.Send(data); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			if err := c.failure(); err != nil {
				return nil, err
			}
			return nil, ErrClientClosed
		}
		return resp, nil
	}
}

// HandleResponse delivers a response to the request waiting for it.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	ch, exists := c.pending[resp.MessageID]
	if !exists {
		return ErrUnexpectedReply
	}
	// Buffered; a duplicate reply is dropped.
	select {
	case ch <- resp:
	default:
	}
	return nil
}

// Get reads a property.
func (c *Client) Get(ctx context.Context, path, member string) (any, error) {
	return c.Do(ctx, wire.OpGet, path, member, nil)
}

// Set writes a property.
func (c *Client) Set(ctx context.Context, path, member string, value any) error {
	_, err := c.Do(ctx, wire.OpSet, path, member, value)
	return err
}

// Call invokes a method with an optional argument.
func (c *Client) Call(ctx context.Context, path, member string, arg any) (any, error) {
	return c.Do(ctx, wire.OpCall, path, member, arg)
}

// GetAll reads every readable property of an object.
func (c *Client) GetAll(ctx context.Context, path string) (wire.GetAllPayload, error) {
	v, err := c.Do(ctx, wire.OpGetAll, path, "", nil)
	if err != nil {
		return nil, err
	}
	all, ok := wire.ExtractGetAllPayload(v)
	if !ok {
		return nil, ErrUnexpectedReply
	}
	return all, nil
}

// GetUint reads an unsigned 32-bit property.
func (c *Client) GetUint(ctx context.Context, path, member string) (uint32, error) {
	v, err := c.Get(ctx, path, member)
	if err != nil {
		return 0, err
	}
	n, ok := wire.ExtractUint(v)
	if !ok || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s.%s is not an unsigned integer", ErrUnexpectedReply, path, member)
	}
	return uint32(n), nil
}

// GetInt reads a signed 32-bit property.
func (c *Client) GetInt(ctx context.Context, path, member string) (int32, error) {
	v, err := c.Get(ctx, path, member)
	if err != nil {
		return 0, err
	}
	n, ok := wire.ExtractInt(v)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s.%s is not an integer", ErrUnexpectedReply, path, member)
	}
	return int32(n), nil
}

// GetBool reads a boolean property.
func (c *Client) GetBool(ctx context.Context, path, member string) (bool, error) {
	v, err := c.Get(ctx, path, member)
	if err != nil {
		return false, err
	}
	b, ok := wire.ExtractBool(v)
	if !ok {
		return false, fmt.Errorf("%w: %s.%s is not a bool", ErrUnexpectedReply, path, member)
	}
	return b, nil
}

// GetString reads a string property.
func (c *Client) GetString(ctx context.Context, path, member string) (string, error) {
	v, err := c.Get(ctx, path, member)
	if err != nil {
		return "", err
	}
	s, ok := wire.ExtractString(v)
	if !ok {
		return "", fmt.Errorf("%w: %s.%s is not a string", ErrUnexpectedReply, path, member)
	}
	return s, nil
}

// GetPaths reads an object list property.
func (c *Client) GetPaths(ctx context.Context, path, member string) ([]string, error) {
	v, err := c.Get(ctx, path, member)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	paths, ok := wire.ExtractStringSlice(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is not an object list", ErrUnexpectedReply, path, member)
	}
	return paths, nil
}

// GetDPI reads a resolution value.
func (c *Client) GetDPI(ctx context.Context, path string) (model.DPI, error) {
	v, err := c.Get(ctx, path, "Resolution")
	if err != nil {
		return model.DPI{}, err
	}
	x, y, err := wire.DecodeDPI(v)
	if err != nil {
		return model.DPI{}, fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return model.DPI{X: x, Y: y}, nil
}

// GetMapping reads a button mapping.
func (c *Client) GetMapping(ctx context.Context, path string) (model.Mapping, error) {
	v, err := c.Get(ctx, path, "Mapping")
	if err != nil {
		return model.Mapping{}, err
	}
	m, err := DecodeMapping(v)
	if err != nil {
		return model.Mapping{}, fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return m, nil
}

// APIVersion reads the manager's API version.
func (c *Client) APIVersion(ctx context.Context) (uint32, error) {
	return c.GetUint(ctx, model.RootPath, "APIVersion")
}

// CheckVersion fails with version.ErrIncompatible when the daemon serves a
// different object API version.
func (c *Client) CheckVersion(ctx context.Context) error {
	api, err := c.APIVersion(ctx)
	if err != nil {
		return err
	}
	return version.CheckAPI(api)
}

// Devices lists device object paths.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	return c.GetPaths(ctx, model.RootPath, "Devices")
}

// LoadTestDevice loads a YAML or JSON device description and returns the
// new device's object path. An empty document loads the default device.
func (c *Client) LoadTestDevice(ctx context.Context, doc string) (string, error) {
	var arg any
	if doc != "" {
		arg = doc
	}
	v, err := c.Call(ctx, model.RootPath, "LoadTestDevice", arg)
	if err != nil {
		return "", err
	}
	path, ok := wire.ExtractString(v)
	if !ok {
		return "", ErrUnexpectedReply
	}
	return path, nil
}

// Reset removes every test device.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.Call(ctx, model.RootPath, "Reset", nil)
	return err
}

// ResetTestDevice restores every test device to its loaded state.
func (c *Client) ResetTestDevice(ctx context.Context) error {
	_, err := c.Call(ctx, model.RootPath, "ResetTestDevice", nil)
	return err
}

// Commit commits a device's pending changes.
func (c *Client) Commit(ctx context.Context, devicePath string) error {
	_, err := c.Call(ctx, devicePath, "Commit", nil)
	return err
}

// StatusError represents an error response from the daemon. It unwraps to
// the matching model sentinel, so errors.Is(err, model.ErrValidation) holds
// for a Validation status.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Status.String()
}

// Unwrap returns the sentinel for the status.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case wire.StatusUnknownObject:
		return model.ErrNotFound
	case wire.StatusUnknownMember:
		return ErrUnknownMember
	case wire.StatusReadOnly:
		return ErrReadOnly
	case wire.StatusInvalidArgs:
		return ErrInvalidArgs
	case wire.StatusValidation:
		return model.ErrValidation
	case wire.StatusState:
		return model.ErrState
	case wire.StatusSpec:
		return model.ErrSpec
	case wire.StatusCommit:
		return model.ErrCommit
	case wire.StatusUnsupported:
		return ErrUnsupported
	default:
		return nil
	}
}
