package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/transport"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// Server dispatches requests against the object graph held by a Registry.
type Server struct {
	registry Registry
	logger   *slog.Logger
	protocol log.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithProtocolLogger records every decoded request and response.
func WithProtocolLogger(l log.Logger) ServerOption {
	return func(s *Server) { s.protocol = l }
}

// NewServer creates a new interaction server for the given registry.
func NewServer(registry Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleRequest processes an incoming request and returns a response.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) *wire.Response {
	if err := req.Validate(); err != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidArgs, err.Error())
	}

	path, err := ParsePath(req.Path)
	if err != nil {
		return s.fail(req, err)
	}
	obj, err := s.resolve(path)
	if err != nil {
		return s.fail(req, err)
	}

	var payload any
	switch req.Operation {
	case wire.OpGet:
		payload, err = s.get(path.Kind, obj, req.Member)
	case wire.OpSet:
		err = s.set(path.Kind, obj, req.Member, req.Payload)
	case wire.OpCall:
		payload, err = s.call(ctx, path.Kind, obj, req.Member, req.Payload)
	case wire.OpGetAll:
		payload, err = s.getAll(path.Kind, obj)
	default:
		err = fmt.Errorf("%w: operation %d", ErrUnsupported, req.Operation)
	}
	if err != nil {
		return s.fail(req, err)
	}

	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
		Payload:   payload,
	}
}

// resolve looks up the handles a path refers to.
func (s *Server) resolve(p ObjectPath) (*object, error) {
	obj := &object{registry: s.registry}
	if p.Kind == KindManager {
		return obj, nil
	}

	dev, err := s.registry.Device(p.Sysname)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, p)
	}
	obj.device = dev
	if p.Kind == KindDevice {
		return obj, nil
	}

	prof, err := dev.Profile(p.Profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, p)
	}
	obj.profile = prof

	switch p.Kind {
	case KindResolution:
		obj.res, err = prof.Resolution(p.Index)
	case KindButton:
		obj.button, err = prof.Button(p.Index)
	case KindLed:
		obj.led, err = prof.Led(p.Index)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, p)
	}
	return obj, nil
}

func (s *Server) lookup(kind Kind, name string) (member, error) {
	m, ok := memberTable[kind][name]
	if !ok {
		return member{}, fmt.Errorf("%w: %s has no member %q", ErrUnknownMember, kind, name)
	}
	return m, nil
}

func (s *Server) get(kind Kind, obj *object, name string) (any, error) {
	m, err := s.lookup(kind, name)
	if err != nil {
		return nil, err
	}
	if m.get == nil {
		return nil, fmt.Errorf("%w: %s.%s is a method", ErrUnsupported, kind, name)
	}
	return m.get(obj)
}

func (s *Server) set(kind Kind, obj *object, name string, v any) error {
	m, err := s.lookup(kind, name)
	if err != nil {
		return err
	}
	if m.set == nil {
		if m.get != nil {
			return fmt.Errorf("%w: %s.%s", ErrReadOnly, kind, name)
		}
		return fmt.Errorf("%w: %s.%s is a method", ErrUnsupported, kind, name)
	}
	return m.set(obj, v)
}

func (s *Server) call(ctx context.Context, kind Kind, obj *object, name string, arg any) (any, error) {
	m, err := s.lookup(kind, name)
	if err != nil {
		return nil, err
	}
	if m.call == nil {
		return nil, fmt.Errorf("%w: %s.%s is a property", ErrUnsupported, kind, name)
	}
	return m.call(ctx, obj, arg)
}

func (s *Server) getAll(kind Kind, obj *object) (any, error) {
	out := make(wire.GetAllPayload)
	for _, name := range memberOrder[kind] {
		m := memberTable[kind][name]
		if m.get == nil {
			continue
		}
		v, err := m.get(obj)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func (s *Server) fail(req *wire.Request, err error) *wire.Response {
	status := StatusFor(err)
	if status == wire.StatusInternal {
		s.logger.Error("request failed", "op", req.Operation, "path", req.Path, "member", req.Member, "error", err)
	} else {
		s.logger.Debug("request rejected", "op", req.Operation, "path", req.Path, "member", req.Member, "status", status, "error", err)
	}
	return errorResponse(req.MessageID, status, err.Error())
}

// StatusFor maps an error from dispatch or the model onto a wire status.
func StatusFor(err error) wire.Status {
	switch {
	case err == nil:
		return wire.StatusSuccess
	case errors.Is(err, ErrInvalidPath), errors.Is(err, ErrUnknownObject), errors.Is(err, model.ErrNotFound):
		return wire.StatusUnknownObject
	case errors.Is(err, ErrUnknownMember):
		return wire.StatusUnknownMember
	case errors.Is(err, ErrReadOnly):
		return wire.StatusReadOnly
	case errors.Is(err, ErrInvalidArgs), errors.Is(err, wire.ErrInvalidValue):
		return wire.StatusInvalidArgs
	case errors.Is(err, ErrUnsupported):
		return wire.StatusUnsupported
	case errors.Is(err, model.ErrSpec):
		return wire.StatusSpec
	case errors.Is(err, model.ErrCommit):
		return wire.StatusCommit
	case errors.Is(err, model.ErrValidation):
		return wire.StatusValidation
	case errors.Is(err, model.ErrState):
		return wire.StatusState
	default:
		return wire.StatusInternal
	}
}

// HandleMessage is a transport OnMessage callback: it decodes one request
// frame, dispatches it and sends the response on the same connection.
// Undecodable frames are answered with InvalidArgs and message ID 0.
func (s *Server) HandleMessage(ctx context.Context, conn transport.ServerConnection, data []byte) {
	start := time.Now()

	req, err := wire.DecodeRequest(data)
	var resp *wire.Response
	switch {
	case req == nil:
		s.logger.Warn("undecodable request", "conn", conn.ConnID(), "error", err)
		resp = errorResponse(0, wire.StatusInvalidArgs, err.Error())
		s.logError(conn, log.NewErrorEvent(log.LayerWire, err, "decode request", &resp.Status), "")
	case err != nil:
		resp = errorResponse(req.MessageID, wire.StatusInvalidArgs, err.Error())
	default:
		if s.protocol != nil {
			ev := log.NewRequestEvent(conn.ConnID(), log.DirectionIn, req)
			ev.LocalRole = log.RoleDaemon
			ev.RemoteAddr = conn.RemoteAddr()
			ev.Sysname = sysnameOf(req.Path)
			s.protocol.Log(ev)
		}
		resp = s.HandleRequest(ctx, req)
		if resp.Status == wire.StatusCommit {
			s.logError(conn, log.NewErrorEvent(log.LayerService, errors.New(wire.ExtractErrorMessage(resp.Payload)), "Commit", &resp.Status), sysnameOf(req.Path))
		}
	}

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("failed to encode response", "conn", conn.ConnID(), "error", err)
		out, err = wire.EncodeResponse(errorResponse(resp.MessageID, wire.StatusInternal, "unencodable response"))
		if err != nil {
			return
		}
	}

	if s.protocol != nil {
		ev := log.NewResponseEvent(conn.ConnID(), log.DirectionOut, resp, time.Since(start))
		ev.LocalRole = log.RoleDaemon
		ev.RemoteAddr = conn.RemoteAddr()
		if req != nil {
			ev.Sysname = sysnameOf(req.Path)
		}
		s.protocol.Log(ev)
	}

	if err := conn.Send(out); err != nil {
		s.logger.Debug("failed to send response", "conn", conn.ConnID(), "error", err)
	}
}

func (s *Server) logError(conn transport.ServerConnection, ev log.Event, sysname string) {
	if s.protocol == nil {
		return
	}
	ev.ConnectionID = conn.ConnID()
	ev.LocalRole = log.RoleDaemon
	ev.RemoteAddr = conn.RemoteAddr()
	ev.Sysname = sysname
	s.protocol.Log(ev)
}

func sysnameOf(path string) string {
	p, err := ParsePath(path)
	if err != nil {
		return ""
	}
	return p.Sysname
}

// errorResponse creates an error response.
func errorResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	return &wire.Response{
		MessageID: msgID,
		Status:    status,
		Payload:   &wire.ErrorPayload{Message: message},
	}
}
