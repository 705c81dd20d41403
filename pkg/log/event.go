package log

import (
	"time"

	"github.com/libratbag/ratbag-go/pkg/wire"
)

// Extension is the conventional file extension of protocol logs.
const Extension = ".rlog"

// Event is one protocol log record. Exactly one of Frame, Message,
// StateChange and Error is set.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"`
	ConnectionID string    `cbor:"2,keyasint"`
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`
	LocalRole    Role      `cbor:"6,keyasint,omitempty"`
	RemoteAddr   string    `cbor:"7,keyasint,omitempty"`

	// Sysname is the device the event concerns, if any.
	Sysname string `cbor:"8,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// enumName returns names[i], or UNKNOWN for values without a name.
func enumName(names []string, i uint8) string {
	if int(i) < len(names) && names[i] != "" {
		return names[i]
	}
	return "UNKNOWN"
}

// Direction is relative to the process that logged the event.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

var directionNames = []string{"IN", "OUT"}

func (d Direction) String() string { return enumName(directionNames, uint8(d)) }

// Layer is where an event was captured: raw frames, decoded messages, or
// the device objects behind them.
type Layer uint8

const (
	LayerTransport Layer = 0
	LayerWire      Layer = 1
	LayerService   Layer = 2
)

var layerNames = []string{"TRANSPORT", "WIRE", "SERVICE"}

func (l Layer) String() string { return enumName(layerNames, uint8(l)) }

// Category classifies events. Value 1 is unassigned so that existing logs
// keep their meaning.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 2
	CategoryError   Category = 3
)

var categoryNames = []string{"MESSAGE", "", "STATE", "ERROR"}

func (c Category) String() string { return enumName(categoryNames, uint8(c)) }

// Role is the side of a connection that logged an event.
type Role uint8

const (
	RoleDaemon Role = 0
	RoleClient Role = 1
)

var roleNames = []string{"DAEMON", "CLIENT"}

func (r Role) String() string { return enumName(roleNames, uint8(r)) }

// FrameEvent is a transport-layer frame. Size includes the length prefix;
// Data holds at most the first few KiB of the payload.
type FrameEvent struct {
	Size      int    `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// MessageEvent is a decoded request or response. Operation, Path and
// Member are set on requests, Status and ProcessingTime on responses.
type MessageEvent struct {
	Type      MessageType     `cbor:"1,keyasint"`
	MessageID uint32          `cbor:"2,keyasint"`
	Operation *wire.Operation `cbor:"3,keyasint,omitempty"`
	Path      string          `cbor:"4,keyasint,omitempty"`
	Member    string          `cbor:"5,keyasint,omitempty"`
	Status    *wire.Status    `cbor:"6,keyasint,omitempty"`
	Payload   any             `cbor:"8,keyasint,omitempty"`

	// ProcessingTime runs from request receipt to response send.
	ProcessingTime *time.Duration `cbor:"9,keyasint,omitempty"`
}

type MessageType uint8

const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

var messageTypeNames = []string{"REQUEST", "RESPONSE"}

func (m MessageType) String() string { return enumName(messageTypeNames, uint8(m)) }

// StateChangeEvent records a connection or device lifecycle step.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

type StateEntity uint8

const (
	StateEntityConnection StateEntity = 0
	// StateEntityDevice covers devices being added, removed or reset.
	StateEntityDevice StateEntity = 1
)

var stateEntityNames = []string{"CONNECTION", "DEVICE"}

func (s StateEntity) String() string { return enumName(stateEntityNames, uint8(s)) }

// ErrorEventData describes a failure. Code carries a wire status when the
// failure has one; Context names the operation that failed.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Code    *int   `cbor:"3,keyasint,omitempty"`
	Context string `cbor:"4,keyasint,omitempty"`
}

// NewRequestEvent builds the wire-layer event of a request.
func NewRequestEvent(connID string, dir Direction, req *wire.Request) Event {
	op := req.Operation
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message: &MessageEvent{
			Type:      MessageTypeRequest,
			MessageID: req.MessageID,
			Operation: &op,
			Path:      req.Path,
			Member:    req.Member,
			Payload:   req.Payload,
		},
	}
}

// NewResponseEvent builds the wire-layer event of a response. A zero
// elapsed time is left out.
func NewResponseEvent(connID string, dir Direction, resp *wire.Response, elapsed time.Duration) Event {
	status := resp.Status
	ev := Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message: &MessageEvent{
			Type:      MessageTypeResponse,
			MessageID: resp.MessageID,
			Status:    &status,
			Payload:   resp.Payload,
		},
	}
	if elapsed > 0 {
		ev.Message.ProcessingTime = &elapsed
	}
	return ev
}

// NewStateEvent builds a state change event.
func NewStateEvent(layer Layer, entity StateEntity, oldState, newState string) Event {
	return Event{
		Timestamp: time.Now(),
		Layer:     layer,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
		},
	}
}

// NewErrorEvent builds an error event for err. A non-nil status is stored
// as the error code.
func NewErrorEvent(layer Layer, err error, context string, status *wire.Status) Event {
	data := &ErrorEventData{Layer: layer, Message: err.Error(), Context: context}
	if status != nil {
		code := int(*status)
		data.Code = &code
	}
	return Event{
		Timestamp: time.Now(),
		Layer:     layer,
		Category:  CategoryError,
		Error:     data,
	}
}
