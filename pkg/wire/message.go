package wire

import (
	"errors"
	"fmt"
)

// Request represents a request message from client to daemon.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, never 0
//	  2: operation,    // uint8: 1=Get, 2=Set, 3=Call, 4=GetAll
//	  3: path,         // string: object path
//	  4: member,       // string: property or method name, absent for GetAll
//	  5: payload       // value for Set, argument for Call
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Path      string    `cbor:"3,keyasint"`
	Member    string    `cbor:"4,keyasint,omitempty"`
	Payload   any       `cbor:"5,keyasint,omitempty"`
}

// ErrInvalidRequest is returned for requests that fail Validate.
var ErrInvalidRequest = errors.New("invalid request")

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return errors.New("messageId 0 is reserved")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	if r.Path == "" {
		return errors.New("missing object path")
	}
	if r.Member == "" && r.Operation != OpGetAll {
		return fmt.Errorf("%s requires a member name", r.Operation)
	}
	return nil
}

// Response represents a response message from daemon to client.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint8: 0=success, or error code
//	  3: payload       // value, GetAll map, or ErrorPayload
//	}
type Response struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Status    Status `cbor:"2,keyasint"`
	Payload   any    `cbor:"3,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// ErrorPayload represents additional error information in a response.
//
// CBOR encoding:
//
//	{
//	  1: message  // string: human-readable error message
//	}
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// ExtractErrorMessage returns the message of an error payload in either its
// typed or raw decoded form.
func ExtractErrorMessage(payload any) string {
	switch p := payload.(type) {
	case *ErrorPayload:
		return p.Message
	case ErrorPayload:
		return p.Message
	}
	m, ok := ExtractMap(payload)
	if !ok {
		return ""
	}
	s, _ := m[1].(string)
	return s
}

// GetAllPayload is the payload of a GetAll response: property name to
// value.
type GetAllPayload map[string]any

// ExtractGetAllPayload converts a decoded GetAll payload.
// After a CBOR round-trip it is map[any]any with string keys.
func ExtractGetAllPayload(payload any) (GetAllPayload, bool) {
	switch m := payload.(type) {
	case GetAllPayload:
		return m, true
	case map[string]any:
		return GetAllPayload(m), true
	case map[any]any:
		out := make(GetAllPayload, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// ExtractMap converts an integer-keyed map in typed or raw decoded form.
func ExtractMap(payload any) (map[uint64]any, bool) {
	switch m := payload.(type) {
	case map[uint64]any:
		return m, true
	case map[any]any:
		out := make(map[uint64]any, len(m))
		for k, v := range m {
			switch key := k.(type) {
			case uint64:
				out[key] = v
			case int64:
				if key < 0 {
					return nil, false
				}
				out[uint64(key)] = v
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// ExtractUint converts any non-negative integer form to uint64.
// Decoded CBOR yields uint64; callers in-process may pass narrower types.
func ExtractUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int64:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	default:
		return 0, false
	}
}

// ExtractInt converts any integer form to int64.
func ExtractInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), n <= 1<<63-1
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	default:
		return 0, false
	}
}

// ExtractBool converts a boolean value.
func ExtractBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// ExtractString converts a string value.
func ExtractString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ExtractUintSlice converts an array of non-negative integers.
func ExtractUintSlice(v any) ([]uint64, bool) {
	switch arr := v.(type) {
	case []uint64:
		return arr, true
	case []uint32:
		out := make([]uint64, len(arr))
		for i, n := range arr {
			out[i] = uint64(n)
		}
		return out, true
	case []any:
		out := make([]uint64, len(arr))
		for i, item := range arr {
			n, ok := ExtractUint(item)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// ExtractStringSlice converts an array of strings.
func ExtractStringSlice(v any) ([]string, bool) {
	switch arr := v.(type) {
	case []string:
		return arr, true
	case []any:
		out := make([]string, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
