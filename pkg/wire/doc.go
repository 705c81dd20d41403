// Package wire defines the CBOR wire format of the ratbag object protocol.
//
// Messages are CBOR (RFC 8949) maps with integer keys, carried in
// length-prefixed frames by the transport package.
//
// # Message Types
//
//   - Request: client to daemon (Get, Set, Call, GetAll) addressed by
//     object path and member name
//   - Response: daemon to client, a status code and a payload
//
// # Values
//
// Property values are plain CBOR: unsigned and signed integers, booleans,
// strings and arrays. Composite values have fixed encodings:
//
//   - DPI: an unsigned integer when both axes are equal, otherwise [x, y]
//   - Mapping: {1: action type, 2: value}, where value is a number or a
//     macro as an array of [event type, keycode] pairs
//   - Color: [r, g, b]
//   - object lists: arrays of object paths
package wire
