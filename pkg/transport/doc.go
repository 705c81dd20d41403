// Package transport moves opaque messages between ratbagd and its clients.
//
// The daemon listens on a unix socket by default; a tcp listener can be
// configured for clients on other hosts. Addresses are written as
// "unix:<path>" or "tcp:<host:port>" (see ParseAddress).
//
// On the stream every message is preceded by its length as a 4-byte
// big-endian integer:
//
//	+--------+--------+--------+--------+------------------+
//	|          length (uint32)          |  CBOR payload    |
//	+--------+--------+--------+--------+------------------+
//
// Messages are limited to DefaultMaxMessageSize unless configured
// otherwise. A frame above the limit ends the connection, since the stream
// cannot be resynchronized. Payloads are decoded by the interaction layer.
//
// Clients dial once. A daemon that is gone shows up as a failed request,
// never as a reconnect.
package transport
