// Package version holds the object API version and the wire protocol
// version, with parsing and compatibility helpers.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// API is the object API version reported by the manager. Clients refuse to
// talk to a daemon with a different API version.
const API = 2

// Protocol is the wire protocol version implemented by this library.
const Protocol = "1.0"

// ErrIncompatible is returned when a peer speaks a different API or
// protocol major version.
var ErrIncompatible = errors.New("incompatible version")

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// CheckAPI reports whether a daemon announcing api can be used.
func CheckAPI(api uint32) error {
	if api != API {
		return fmt.Errorf("%w: daemon API version %d, client expects %d", ErrIncompatible, api, API)
	}
	return nil
}

// CheckProtocol reports whether a peer speaking the given protocol version
// string can be used.
func CheckProtocol(s string) error {
	peer, err := Parse(s)
	if err != nil {
		return err
	}
	current, _ := Parse(Protocol)
	if !current.Compatible(peer) {
		return fmt.Errorf("%w: protocol %s, want %d.x", ErrIncompatible, peer, current.Major)
	}
	return nil
}
