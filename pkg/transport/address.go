package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// DefaultSocketPath is where the daemon listens when no address is configured.
const DefaultSocketPath = "/run/ratbagd/ratbagd.sock"

// DefaultAddress is DefaultSocketPath in address form.
const DefaultAddress = "unix:" + DefaultSocketPath

// ErrInvalidAddress indicates an address that cannot be parsed.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a parsed listen or dial address.
//
// Accepted forms:
//
//	unix:/run/ratbagd/ratbagd.sock
//	/run/ratbagd/ratbagd.sock        (bare path, unix)
//	tcp:127.0.0.1:7654
//	tcp:[::1]:7654
type Address struct {
	Network string // "unix" or "tcp"
	Addr    string
}

// ParseAddress parses an address string.
func ParseAddress(s string) (Address, error) {
	switch {
	case s == "":
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	case strings.HasPrefix(s, "unix:"):
		path := strings.TrimPrefix(s, "unix:")
		if path == "" {
			return Address{}, fmt.Errorf("%w: %q has no socket path", ErrInvalidAddress, s)
		}
		return Address{Network: "unix", Addr: path}, nil
	case strings.HasPrefix(s, "tcp:"):
		hostport := strings.TrimPrefix(s, "tcp:")
		if _, _, err := net.SplitHostPort(hostport); err != nil {
			return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
		}
		return Address{Network: "tcp", Addr: hostport}, nil
	case strings.HasPrefix(s, "/") || strings.HasPrefix(s, "."):
		return Address{Network: "unix", Addr: s}, nil
	default:
		return Address{}, fmt.Errorf("%w: %q (want unix:<path> or tcp:<host:port>)", ErrInvalidAddress, s)
	}
}

// String returns the address in its parseable form.
func (a Address) String() string {
	return a.Network + ":" + a.Addr
}

// IsUnix reports whether the address is a unix socket.
func (a Address) IsUnix() bool {
	return a.Network == "unix"
}

// removeStaleSocket deletes a leftover unix socket file. A path that exists
// but is not a socket is left alone and reported.
func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	// A live daemon still answers on the socket.
	if c, err := net.Dial("unix", path); err == nil {
		c.Close()
		return fmt.Errorf("%s is in use by another daemon", path)
	}
	return os.Remove(path)
}
