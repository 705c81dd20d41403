package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a tcp ratbagd.
	ServiceType = "_ratbag._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default ratbagd tcp port.
	DefaultPort = 7811
)

// TXT record keys.
const (
	TXTKeyAPIVersion  = "api"
	TXTKeyProtocol    = "proto"
	TXTKeyDeviceCount = "dc"
	TXTKeyName        = "name"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 3 * time.Second

	// DefaultTTL is the DNS record TTL of an advertisement.
	DefaultTTL = 120 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// DaemonInfo is what a daemon advertises about itself.
type DaemonInfo struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Port is the tcp port the daemon listens on.
	Port uint16

	APIVersion  uint32
	Protocol    string
	DeviceCount int

	// Name is an optional human-readable name.
	Name string
}

// DaemonService is a daemon found by browsing.
type DaemonService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	APIVersion  uint32
	Protocol    string
	DeviceCount int
	Name        string
}

// Address returns a transport address for the first known IP, or "" when
// none is known.
func (s *DaemonService) Address() string {
	if len(s.Addresses) == 0 {
		return ""
	}
	return "tcp:" + net.JoinHostPort(s.Addresses[0], strconv.Itoa(int(s.Port)))
}
