package discovery

import (
	"context"
	"time"
)

// Advertiser publishes a daemon on mDNS.
type Advertiser interface {
	// Advertise starts advertising info, replacing any earlier
	// advertisement.
	Advertise(ctx context.Context, info *DaemonInfo) error

	// Update replaces the TXT records of the running advertisement.
	Update(info *DaemonInfo) error

	// Stop withdraws the advertisement.
	Stop()
}

// AdvertiserConfig selects where and for how long records are announced.
type AdvertiserConfig struct {
	Interface string        // network interface name; all when empty
	TTL       time.Duration // record lifetime, DefaultTTL when unset
}

func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}
