package discovery

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/libratbag/ratbag-go/pkg/version"
)

// Browser finds daemons on mDNS.
type Browser interface {
	// Browse streams daemons as they are found. The channel is closed when
	// ctx is done.
	Browse(ctx context.Context) (<-chan *DaemonService, error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds FindAll.
	// Default: 3 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Logger receives browse failures. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(*DaemonService) bool

// FilterCompatible matches daemons this build can talk to: the same object
// API version and a protocol with the same major version.
func FilterCompatible() FilterFunc {
	return func(svc *DaemonService) bool {
		return version.CheckAPI(svc.APIVersion) == nil && version.CheckProtocol(svc.Protocol) == nil
	}
}

// FilterBrowseResults filters a channel of daemon services.
func FilterBrowseResults(in <-chan *DaemonService, filter FilterFunc) <-chan *DaemonService {
	out := make(chan *DaemonService)
	go func() {
		defer close(out)
		for svc := range in {
			if filter(svc) {
				out <- svc
			}
		}
	}()
	return out
}

// FindAll browses until timeout and returns every daemon found, sorted by
// instance name.
func FindAll(ctx context.Context, b Browser, timeout time.Duration) ([]*DaemonService, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	var found []*DaemonService
	for svc := range results {
		found = append(found, svc)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].InstanceName < found[j].InstanceName })
	return found, nil
}
