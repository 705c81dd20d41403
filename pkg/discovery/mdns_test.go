package discovery

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
)

func daemonEntry(instance string, text []string, ips ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: Domain}}
	e.HostName = "desk.local."
	e.Port = DefaultPort
	e.Text = text
	for _, ip := range ips {
		parsed := net.ParseIP(ip)
		if parsed.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, parsed)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, parsed)
		}
	}
	return e
}

var daemonText = []string{"api=2", "proto=1.0", "dc=1"}

func TestEntryToDaemon(t *testing.T) {
	svc := entryToDaemon(daemonEntry("ratbagd@desk", daemonText, "10.0.0.5", "fe80::5"))
	if svc == nil {
		t.Fatal("entryToDaemon() = nil")
	}
	if svc.InstanceName != "ratbagd@desk" || svc.Host != "desk.local." || svc.Port != DefaultPort {
		t.Errorf("identity = %q %q %d", svc.InstanceName, svc.Host, svc.Port)
	}
	if svc.APIVersion != 2 || svc.Protocol != "1.0" || svc.DeviceCount != 1 {
		t.Errorf("txt = %d %q %d", svc.APIVersion, svc.Protocol, svc.DeviceCount)
	}
	if len(svc.Addresses) != 2 || svc.Addresses[0] != "10.0.0.5" || svc.Addresses[1] != "fe80::5" {
		t.Errorf("addresses = %v", svc.Addresses)
	}

	if got := entryToDaemon(daemonEntry("printer", []string{"rp=queue"}, "10.0.0.9")); got != nil {
		t.Errorf("foreign entry decoded as %+v", got)
	}
}

func TestAggregate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan *DaemonService, 4)
	done := make(chan struct{})
	go func() {
		aggregate(ctx, entries, removed, out)
		close(done)
	}()

	entries <- daemonEntry("ratbagd@desk", daemonText, "10.0.0.5")
	entries <- daemonEntry("ratbagd@desk", daemonText, "fe80::5")
	entries <- daemonEntry("garbage", nil, "10.0.0.7")
	removed <- daemonEntry("ratbagd@desk", daemonText, "10.0.0.5", "fe80::5")
	entries <- daemonEntry("ratbagd@desk", daemonText, "10.0.0.6")
	entries <- daemonEntry("ratbagd@lab", daemonText, "10.0.1.1")
	close(entries)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("aggregate did not return after entries closed")
	}

	var got []*DaemonService
	for svc := range out {
		got = append(got, svc)
	}
	// desk once, desk again after it vanished, then lab.
	if len(got) != 3 {
		t.Fatalf("got %d services, want 3", len(got))
	}
	if got[0].Addresses[0] != "10.0.0.5" || got[1].Addresses[0] != "10.0.0.6" || got[2].InstanceName != "ratbagd@lab" {
		t.Errorf("services = %+v %+v %+v", got[0], got[1], got[2])
	}
}

func TestAggregateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan *DaemonService)
	done := make(chan struct{})
	go func() {
		aggregate(ctx, make(chan *zeroconf.ServiceEntry), make(chan *zeroconf.ServiceEntry), out)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("aggregate ignored cancellation")
	}
	if _, ok := <-out; ok {
		t.Error("out not closed")
	}
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	if len(addrs) != 2 {
		t.Fatalf("merged = %v", addrs)
	}
	addrs = removeAddresses(addrs, daemonEntry("x", nil, "10.0.0.1"))
	if len(addrs) != 1 || addrs[0] != "10.0.0.2" {
		t.Errorf("after remove = %v", addrs)
	}
}

func TestAdvertiserUpdateWithoutAdvertise(t *testing.T) {
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	if err := a.Update(&DaemonInfo{APIVersion: 2, Protocol: "1.0"}); err != ErrNotAdvertising {
		t.Errorf("Update() error = %v, want %v", err, ErrNotAdvertising)
	}
	if err := a.Advertise(context.Background(), &DaemonInfo{}); err == nil {
		t.Error("Advertise() accepted an empty instance name")
	}
	a.Stop()
}

func TestBrowseFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	b := NewMDNSBrowser(BrowserConfig{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	b.browse = func(context.Context, chan *zeroconf.ServiceEntry, chan *zeroconf.ServiceEntry, []zeroconf.ClientOption) error {
		return errors.New("no multicast interface")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := b.Browse(ctx)
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	for svc := range results {
		t.Errorf("unexpected service %+v", svc)
	}
	if ctx.Err() != nil {
		t.Fatal("results closed only after the deadline")
	}
	if !strings.Contains(logs.String(), "no multicast interface") {
		t.Errorf("browse failure not logged: %q", logs.String())
	}
}

func TestBrowseCanceledIsQuiet(t *testing.T) {
	var logs bytes.Buffer
	b := NewMDNSBrowser(BrowserConfig{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	b.browse = func(ctx context.Context, _ chan *zeroconf.ServiceEntry, _ chan *zeroconf.ServiceEntry, _ []zeroconf.ClientOption) error {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	results, err := b.Browse(ctx)
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	for range results {
	}
	if logs.Len() != 0 {
		t.Errorf("expected no log output, got %q", logs.String())
	}
}
