package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/libratbag/ratbag-go/pkg/version"
)

func TestDaemonTXT(t *testing.T) {
	info := &DaemonInfo{APIVersion: 2, Protocol: "1.0", DeviceCount: 3, Name: "desk"}
	strs := TXTRecordsToStrings(EncodeDaemonTXT(info))

	want := []string{"api=2", "dc=3", "name=desk", "proto=1.0"}
	if strings.Join(strs, ",") != strings.Join(want, ",") {
		t.Fatalf("TXT = %v, want %v", strs, want)
	}

	got, err := DecodeDaemonTXT(StringsToTXTRecords(strs))
	if err != nil {
		t.Fatalf("DecodeDaemonTXT() error = %v", err)
	}
	if *got != *info {
		t.Errorf("decoded %+v, want %+v", got, info)
	}
}

func TestDaemonTXTOptionalFields(t *testing.T) {
	strs := TXTRecordsToStrings(EncodeDaemonTXT(&DaemonInfo{APIVersion: 2, Protocol: "1.0"}))
	for _, s := range strs {
		if strings.HasPrefix(s, TXTKeyName+"=") {
			t.Errorf("empty name encoded as %q", s)
		}
	}

	got, err := DecodeDaemonTXT(TXTRecordMap{TXTKeyAPIVersion: "2", TXTKeyProtocol: "1.3"})
	if err != nil {
		t.Fatalf("DecodeDaemonTXT() error = %v", err)
	}
	if got.DeviceCount != 0 || got.Name != "" {
		t.Errorf("optional fields = %d, %q; want zero", got.DeviceCount, got.Name)
	}
}

func TestDecodeDaemonTXTInvalid(t *testing.T) {
	tests := []struct {
		name    string
		txt     TXTRecordMap
		wantErr error
	}{
		{"MissingAPI", TXTRecordMap{"proto": "1.0"}, ErrMissingRequired},
		{"MissingProto", TXTRecordMap{"api": "2"}, ErrMissingRequired},
		{"BadAPI", TXTRecordMap{"api": "two", "proto": "1.0"}, ErrInvalidTXTRecord},
		{"NegativeAPI", TXTRecordMap{"api": "-1", "proto": "1.0"}, ErrInvalidTXTRecord},
		{"BadProto", TXTRecordMap{"api": "2", "proto": "1"}, ErrInvalidTXTRecord},
		{"BadCount", TXTRecordMap{"api": "2", "proto": "1.0", "dc": "x"}, ErrInvalidTXTRecord},
		{"NegativeCount", TXTRecordMap{"api": "2", "proto": "1.0", "dc": "-4"}, ErrInvalidTXTRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDaemonTXT(tt.txt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeDaemonTXT() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "b=x=y", "", "=orphan"})
	if len(txt) != 3 {
		t.Fatalf("got %d records, want 3: %v", len(txt), txt)
	}
	if txt["a"] != "1" || txt["b"] != "x=y" {
		t.Errorf("values = %v", txt)
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v", v, ok)
	}
}

func TestInstanceNames(t *testing.T) {
	if err := ValidateInstanceName(""); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("empty name: error = %v", err)
	}
	if err := ValidateInstanceName(strings.Repeat("x", 64)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("64 chars: error = %v", err)
	}
	if err := ValidateInstanceName("ratbagd@desk"); err != nil {
		t.Errorf("valid name: error = %v", err)
	}

	if got := DefaultInstanceName("desk"); got != "ratbagd@desk" {
		t.Errorf("DefaultInstanceName = %q", got)
	}
	long := DefaultInstanceName(strings.Repeat("h", 80))
	if len(long) != MaxInstanceNameLen {
		t.Errorf("long name has %d chars, want %d", len(long), MaxInstanceNameLen)
	}
}

func TestDaemonServiceAddress(t *testing.T) {
	tests := []struct {
		addrs []string
		want  string
	}{
		{nil, ""},
		{[]string{"192.168.1.20", "fe80::1"}, "tcp:192.168.1.20:7811"},
		{[]string{"fe80::1"}, "tcp:[fe80::1]:7811"},
	}
	for _, tt := range tests {
		svc := &DaemonService{Port: DefaultPort, Addresses: tt.addrs}
		if got := svc.Address(); got != tt.want {
			t.Errorf("Address(%v) = %q, want %q", tt.addrs, got, tt.want)
		}
	}
}

type staticBrowser struct {
	services []*DaemonService
}

func (b *staticBrowser) Browse(ctx context.Context) (<-chan *DaemonService, error) {
	out := make(chan *DaemonService)
	go func() {
		defer close(out)
		for _, svc := range b.services {
			select {
			case out <- svc:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func TestFindAll(t *testing.T) {
	b := &staticBrowser{services: []*DaemonService{
		{InstanceName: "ratbagd@b", APIVersion: 2},
		{InstanceName: "ratbagd@a", APIVersion: 1},
	}}

	found, err := FindAll(context.Background(), b, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(found) != 2 || found[0].InstanceName != "ratbagd@a" || found[1].InstanceName != "ratbagd@b" {
		t.Errorf("FindAll() = %v", found)
	}
}

func TestFilterBrowseResults(t *testing.T) {
	in := make(chan *DaemonService, 3)
	in <- &DaemonService{InstanceName: "old", APIVersion: 1, Protocol: "1.0"}
	in <- &DaemonService{InstanceName: "current", APIVersion: 2, Protocol: "1.0"}
	in <- &DaemonService{InstanceName: "also-current", APIVersion: 2, Protocol: "1.2"}
	close(in)

	var names []string
	for svc := range FilterBrowseResults(in, FilterCompatible()) {
		names = append(names, svc.InstanceName)
	}
	if strings.Join(names, ",") != "current,also-current" {
		t.Errorf("filtered = %v", names)
	}
}

func TestFilterCompatible(t *testing.T) {
	compatible := FilterCompatible()
	tests := []struct {
		svc  DaemonService
		want bool
	}{
		{DaemonService{APIVersion: version.API, Protocol: version.Protocol}, true},
		{DaemonService{APIVersion: version.API, Protocol: "1.7"}, true},
		{DaemonService{APIVersion: version.API, Protocol: "2.0"}, false},
		{DaemonService{APIVersion: version.API + 1, Protocol: version.Protocol}, false},
		{DaemonService{APIVersion: version.API}, false},
	}
	for _, tt := range tests {
		if got := compatible(&tt.svc); got != tt.want {
			t.Errorf("FilterCompatible(%d, %q) = %v, want %v", tt.svc.APIVersion, tt.svc.Protocol, got, tt.want)
		}
	}
}
