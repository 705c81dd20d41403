package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/libratbag/ratbag-go/pkg/wire"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.rlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer logger.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	req := NewRequestEvent("a", DirectionIn, &wire.Request{
		MessageID: 1, Operation: wire.OpGet,
		Path:   "/org/freedesktop/ratbag1/device/testdevice0/p0",
		Member: "IsEnabled",
	})
	req.Timestamp = base
	req.Sysname = "testdevice0"
	logger.Log(req)

	resp := NewResponseEvent("a", DirectionOut, &wire.Response{MessageID: 1, Status: wire.StatusUnknownMember}, time.Millisecond)
	resp.Timestamp = base.Add(time.Second)
	resp.Sysname = "testdevice0"
	logger.Log(resp)

	other := stateEvent("b", "CONNECTED")
	other.Timestamp = base.Add(2 * time.Second)
	logger.Log(other)

	return path
}

func readFiltered(t *testing.T, path string, f Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, f)
	if err != nil {
		t.Fatalf("NewFilteredReader: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return events
}

func TestReaderFilters(t *testing.T) {
	path := writeFixture(t)
	out := DirectionOut
	state := CategoryState
	start := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"connection", Filter{ConnectionID: "a"}, 2},
		{"direction", Filter{Direction: &out}, 1},
		{"category", Filter{Category: &state}, 1},
		{"sysname", Filter{Sysname: "testdevice0"}, 2},
		{"path prefix", Filter{PathPrefix: "/org/freedesktop/ratbag1/device/testdevice0"}, 1},
		{"errors only", Filter{ErrorsOnly: true}, 1},
		{"time start", Filter{TimeStart: &start}, 2},
		{"time end", Filter{TimeEnd: &start}, 1},
		{"no match", Filter{Sysname: "hidraw3"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readFiltered(t, path, tt.filter); len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.rlog")); err == nil {
		t.Error("expected error for missing file")
	}
}
