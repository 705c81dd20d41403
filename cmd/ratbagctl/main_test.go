package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libratbag/ratbag-go/pkg/discovery"
	"github.com/libratbag/ratbag-go/pkg/driver"
	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/manager"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/testdevice"
	"github.com/libratbag/ratbag-go/pkg/transport"
	"github.com/libratbag/ratbag-go/pkg/version"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

const testMouse = `
name: Desk Mouse
profiles:
  - is_active: true
    name: main
    resolutions:
      - {xres: 800, is_active: true, is_default: true, dpi_list: [400, 800, 1600]}
      - {xres: 1600, dpi_list: [400, 800, 1600]}
    leds:
      - {mode: 1, color: [255, 0, 0]}
`

type testDaemon struct {
	addr    string
	mgr     *manager.Manager
	mem     *driver.Memory
	sysname string
}

// startDaemon serves a manager holding one test device on a unix socket.
func startDaemon(t *testing.T) *testDaemon {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	mem := driver.NewMemory()
	mgr := manager.New(manager.Config{Applier: mem.ForDevice, Logger: logger})
	spec, err := testdevice.Parse([]byte(testMouse))
	require.NoError(t, err)
	dev, err := mgr.LoadTestDevice(spec)
	require.NoError(t, err)

	handler := interaction.NewServer(mgr, interaction.WithLogger(logger))
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := transport.NewServer(transport.ServerConfig{
		Address: "unix:" + filepath.Join(t.TempDir(), "ratbagd.sock"),
		OnMessage: func(conn *transport.ServerConn, msg []byte) {
			handler.HandleMessage(ctx, conn, msg)
		},
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = srv.Stop()
	})

	return &testDaemon{addr: srv.Address(), mgr: mgr, mem: mem, sysname: dev.Sysname()}
}

// runCtl runs ratbagctl with args against addr and returns its output.
func runCtl(t *testing.T, addr string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--address", addr}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	d := startDaemon(t)

	out, err := runCtl(t, d.addr, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, d.sysname+":")
	assert.Contains(t, out, "Desk Mouse")
	assert.Contains(t, out, "test:0000:0000:0")
}

func TestListEmpty(t *testing.T) {
	d := startDaemon(t)
	d.mgr.Reset()

	out, err := runCtl(t, d.addr, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No devices.")
}

func TestShow(t *testing.T) {
	d := startDaemon(t)

	out, err := runCtl(t, d.addr, "", "show", d.sysname)
	require.NoError(t, err)
	assert.Contains(t, out, model.DevicePath(d.sysname)+" [Device]")
	assert.Contains(t, out, `Name: "Desk Mouse"`)
	assert.Contains(t, out, "Resolution: 800")
	assert.Contains(t, out, "Resolution: 1600")
	assert.Contains(t, out, "Mode: solid")
	assert.Contains(t, out, "Color: #ff0000")
}

func TestShowWithAccess(t *testing.T) {
	d := startDaemon(t)

	out, err := runCtl(t, d.addr, "", "--access", "show", d.sysname+"/p0/r0")
	require.NoError(t, err)
	assert.Contains(t, out, "Resolution: 800 (rw)")
	assert.Contains(t, out, "IsActive: true (r)")
}

func TestGet(t *testing.T) {
	d := startDaemon(t)

	out, err := runCtl(t, d.addr, "", "get", d.sysname+"/p0/r0/dpis")
	require.NoError(t, err)
	assert.Equal(t, "[400, 800, 1600]\n", out)

	out, err = runCtl(t, d.addr, "", "get", d.sysname+"/p0/l0/mode")
	require.NoError(t, err)
	assert.Equal(t, "solid\n", out)

	out, err = runCtl(t, d.addr, "", "--raw", "get", d.sysname+"/p0/l0/mode")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestSetAndCommit(t *testing.T) {
	d := startDaemon(t)

	out, err := runCtl(t, d.addr, "", "set", d.sysname+"/p0/r0/dpi", "1600")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	out, err = runCtl(t, d.addr, "", "get", d.sysname+"/IsDirty")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = runCtl(t, d.addr, "", "commit", d.sysname+"/p0")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed "+model.DevicePath(d.sysname))

	state, ok := d.mem.Effective(d.sysname, 0)
	require.True(t, ok)
	assert.Equal(t, model.DPI{X: 1600, Y: 1600}, state.Resolutions[0].DPI)
}

func TestSetValidationError(t *testing.T) {
	d := startDaemon(t)

	_, err := runCtl(t, d.addr, "", "set", d.sysname+"/p0/r0/dpi", "999")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.True(t, strings.HasPrefix(err.Error(), "validation: "), err.Error())
}

func TestSetReadOnly(t *testing.T) {
	d := startDaemon(t)

	_, err := runCtl(t, d.addr, "", "set", d.sysname+"/p0/r0/IsActive", "true")
	require.Error(t, err)
}

func TestCall(t *testing.T) {
	d := startDaemon(t)

	out, err := runCtl(t, d.addr, "", "call", d.sysname+"/p0/r1/SetActive")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = runCtl(t, d.addr, "", "get", d.sysname+"/p0/r1/active")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestLoadTestDevice(t *testing.T) {
	d := startDaemon(t)

	file := filepath.Join(t.TempDir(), "mouse.yaml")
	require.NoError(t, os.WriteFile(file, []byte(testMouse), 0o644))

	out, err := runCtl(t, d.addr, "", "load-test-device", file)
	require.NoError(t, err)
	assert.Contains(t, out, model.RootPath+"/device/"+manager.TestDevicePrefix)

	out, err = runCtl(t, d.addr, testMouse, "load-test-device", "-")
	require.NoError(t, err)
	assert.Contains(t, out, model.RootPath+"/device/")

	out, err = runCtl(t, d.addr, "", "load-test-device")
	require.NoError(t, err)
	assert.Contains(t, out, model.RootPath+"/device/")

	assert.Len(t, d.mgr.Devices(), 4)
}

func TestLoadTestDeviceInvalid(t *testing.T) {
	d := startDaemon(t)

	_, err := runCtl(t, d.addr, "name: [unterminated", "load-test-device", "-")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSpec)
}

func TestResetCommands(t *testing.T) {
	d := startDaemon(t)

	_, err := runCtl(t, d.addr, "", "set", d.sysname+"/p0/name", "changed")
	require.NoError(t, err)

	out, err := runCtl(t, d.addr, "", "reset-test-device")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = runCtl(t, d.addr, "", "get", d.sysname+"/p0/name")
	require.NoError(t, err)
	assert.Equal(t, "\"main\"\n", out)

	_, err = runCtl(t, d.addr, "", "reset")
	require.NoError(t, err)
	assert.Empty(t, d.mgr.Devices())
}

func TestCommitNeedsDevice(t *testing.T) {
	d := startDaemon(t)

	_, err := runCtl(t, d.addr, "", "commit", "manager")
	require.Error(t, err)
}

func TestConnectionFailure(t *testing.T) {
	addr := "unix:" + filepath.Join(t.TempDir(), "missing.sock")

	_, err := runCtl(t, addr, "", "list")
	require.Error(t, err)
	var connErr *model.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func newTestShell(t *testing.T, d *testDaemon) (*shell, *bytes.Buffer) {
	t.Helper()
	client, err := interaction.Connect(context.Background(), d.addr, transport.ClientConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var out bytes.Buffer
	return newShell(newSession(client, &out, strings.NewReader("")), nil, &out), &out
}

func TestShellExecute(t *testing.T) {
	d := startDaemon(t)
	sh, out := newTestShell(t, d)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"help", "ratbag Commands:"},
		{"list", d.sysname + ":"},
		{"get " + d.sysname + "/p0/r0/dpi", "800"},
		{"set " + d.sysname + "/p0/r0/dpi 400", "OK"},
		{"set " + d.sysname + "/p0/r0/dpi 999", "Error: validation:"},
		{"set " + d.sysname, "Usage: set <path> <value>"},
		{"get", "Usage: get <path>"},
		{"commit " + d.sysname, "Committed"},
		{"load -", "not supported"},
		{"frobnicate", "Unknown command: frobnicate"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			quit := sh.execute(ctx, tt.line)
			assert.False(t, quit)
			assert.Contains(t, out.String(), tt.want)
		})
	}

	out.Reset()
	assert.False(t, sh.execute(ctx, "   "))
	assert.Empty(t, out.String())

	assert.True(t, sh.execute(ctx, "quit"))
}

type fakeBrowser struct {
	services []*discovery.DaemonService
}

func (f *fakeBrowser) Browse(ctx context.Context) (<-chan *discovery.DaemonService, error) {
	out := make(chan *discovery.DaemonService, len(f.services))
	for _, s := range f.services {
		out <- s
	}
	close(out)
	return out, nil
}

func TestRunDiscover(t *testing.T) {
	b := &fakeBrowser{services: []*discovery.DaemonService{
		{InstanceName: "ratbagd@desk", Port: 7811, Addresses: []string{"192.168.1.20"}, APIVersion: version.API, Protocol: version.Protocol, DeviceCount: 2, Name: "desk"},
		{InstanceName: "ratbagd@old", Port: 7811, Host: "old.local", APIVersion: version.API - 1},
	}}

	var out bytes.Buffer
	require.NoError(t, runDiscover(context.Background(), b, time.Second, false, &out))
	assert.Contains(t, out.String(), "INSTANCE")
	assert.Contains(t, out.String(), "tcp:192.168.1.20:7811")
	assert.NotContains(t, out.String(), "ratbagd@old")
	assert.Contains(t, out.String(), "1 incompatible hidden")

	out.Reset()
	require.NoError(t, runDiscover(context.Background(), b, time.Second, true, &out))
	assert.Contains(t, out.String(), "ratbagd@old")
	assert.Contains(t, out.String(), "old.local")
}

func TestRunDiscoverNothing(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runDiscover(context.Background(), &fakeBrowser{}, time.Second, false, &out))
	assert.Contains(t, out.String(), "No daemons found.")
}

func TestLogCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon"+log.Extension)
	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)
	op := wire.OpGet
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: "0123456789",
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message:      &log.MessageEvent{Type: log.MessageTypeRequest, MessageID: 1, Operation: &op, Path: model.RootPath, Member: "Devices"},
	})
	logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		Sysname:   "testdevice0",
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDevice,
			NewState: "added",
		},
	})
	require.NoError(t, logger.Close())

	// The log commands never dial, so any address will do.
	addr := "unix:/nonexistent.sock"

	out, err := runCtl(t, addr, "", "log", "view", "--layer", "wire", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[conn:01234567]")
	assert.NotContains(t, out, "testdevice0")

	out, err = runCtl(t, addr, "", "log", "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Events: 2")

	out, err = runCtl(t, addr, "", "log", "export", "--format", "csv", "--device", "testdevice0", path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	filtered := filepath.Join(t.TempDir(), "filtered"+log.Extension)
	out, err = runCtl(t, addr, "", "log", "filter", "-o", filtered, "--category", "state", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Filtered 1 events")

	_, err = runCtl(t, addr, "", "log", "view", "--layer", "bogus", path)
	require.Error(t, err)
}
