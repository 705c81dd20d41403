package interaction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libratbag/ratbag-go/pkg/driver"
	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/manager"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

const sampleDevice = `
name: Sample Mouse
profiles:
  - is_active: true
    name: gaming
    resolutions:
      - {xres: 800, is_active: true, is_default: true, dpi_list: [400, 800, 1600]}
      - {xres: 1600, dpi_list: [400, 800, 1600]}
      - {xres: 800, yres: 1600}
    buttons:
      - {}
      - {action_type: key, key: 30}
      - {action_type: macro, macro: [[1, 30], [2, 30]]}
    leds:
      - {mode: 1, color: [255, 0, 0]}
  - name: office
  - is_disabled: true
`

type fixture struct {
	mgr    *manager.Manager
	mem    *driver.Memory
	srv    *Server
	device string
	msgID  uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := driver.NewMemory()
	mgr := manager.New(manager.Config{Applier: mem.ForDevice})
	f := &fixture{mgr: mgr, mem: mem, srv: NewServer(mgr)}

	resp := f.do(wire.OpCall, model.RootPath, "LoadTestDevice", sampleDevice)
	require.Equal(t, wire.StatusSuccess, resp.Status, wire.ExtractErrorMessage(resp.Payload))
	f.device = resp.Payload.(string)
	t.Cleanup(mgr.Reset)
	return f
}

func (f *fixture) do(op wire.Operation, path, member string, payload any) *wire.Response {
	f.msgID++
	return f.srv.HandleRequest(context.Background(), &wire.Request{
		MessageID: f.msgID,
		Operation: op,
		Path:      path,
		Member:    member,
		Payload:   payload,
	})
}

func (f *fixture) get(t *testing.T, path, member string) any {
	t.Helper()
	resp := f.do(wire.OpGet, path, member, nil)
	require.Equal(t, wire.StatusSuccess, resp.Status, "%s.%s: %s", path, member, wire.ExtractErrorMessage(resp.Payload))
	return resp.Payload
}

func TestHandleRequestEchoesMessageID(t *testing.T) {
	f := newFixture(t)
	resp := f.srv.HandleRequest(context.Background(), &wire.Request{
		MessageID: 4242, Operation: wire.OpGet, Path: model.RootPath, Member: "APIVersion",
	})
	assert.Equal(t, uint32(4242), resp.MessageID)
	assert.Equal(t, uint32(2), resp.Payload)
}

func TestManagerMembers(t *testing.T) {
	f := newFixture(t)

	devices := f.get(t, model.RootPath, "Devices").([]string)
	assert.Contains(t, devices, f.device)

	resp := f.do(wire.OpCall, model.RootPath, "LoadTestDevice", "profiles: [{is_active: true}, {is_active: true}]")
	assert.Equal(t, wire.StatusSpec, resp.Status)

	resp = f.do(wire.OpCall, model.RootPath, "LoadTestDevice", uint64(3))
	assert.Equal(t, wire.StatusInvalidArgs, resp.Status)

	// A null argument loads the default device.
	resp = f.do(wire.OpCall, model.RootPath, "LoadTestDevice", nil)
	require.Equal(t, wire.StatusSuccess, resp.Status)
	empty := resp.Payload.(string)
	profiles := f.get(t, empty, "Profiles").([]string)
	require.Len(t, profiles, 1)
	assert.Equal(t, true, f.get(t, profiles[0], "Disabled"))
	assert.Equal(t, false, f.get(t, profiles[0], "IsActive"))

	resp = f.do(wire.OpCall, model.RootPath, "Reset", nil)
	require.Equal(t, wire.StatusSuccess, resp.Status)
	assert.Empty(t, f.get(t, model.RootPath, "Devices"))

	resp = f.do(wire.OpGet, f.device, "Name", nil)
	assert.Equal(t, wire.StatusUnknownObject, resp.Status)
}

func TestDeviceMembers(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Sample Mouse", f.get(t, f.device, "Name"))
	assert.Equal(t, "test:0000:0000:0", f.get(t, f.device, "Model"))
	assert.Equal(t, "", f.get(t, f.device, "FirmwareVersion"))
	assert.Equal(t, []string{f.device + "/p0", f.device + "/p1", f.device + "/p2"}, f.get(t, f.device, "Profiles"))
}

func TestProfileMembers(t *testing.T) {
	f := newFixture(t)
	p0, p1, p2 := f.device+"/p0", f.device+"/p1", f.device+"/p2"

	assert.Equal(t, uint32(0), f.get(t, p0, "Index"))
	assert.Equal(t, "gaming", f.get(t, p0, "Name"))
	assert.Equal(t, true, f.get(t, p0, "IsActive"))
	assert.Equal(t, uint32(1000), f.get(t, p0, "ReportRate"))
	assert.Equal(t, []uint32{125, 250, 500, 1000}, f.get(t, p0, "ReportRates"))
	assert.Len(t, f.get(t, p0, "Resolutions"), 3)
	assert.Len(t, f.get(t, p0, "Buttons"), 3)
	assert.Len(t, f.get(t, p0, "Leds"), 1)

	assert.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, p0, "ReportRate", uint64(500)).Status)
	assert.Equal(t, uint32(500), f.get(t, p0, "ReportRate"))
	assert.Equal(t, true, f.get(t, p0, "IsDirty"))

	assert.Equal(t, wire.StatusValidation, f.do(wire.OpSet, p0, "ReportRate", uint64(333)).Status)
	assert.Equal(t, wire.StatusInvalidArgs, f.do(wire.OpSet, p0, "ReportRate", "fast").Status)
	assert.Equal(t, wire.StatusInvalidArgs, f.do(wire.OpSet, p0, "ReportRate", int64(-1)).Status)

	assert.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, p1, "Name", "renamed").Status)
	assert.Equal(t, "renamed", f.get(t, p1, "Name"))

	assert.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, p0, "AngleSnapping", int64(1)).Status)
	assert.Equal(t, int32(1), f.get(t, p0, "AngleSnapping"))

	// Activating a disabled profile is a state error and changes nothing.
	assert.Equal(t, wire.StatusState, f.do(wire.OpCall, p2, "SetActive", nil).Status)
	assert.Equal(t, true, f.get(t, p0, "IsActive"))

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpCall, p1, "SetActive", nil).Status)
	assert.Equal(t, false, f.get(t, p0, "IsActive"))
	assert.Equal(t, true, f.get(t, p1, "IsActive"))

	// Disabling the active profile clears IsActive.
	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, p1, "Disabled", true).Status)
	assert.Equal(t, false, f.get(t, p1, "IsActive"))
}

func TestResolutionMembers(t *testing.T) {
	f := newFixture(t)
	r0, r1, r2 := f.device+"/p0/r0", f.device+"/p0/r1", f.device+"/p0/r2"

	assert.Equal(t, uint32(800), f.get(t, r0, "Resolution"))
	assert.Equal(t, []uint32{400, 800, 1600}, f.get(t, r0, "Resolutions"))

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, r0, "Resolution", uint64(1600)).Status)
	assert.Equal(t, uint32(1600), f.get(t, r0, "Resolution"))

	resp := f.do(wire.OpSet, r0, "Resolution", uint64(1234))
	assert.Equal(t, wire.StatusValidation, resp.Status)
	assert.Equal(t, uint32(1600), f.get(t, r0, "Resolution"))

	// Separate axes report and accept pairs.
	assert.Equal(t, []uint32{800, 1600}, f.get(t, r2, "Resolution"))
	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, r2, "Resolution", []any{uint64(400), uint64(1200)}).Status)
	assert.Equal(t, []uint32{400, 1200}, f.get(t, r2, "Resolution"))

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpCall, r1, "SetActive", nil).Status)
	assert.Equal(t, false, f.get(t, r0, "IsActive"))
	assert.Equal(t, true, f.get(t, r1, "IsActive"))
	assert.Equal(t, true, f.get(t, r0, "IsDefault"))

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, r2, "IsDisabled", true).Status)
	assert.Equal(t, wire.StatusState, f.do(wire.OpCall, r2, "SetDefault", nil).Status)
	assert.Equal(t, wire.StatusState, f.do(wire.OpSet, r1, "IsDisabled", true).Status)
}

func TestButtonMembers(t *testing.T) {
	f := newFixture(t)
	b0, b1, b2 := f.device+"/p0/b0", f.device+"/p0/b1", f.device+"/p0/b2"

	m, err := DecodeMapping(f.get(t, b1, "Mapping"))
	require.NoError(t, err)
	assert.Equal(t, model.Mapping{Type: 3, Value: 30}, m)

	m, err = DecodeMapping(f.get(t, b2, "Mapping"))
	require.NoError(t, err)
	assert.Len(t, m.Macro, 2)

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, b0, "Mapping", map[any]any{uint64(1): uint64(3), uint64(2): uint64(44)}).Status)
	m, err = DecodeMapping(f.get(t, b0, "Mapping"))
	require.NoError(t, err)
	assert.Equal(t, model.Mapping{Type: 3, Value: 44}, m)

	assert.Equal(t, wire.StatusValidation, f.do(wire.OpSet, b0, "Mapping", map[any]any{uint64(1): uint64(1000)}).Status)
	assert.Equal(t, wire.StatusInvalidArgs, f.do(wire.OpSet, b0, "Mapping", "key").Status)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, f.get(t, b0, "ActionTypes"))
}

func TestLedMembers(t *testing.T) {
	f := newFixture(t)
	l0 := f.device + "/p0/l0"

	assert.Equal(t, uint32(1), f.get(t, l0, "Mode"))
	assert.Equal(t, []uint32{255, 0, 0}, f.get(t, l0, "Color"))
	assert.Equal(t, uint32(1), f.get(t, l0, "ColorDepth"))

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, l0, "Color", []any{uint64(0), uint64(128), uint64(255)}).Status)
	assert.Equal(t, []uint32{0, 128, 255}, f.get(t, l0, "Color"))
	assert.Equal(t, wire.StatusValidation, f.do(wire.OpSet, l0, "SecondaryColor", []any{uint64(256), uint64(0), uint64(0)}).Status)
	assert.Equal(t, wire.StatusInvalidArgs, f.do(wire.OpSet, l0, "TertiaryColor", []any{uint64(1)}).Status)

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, l0, "Brightness", uint64(200)).Status)
	assert.Equal(t, wire.StatusValidation, f.do(wire.OpSet, l0, "Brightness", uint64(900)).Status)
	assert.Equal(t, uint32(200), f.get(t, l0, "Brightness"))
	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, l0, "EffectDuration", uint64(500)).Status)
	assert.Equal(t, wire.StatusValidation, f.do(wire.OpSet, l0, "EffectDuration", uint64(20000)).Status)
	assert.Equal(t, uint32(500), f.get(t, l0, "EffectDuration"))

	assert.Equal(t, wire.StatusValidation, f.do(wire.OpSet, l0, "Mode", uint64(2)).Status)
}

func TestDispatchErrors(t *testing.T) {
	f := newFixture(t)
	p0 := f.device + "/p0"

	tests := []struct {
		name   string
		op     wire.Operation
		path   string
		member string
		want   wire.Status
	}{
		{"bad path", wire.OpGet, "/nope", "Name", wire.StatusUnknownObject},
		{"missing profile", wire.OpGet, f.device + "/p9", "Name", wire.StatusUnknownObject},
		{"missing led", wire.OpGet, p0 + "/l5", "Mode", wire.StatusUnknownObject},
		{"unknown member", wire.OpGet, p0, "Colour", wire.StatusUnknownMember},
		{"read only", wire.OpSet, p0, "IsActive", wire.StatusReadOnly},
		{"get method", wire.OpGet, p0, "SetActive", wire.StatusUnsupported},
		{"call property", wire.OpCall, p0, "Name", wire.StatusUnsupported},
		{"set method", wire.OpSet, f.device, "Commit", wire.StatusUnsupported},
		{"no member", wire.OpGet, p0, "", wire.StatusInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(tt.op, tt.path, tt.member, true)
			assert.Equal(t, tt.want, resp.Status)
			assert.NotEmpty(t, wire.ExtractErrorMessage(resp.Payload))
		})
	}
}

func TestGetAll(t *testing.T) {
	f := newFixture(t)
	resp := f.do(wire.OpGetAll, f.device+"/p0/r0", "", nil)
	require.Equal(t, wire.StatusSuccess, resp.Status)

	all, ok := wire.ExtractGetAllPayload(resp.Payload)
	require.True(t, ok)
	assert.Equal(t, uint32(800), all["Resolution"])
	assert.Equal(t, true, all["IsActive"])
	assert.NotContains(t, all, "SetActive")
}

func TestCommitOverProtocol(t *testing.T) {
	f := newFixture(t)
	p0 := f.device + "/p0"

	// Nothing dirty: no changeset reaches the driver.
	require.Equal(t, wire.StatusSuccess, f.do(wire.OpCall, f.device, "Commit", nil).Status)
	assert.Empty(t, f.mem.History())

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, p0, "ReportRate", uint64(250)).Status)
	f.mem.FailNext(errors.New("usb stall"))
	resp := f.do(wire.OpCall, f.device, "Commit", nil)
	assert.Equal(t, wire.StatusCommit, resp.Status)
	assert.Contains(t, wire.ExtractErrorMessage(resp.Payload), "usb stall")
	assert.Equal(t, true, f.get(t, p0, "IsDirty"))
	assert.Equal(t, uint32(250), f.get(t, p0, "ReportRate"))

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpCall, f.device, "Commit", nil).Status)
	assert.Equal(t, false, f.get(t, p0, "IsDirty"))
	assert.Equal(t, false, f.get(t, f.device, "IsDirty"))

	sysname := f.mgr.Devices()[0].Sysname()
	eff, ok := f.mem.Effective(sysname, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(250), eff.ReportRate)
}

func TestResetTestDeviceOverProtocol(t *testing.T) {
	f := newFixture(t)
	p0 := f.device + "/p0"

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpSet, p0, "Name", "scratch").Status)
	require.Equal(t, wire.StatusSuccess, f.do(wire.OpCall, f.device+"/p1", "SetActive", nil).Status)

	require.Equal(t, wire.StatusSuccess, f.do(wire.OpCall, model.RootPath, "ResetTestDevice", nil).Status)
	assert.Equal(t, "gaming", f.get(t, p0, "Name"))
	assert.Equal(t, true, f.get(t, p0, "IsActive"))
	assert.Equal(t, false, f.get(t, p0, "IsDirty"))
	assert.Equal(t, false, f.get(t, f.device+"/p1", "IsActive"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want wire.Status
	}{
		{nil, wire.StatusSuccess},
		{&model.ValidationError{Entity: "x", Property: "y", Err: errors.New("bad")}, wire.StatusValidation},
		{&model.StateError{Entity: "x", Operation: "SetActive", Reason: "disabled"}, wire.StatusState},
		{&model.SpecError{Path: "profiles[0]", Err: errors.New("bad")}, wire.StatusSpec},
		{&model.CommitError{Device: "d", Err: errors.New("io")}, wire.StatusCommit},
		{fmt.Errorf("wrapped: %w", model.ErrNotFound), wire.StatusUnknownObject},
		{wire.ErrInvalidValue, wire.StatusInvalidArgs},
		{errors.New("boom"), wire.StatusInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

type fakeConn struct {
	sent [][]byte
}

func (c *fakeConn) RemoteAddr() string     { return "unix:test" }
func (c *fakeConn) ConnID() string         { return "conn-1" }
func (c *fakeConn) Send(data []byte) error { c.sent = append(c.sent, data); return nil }
func (c *fakeConn) Close() error           { return nil }

func TestHandleMessage(t *testing.T) {
	f := newFixture(t)
	conn := &fakeConn{}

	reply := func(t *testing.T) *wire.Response {
		t.Helper()
		require.NotEmpty(t, conn.sent)
		resp, err := wire.DecodeResponse(conn.sent[len(conn.sent)-1])
		require.NoError(t, err)
		return resp
	}

	t.Run("garbage", func(t *testing.T) {
		f.srv.HandleMessage(context.Background(), conn, []byte{0xff, 0x00})
		resp := reply(t)
		assert.Equal(t, uint32(0), resp.MessageID)
		assert.Equal(t, wire.StatusInvalidArgs, resp.Status)
	})

	t.Run("invalid request keeps id", func(t *testing.T) {
		data, err := wire.Marshal(&wire.Request{MessageID: 9, Operation: wire.OpGet, Path: model.RootPath})
		require.NoError(t, err)
		f.srv.HandleMessage(context.Background(), conn, data)
		resp := reply(t)
		assert.Equal(t, uint32(9), resp.MessageID)
		assert.Equal(t, wire.StatusInvalidArgs, resp.Status)
	})

	t.Run("get", func(t *testing.T) {
		data, err := wire.EncodeRequest(&wire.Request{MessageID: 10, Operation: wire.OpGet, Path: f.device, Member: "Name"})
		require.NoError(t, err)
		f.srv.HandleMessage(context.Background(), conn, data)
		resp := reply(t)
		assert.Equal(t, uint32(10), resp.MessageID)
		assert.Equal(t, wire.StatusSuccess, resp.Status)
		assert.Equal(t, "Sample Mouse", resp.Payload)
	})
}

func TestHandleMessageLogsErrors(t *testing.T) {
	f := newFixture(t)
	rec := &recordingLogger{}
	f.srv = NewServer(f.mgr, WithProtocolLogger(rec))
	conn := &fakeConn{}
	ctx := context.Background()

	f.srv.HandleMessage(ctx, conn, []byte{0xff, 0x00})

	set, err := wire.EncodeRequest(&wire.Request{MessageID: 1, Operation: wire.OpSet, Path: f.device + "/p0", Member: "ReportRate", Payload: uint64(500)})
	require.NoError(t, err)
	f.srv.HandleMessage(ctx, conn, set)
	f.mem.FailNext(errors.New("usb stall"))
	commit, err := wire.EncodeRequest(&wire.Request{MessageID: 2, Operation: wire.OpCall, Path: f.device, Member: "Commit"})
	require.NoError(t, err)
	f.srv.HandleMessage(ctx, conn, commit)

	var errs []log.Event
	for _, ev := range rec.events {
		if ev.Category == log.CategoryError {
			errs = append(errs, ev)
		}
	}
	require.Len(t, errs, 2)

	assert.Equal(t, log.LayerWire, errs[0].Error.Layer)
	assert.Equal(t, "conn-1", errs[0].ConnectionID)

	assert.Equal(t, log.LayerService, errs[1].Error.Layer)
	assert.Equal(t, "Commit", errs[1].Error.Context)
	assert.Contains(t, errs[1].Error.Message, "usb stall")
	require.NotNil(t, errs[1].Error.Code)
	assert.Equal(t, int(wire.StatusCommit), *errs[1].Error.Code)
	assert.Equal(t, f.mgr.Devices()[0].Sysname(), errs[1].Sysname)
}
