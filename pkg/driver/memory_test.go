package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libratbag/ratbag-go/pkg/model"
)

func newDevice(t *testing.T, m *Memory) *model.Device {
	t.Helper()
	d, err := model.NewDevice(model.Info{Sysname: "mouse0"}, []model.ProfileState{
		{IsActive: true, ReportRate: 1000, ReportRates: []uint32{500, 1000}},
		{ReportRate: 1000, ReportRates: []uint32{500, 1000}},
	}, m.ForDevice(model.Info{}))
	require.NoError(t, err)
	return d
}

func TestMemoryRecordsCommit(t *testing.T) {
	m := NewMemory()
	d := newDevice(t, m)

	p1, _ := d.Profile(1)
	require.NoError(t, p1.SetActive())
	require.NoError(t, d.Commit(context.Background()))

	history := m.History()
	require.Len(t, history, 1)
	assert.Len(t, history[0].Profiles, 2)

	eff, ok := m.Effective("mouse0", 1)
	require.True(t, ok)
	assert.True(t, eff.IsActive)

	eff, ok = m.Effective("mouse0", 0)
	require.True(t, ok)
	assert.False(t, eff.IsActive)

	m.Forget("mouse0")
	_, ok = m.Effective("mouse0", 0)
	assert.False(t, ok)
	assert.Empty(t, m.History())
}

func TestMemoryForgetKeepsOtherDevices(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, sysname := range []string{"mouse0", "mouse1", "mouse0"} {
		cs := &model.Changeset{Device: model.Info{Sysname: sysname}, Profiles: []model.ProfileState{{Index: 0}}}
		require.NoError(t, m.Apply(ctx, cs))
	}

	m.Forget("mouse0")
	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, "mouse1", history[0].Device.Sysname)
	_, ok := m.Effective("mouse1", 0)
	assert.True(t, ok)
}

func TestMemoryFailNext(t *testing.T) {
	m := NewMemory()
	d := newDevice(t, m)
	p0, _ := d.Profile(0)
	require.NoError(t, p0.SetReportRate(500))

	m.FailNext(errors.New("usb stall"))
	err := d.Commit(context.Background())
	assert.ErrorIs(t, err, model.ErrCommit)
	assert.True(t, p0.IsDirty())
	assert.Empty(t, m.History())

	require.NoError(t, d.Commit(context.Background()))
	assert.False(t, p0.IsDirty())
	assert.Len(t, m.History(), 1)
}

func TestMemoryHook(t *testing.T) {
	m := NewMemory()
	m.Hook = func(cs *model.Changeset) error {
		for _, p := range cs.Profiles {
			if p.ReportRate == 500 {
				return errors.New("rate rejected by firmware")
			}
		}
		return nil
	}
	d := newDevice(t, m)
	p0, _ := d.Profile(0)
	require.NoError(t, p0.SetReportRate(500))

	assert.ErrorIs(t, d.Commit(context.Background()), model.ErrCommit)
	assert.Equal(t, uint32(500), p0.ReportRate())
	assert.True(t, p0.IsDirty())
}

func TestMemoryCanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Apply(ctx, &model.Changeset{})
	assert.ErrorIs(t, err, context.Canceled)
}
