// Package driver holds the commit targets a device applies its changesets
// to.
package driver

import (
	"context"
	"slices"
	"sync"

	"github.com/libratbag/ratbag-go/pkg/model"
)

// Memory is an Applier that keeps the effective state of every committed
// profile in memory. It stands in for hardware on test devices.
type Memory struct {
	mu sync.Mutex

	// effective holds the last applied state per device and profile index.
	effective map[string]map[uint32]model.ProfileState
	history   []*model.Changeset

	failNext error

	// Hook, when set, runs before a changeset is recorded. A non-nil
	// error rejects the changeset.
	Hook func(cs *model.Changeset) error
}

// NewMemory creates an empty memory driver.
func NewMemory() *Memory {
	return &Memory{
		effective: make(map[string]map[uint32]model.ProfileState),
	}
}

// ForDevice returns m. It has the manager.ApplierFactory signature so one
// memory driver can back every test device.
func (m *Memory) ForDevice(model.Info) model.Applier {
	return m
}

// Apply records cs. It fails without recording anything when the context
// is done, a failure was injected, or Hook rejects the changeset.
func (m *Memory) Apply(ctx context.Context, cs *model.Changeset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	if m.Hook != nil {
		if err := m.Hook(cs); err != nil {
			return err
		}
	}

	dev := m.effective[cs.Device.Sysname]
	if dev == nil {
		dev = make(map[uint32]model.ProfileState)
		m.effective[cs.Device.Sysname] = dev
	}
	copied := &model.Changeset{Device: cs.Device, Profiles: model.CloneProfiles(cs.Profiles)}
	for _, p := range copied.Profiles {
		dev[p.Index] = p
	}
	m.history = append(m.history, copied)
	return nil
}

// FailNext makes the next Apply return err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Effective returns the last applied state of a profile.
func (m *Memory) Effective(sysname string, profile uint32) (model.ProfileState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.effective[sysname][profile]
	if !ok {
		return model.ProfileState{}, false
	}
	return p.Clone(), true
}

// History returns every applied changeset in order.
func (m *Memory) History() []*model.Changeset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Changeset, len(m.history))
	copy(out, m.history)
	return out
}

// Forget drops everything recorded for a device, its history included.
func (m *Memory) Forget(sysname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.effective, sysname)
	m.history = slices.DeleteFunc(m.history, func(cs *model.Changeset) bool {
		return cs.Device.Sysname == sysname
	})
}
