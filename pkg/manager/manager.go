// Package manager is the process-wide device registry. It owns every
// registered device and the test-only load and reset lifecycle.
package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/testdevice"
	"github.com/libratbag/ratbag-go/pkg/version"
)

// Manager errors.
var (
	ErrDeviceExists  = errors.New("device already registered")
	ErrNotTestDevice = errors.New("not a test device")
)

// TestDevicePrefix is the sysname prefix of devices loaded from a
// description.
const TestDevicePrefix = "testdevice"

// ApplierFactory returns the applier for a newly registered device.
type ApplierFactory func(info model.Info) model.Applier

// Config configures a Manager.
type Config struct {
	// Applier builds the commit target of each test device. Nil means
	// commits only clear dirty flags.
	Applier ApplierFactory

	// Logger receives lifecycle events. Nil means slog.Default().
	Logger *slog.Logger
}

type entry struct {
	device *model.Device

	// pristine is the graph built from the last description; nil for live
	// devices.
	pristine []model.ProfileState
}

// Manager holds the ordered set of registered devices.
type Manager struct {
	mu sync.RWMutex

	devices map[string]*entry
	order   []string

	// seq numbers test devices. It is never reset, so a sysname is not
	// reused for the lifetime of the manager, even across Reset.
	seq atomic.Uint64

	newApplier ApplierFactory
	logger     *slog.Logger

	onDeviceAdded    func(d *model.Device)
	onDeviceRemoved  func(sysname string)
	onDeviceRestored func(sysname string)
}

// New creates an empty manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		devices:    make(map[string]*entry),
		newApplier: cfg.Applier,
		logger:     logger,
	}
}

// APIVersion returns the object API version.
func (m *Manager) APIVersion() uint32 {
	return version.API
}

// LoadTestDevice builds a device from spec and registers it next to the
// existing devices. The whole description is checked before anything is
// registered; on failure a *model.SpecError is returned and the manager is
// unchanged.
func (m *Manager) LoadTestDevice(spec *testdevice.Spec) (*model.Device, error) {
	if spec == nil {
		spec = &testdevice.Spec{}
	}
	pristine, err := spec.Build()
	if err != nil {
		return nil, err
	}

	sysname := fmt.Sprintf("%s%d", TestDevicePrefix, m.seq.Add(1)-1)
	info := spec.Info(sysname)
	var applier model.Applier
	if m.newApplier != nil {
		applier = m.newApplier(info)
	}
	dev, err := model.NewDevice(info, pristine, applier)
	if err != nil {
		return nil, err
	}

	if err := m.register(&entry{device: dev, pristine: model.CloneProfiles(pristine)}); err != nil {
		return nil, err
	}
	m.logger.Info("test device loaded", "sysname", sysname, "name", info.Name, "profiles", len(pristine))
	return dev, nil
}

// AddDevice registers a live device.
func (m *Manager) AddDevice(d *model.Device) error {
	if err := m.register(&entry{device: d}); err != nil {
		return err
	}
	m.logger.Info("device added", "sysname", d.Sysname(), "name", d.Name(), "model", d.Model())
	return nil
}

// RemoveDevice unregisters a device of either kind.
func (m *Manager) RemoveDevice(sysname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[sysname]; !ok {
		return fmt.Errorf("%w: device %s", model.ErrNotFound, sysname)
	}
	m.unregisterLocked(sysname)
	m.logger.Info("device removed", "sysname", sysname)
	return nil
}

// Reset removes every test device. Live devices stay registered. Calling it
// with no test devices is a no-op.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for _, sysname := range slices.Clone(m.order) {
		if m.devices[sysname].pristine != nil {
			m.unregisterLocked(sysname)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("test devices reset", "removed", removed)
	}
}

// ResetTestDevice restores every test device to the graph its description
// produced: same indices, same values, no dirty flags. Device objects and
// their paths are kept.
func (m *Manager) ResetTestDevice() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sysname := range m.order {
		e := m.devices[sysname]
		if e.pristine == nil {
			continue
		}
		if err := m.restoreLocked(e); err != nil {
			return fmt.Errorf("restore %s: %w", sysname, err)
		}
	}
	return nil
}

// RestoreDevice restores a single test device.
func (m *Manager) RestoreDevice(sysname string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.devices[sysname]
	if !ok {
		return fmt.Errorf("%w: device %s", model.ErrNotFound, sysname)
	}
	if e.pristine == nil {
		return fmt.Errorf("%w: %s", ErrNotTestDevice, sysname)
	}
	return m.restoreLocked(e)
}

func (m *Manager) restoreLocked(e *entry) error {
	if err := e.device.Restore(e.pristine); err != nil {
		return err
	}
	if m.onDeviceRestored != nil {
		m.onDeviceRestored(e.device.Sysname())
	}
	return nil
}

// Devices returns the registered devices in registration order.
func (m *Manager) Devices() []*model.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Device, 0, len(m.order))
	for _, sysname := range m.order {
		out = append(out, m.devices[sysname].device)
	}
	return out
}

// Device returns a device by sysname.
func (m *Manager) Device(sysname string) (*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.devices[sysname]
	if !ok {
		return nil, fmt.Errorf("%w: device %s", model.ErrNotFound, sysname)
	}
	return e.device, nil
}

// IsTestDevice reports whether sysname was loaded from a description.
func (m *Manager) IsTestDevice(sysname string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.devices[sysname]
	return ok && e.pristine != nil
}

// OnDeviceAdded sets a callback invoked after a device is registered.
func (m *Manager) OnDeviceAdded(fn func(d *model.Device)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeviceAdded = fn
}

// OnDeviceRemoved sets a callback invoked after a device is unregistered.
func (m *Manager) OnDeviceRemoved(fn func(sysname string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeviceRemoved = fn
}

// OnDeviceRestored sets a callback invoked after a test device is put back
// into its loaded state, so state kept outside the device can follow.
func (m *Manager) OnDeviceRestored(fn func(sysname string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeviceRestored = fn
}

func (m *Manager) register(e *entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sysname := e.device.Sysname()
	if _, exists := m.devices[sysname]; exists {
		return fmt.Errorf("%w: %s", ErrDeviceExists, sysname)
	}
	m.devices[sysname] = e
	m.order = append(m.order, sysname)

	if m.onDeviceAdded != nil {
		m.onDeviceAdded(e.device)
	}
	return nil
}

func (m *Manager) unregisterLocked(sysname string) {
	delete(m.devices, sysname)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == sysname })
	if m.onDeviceRemoved != nil {
		m.onDeviceRemoved(sysname)
	}
}
