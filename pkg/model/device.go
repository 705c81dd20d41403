package model

import (
	"context"
	"fmt"
	"sync"
)

// Info is the immutable identity of a device.
type Info struct {
	// Sysname is unique within the process and forms the object path.
	Sysname string

	Name            string
	Model           string
	FirmwareVersion string
}

// Changeset is the unit handed to an Applier on commit: deep copies of every
// dirty profile, in index order.
type Changeset struct {
	Device   Info
	Profiles []ProfileState
}

// Applier writes a changeset to the effective device state (hardware, a
// journal, or memory). It runs under the device's exclusive lock and must
// not call back into the device.
type Applier interface {
	Apply(ctx context.Context, cs *Changeset) error
}

// Device is a configurable input device and the owner of its profile graph.
type Device struct {
	mu sync.RWMutex

	info     Info
	applier  Applier
	profiles []ProfileState
}

// NewDevice checks profiles against every model invariant and builds a
// device owning a private copy of them. Indices are assigned by position and
// all dirty flags start cleared. A nil applier makes Commit only clear the
// dirty flags.
func NewDevice(info Info, profiles []ProfileState, applier Applier) (*Device, error) {
	if !ValidSysname(info.Sysname) {
		return nil, &SpecError{Path: "sysname", Err: fmt.Errorf("invalid sysname %q", info.Sysname)}
	}
	owned, err := prepare(profiles)
	if err != nil {
		return nil, err
	}
	return &Device{
		info:     info,
		applier:  applier,
		profiles: owned,
	}, nil
}

func prepare(profiles []ProfileState) ([]ProfileState, error) {
	owned := CloneProfiles(profiles)
	normalize(owned)
	if err := CheckProfiles(owned); err != nil {
		return nil, err
	}
	for i := range owned {
		owned[i].IsDirty = false
	}
	return owned, nil
}

// Info returns the device identity.
func (d *Device) Info() Info { return d.info }

// Sysname returns the unique device identifier.
func (d *Device) Sysname() string { return d.info.Sysname }

// Name returns the human-readable device name.
func (d *Device) Name() string { return d.info.Name }

// Model returns the bus:vid:pid:version model string.
func (d *Device) Model() string { return d.info.Model }

// FirmwareVersion returns the firmware version, possibly empty.
func (d *Device) FirmwareVersion() string { return d.info.FirmwareVersion }

// Path returns the device object path.
func (d *Device) Path() string { return DevicePath(d.info.Sysname) }

// ProfileCount returns the number of profiles.
func (d *Device) ProfileCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.profiles)
}

// Profile returns a handle to profile i.
func (d *Device) Profile(i int) (*Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.profiles) {
		return nil, fmt.Errorf("%w: %s profile %d", ErrNotFound, d.info.Sysname, i)
	}
	return &Profile{dev: d, idx: i}, nil
}

// Profiles returns handles to every profile in index order.
func (d *Device) Profiles() []*Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Profile, len(d.profiles))
	for i := range d.profiles {
		out[i] = &Profile{dev: d, idx: i}
	}
	return out
}

// ActiveProfile returns the active profile, or nil when none is active.
func (d *Device) ActiveProfile() *Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.profiles {
		if d.profiles[i].IsActive {
			return &Profile{dev: d, idx: i}
		}
	}
	return nil
}

// Snapshot returns a deep copy of every profile.
func (d *Device) Snapshot() []ProfileState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return CloneProfiles(d.profiles)
}

// IsDirty reports whether any profile has pending changes.
func (d *Device) IsDirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.profiles {
		if d.profiles[i].IsDirty {
			return true
		}
	}
	return false
}

// Commit applies every dirty profile as one unit. With nothing dirty it is a
// no-op. The exclusive lock is held across the whole apply so readers see
// either the pre-commit or post-commit state. On failure no flag or value
// changes and a *CommitError is returned.
func (d *Device) Commit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cs := &Changeset{Device: d.info}
	for i := range d.profiles {
		if d.profiles[i].IsDirty {
			cs.Profiles = append(cs.Profiles, d.profiles[i].Clone())
		}
	}
	if len(cs.Profiles) == 0 {
		return nil
	}

	if d.applier != nil {
		if err := d.applier.Apply(ctx, cs); err != nil {
			return &CommitError{Device: d.info.Sysname, Err: err}
		}
	}

	for _, p := range cs.Profiles {
		d.profiles[p.Index].IsDirty = false
	}
	return nil
}

// Restore replaces the whole profile graph with profiles, clearing all dirty
// flags. Existing handles stay valid when the shape is unchanged.
func (d *Device) Restore(profiles []ProfileState) error {
	owned, err := prepare(profiles)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles = owned
	return nil
}

// read runs fn under the read lock after bounds-checking the profile index.
func (d *Device) read(pi int, fn func(p *ProfileState)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if pi < len(d.profiles) {
		fn(&d.profiles[pi])
	}
}

// update runs fn under the write lock. fn must validate before it writes;
// if it returns nil the profile is marked dirty.
func (d *Device) update(pi int, entity string, fn func(p *ProfileState) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pi >= len(d.profiles) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	p := &d.profiles[pi]
	if err := fn(p); err != nil {
		return err
	}
	p.IsDirty = true
	return nil
}
