package model

import (
	"fmt"
	"slices"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// Profile is a handle to one profile of a device.
type Profile struct {
	dev *Device
	idx int
}

// Device returns the owning device.
func (p *Profile) Device() *Device { return p.dev }

// Index returns the profile index.
func (p *Profile) Index() int { return p.idx }

// Path returns the profile object path.
func (p *Profile) Path() string { return ProfilePath(p.dev.info.Sysname, p.idx) }

// State returns a deep copy of the profile state.
func (p *Profile) State() ProfileState {
	var s ProfileState
	p.dev.read(p.idx, func(ps *ProfileState) { s = ps.Clone() })
	return s
}

func (p *Profile) Name() string {
	var v string
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.Name })
	return v
}

func (p *Profile) IsActive() bool {
	var v bool
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.IsActive })
	return v
}

func (p *Profile) IsDisabled() bool {
	var v bool
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.Disabled })
	return v
}

func (p *Profile) IsDirty() bool {
	var v bool
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.IsDirty })
	return v
}

func (p *Profile) ReportRate() uint32 {
	var v uint32
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.ReportRate })
	return v
}

func (p *Profile) ReportRates() []uint32 {
	var v []uint32
	p.dev.read(p.idx, func(ps *ProfileState) { v = slices.Clone(ps.ReportRates) })
	return v
}

func (p *Profile) AngleSnapping() int32 {
	var v int32
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.AngleSnapping })
	return v
}

func (p *Profile) Debounce() int32 {
	var v int32
	p.dev.read(p.idx, func(ps *ProfileState) { v = ps.Debounce })
	return v
}

func (p *Profile) Debounces() []uint32 {
	var v []uint32
	p.dev.read(p.idx, func(ps *ProfileState) { v = slices.Clone(ps.Debounces) })
	return v
}

// Resolution returns a handle to resolution i.
func (p *Profile) Resolution(i int) (*Resolution, error) {
	var n int
	p.dev.read(p.idx, func(ps *ProfileState) { n = len(ps.Resolutions) })
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: %s resolution %d", ErrNotFound, p.Path(), i)
	}
	return &Resolution{dev: p.dev, profile: p.idx, idx: i}, nil
}

// Resolutions returns handles to every resolution in index order.
func (p *Profile) Resolutions() []*Resolution {
	var n int
	p.dev.read(p.idx, func(ps *ProfileState) { n = len(ps.Resolutions) })
	out := make([]*Resolution, n)
	for i := range out {
		out[i] = &Resolution{dev: p.dev, profile: p.idx, idx: i}
	}
	return out
}

// Button returns a handle to button i.
func (p *Profile) Button(i int) (*Button, error) {
	var n int
	p.dev.read(p.idx, func(ps *ProfileState) { n = len(ps.Buttons) })
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: %s button %d", ErrNotFound, p.Path(), i)
	}
	return &Button{dev: p.dev, profile: p.idx, idx: i}, nil
}

// Buttons returns handles to every button in index order.
func (p *Profile) Buttons() []*Button {
	var n int
	p.dev.read(p.idx, func(ps *ProfileState) { n = len(ps.Buttons) })
	out := make([]*Button, n)
	for i := range out {
		out[i] = &Button{dev: p.dev, profile: p.idx, idx: i}
	}
	return out
}

// Led returns a handle to LED i.
func (p *Profile) Led(i int) (*Led, error) {
	var n int
	p.dev.read(p.idx, func(ps *ProfileState) { n = len(ps.Leds) })
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: %s led %d", ErrNotFound, p.Path(), i)
	}
	return &Led{dev: p.dev, profile: p.idx, idx: i}, nil
}

// Leds returns handles to every LED in index order.
func (p *Profile) Leds() []*Led {
	var n int
	p.dev.read(p.idx, func(ps *ProfileState) { n = len(ps.Leds) })
	out := make([]*Led, n)
	for i := range out {
		out[i] = &Led{dev: p.dev, profile: p.idx, idx: i}
	}
	return out
}

// SetName renames the profile.
func (p *Profile) SetName(name string) error {
	return p.dev.update(p.idx, p.Path(), func(ps *ProfileState) error {
		ps.Name = name
		return nil
	})
}

// SetReportRate sets the polling rate in Hz. The rate must be one of
// ReportRates.
func (p *Profile) SetReportRate(rate uint32) error {
	return p.dev.update(p.idx, p.Path(), func(ps *ProfileState) error {
		if err := checkReportRate(rate, ps.ReportRates); err != nil {
			return validationErr(p.Path(), "ReportRate", err)
		}
		ps.ReportRate = rate
		return nil
	})
}

// SetAngleSnapping sets angle snapping: -1 unsupported, 0 off, 1 on.
func (p *Profile) SetAngleSnapping(v int32) error {
	return p.dev.update(p.idx, p.Path(), func(ps *ProfileState) error {
		if err := capability.ValidateAngleSnapping(v); err != nil {
			return validationErr(p.Path(), "AngleSnapping", err)
		}
		ps.AngleSnapping = v
		return nil
	})
}

// SetDebounce sets the debounce time in ms, or -1.
func (p *Profile) SetDebounce(v int32) error {
	return p.dev.update(p.idx, p.Path(), func(ps *ProfileState) error {
		if err := capability.ValidateDebounce(v, ps.Debounces); err != nil {
			return validationErr(p.Path(), "Debounce", err)
		}
		ps.Debounce = v
		return nil
	})
}

// SetDisabled enables or disables the profile. Disabling the active profile
// also clears IsActive, leaving the device with no active profile.
func (p *Profile) SetDisabled(disabled bool) error {
	return p.dev.update(p.idx, p.Path(), func(ps *ProfileState) error {
		ps.Disabled = disabled
		if disabled {
			ps.IsActive = false
		}
		return nil
	})
}

// SetActive makes this profile the device's only active profile. The
// previously active profile is deactivated in the same critical section and
// is marked dirty as well.
func (p *Profile) SetActive() error {
	d := p.dev
	return d.update(p.idx, p.Path(), func(ps *ProfileState) error {
		if ps.Disabled {
			return stateErr(p.Path(), "SetActive", "profile is disabled")
		}
		for i := range d.profiles {
			sib := &d.profiles[i]
			if i != p.idx && sib.IsActive {
				sib.IsActive = false
				sib.IsDirty = true
			}
		}
		ps.IsActive = true
		return nil
	})
}
