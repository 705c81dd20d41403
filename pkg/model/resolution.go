package model

import (
	"slices"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// Resolution is a handle to one resolution of a profile.
type Resolution struct {
	dev     *Device
	profile int
	idx     int
}

// Index returns the resolution index within its profile.
func (r *Resolution) Index() int { return r.idx }

// ProfileIndex returns the index of the owning profile.
func (r *Resolution) ProfileIndex() int { return r.profile }

// Path returns the resolution object path.
func (r *Resolution) Path() string {
	return ResolutionPath(r.dev.info.Sysname, r.profile, r.idx)
}

// State returns a copy of the resolution state.
func (r *Resolution) State() ResolutionState {
	var s ResolutionState
	r.read(func(rs *ResolutionState) {
		s = *rs
		s.Capabilities = slices.Clone(rs.Capabilities)
		s.Resolutions = slices.Clone(rs.Resolutions)
	})
	return s
}

// DPI returns the current DPI. Check SeparateXY to know whether the axes
// are independent.
func (r *Resolution) DPI() DPI {
	var v DPI
	r.read(func(rs *ResolutionState) { v = rs.DPI })
	return v
}

func (r *Resolution) SeparateXY() bool {
	var v bool
	r.read(func(rs *ResolutionState) { v = rs.SeparateXY })
	return v
}

func (r *Resolution) IsActive() bool {
	var v bool
	r.read(func(rs *ResolutionState) { v = rs.IsActive })
	return v
}

func (r *Resolution) IsDefault() bool {
	var v bool
	r.read(func(rs *ResolutionState) { v = rs.IsDefault })
	return v
}

func (r *Resolution) IsDisabled() bool {
	var v bool
	r.read(func(rs *ResolutionState) { v = rs.IsDisabled })
	return v
}

func (r *Resolution) Capabilities() []capability.ResolutionCapability {
	var v []capability.ResolutionCapability
	r.read(func(rs *ResolutionState) { v = slices.Clone(rs.Capabilities) })
	return v
}

// Resolutions returns the allowed DPI list.
func (r *Resolution) Resolutions() []uint32 {
	var v []uint32
	r.read(func(rs *ResolutionState) { v = slices.Clone(rs.Resolutions) })
	return v
}

// SetDPI sets the resolution value. Separable resolutions take independent
// axes; others only accept X == Y. Every axis must be in the allowed list
// when the list is non-empty.
func (r *Resolution) SetDPI(dpi DPI) error {
	return r.update(func(_ *ProfileState, rs *ResolutionState) error {
		if err := checkDPI(rs, dpi); err != nil {
			return validationErr(r.Path(), "Resolution", err)
		}
		rs.DPI = dpi
		return nil
	})
}

// SetActive makes this resolution the profile's only active resolution.
func (r *Resolution) SetActive() error {
	return r.update(func(ps *ProfileState, rs *ResolutionState) error {
		if rs.IsDisabled {
			return stateErr(r.Path(), "SetActive", "resolution is disabled")
		}
		for i := range ps.Resolutions {
			ps.Resolutions[i].IsActive = i == r.idx
		}
		return nil
	})
}

// SetDefault makes this resolution the profile's only default resolution.
func (r *Resolution) SetDefault() error {
	return r.update(func(ps *ProfileState, rs *ResolutionState) error {
		if rs.IsDisabled {
			return stateErr(r.Path(), "SetDefault", "resolution is disabled")
		}
		for i := range ps.Resolutions {
			ps.Resolutions[i].IsDefault = i == r.idx
		}
		return nil
	})
}

// SetDisabled enables or disables the resolution. The active or default
// resolution cannot be disabled.
func (r *Resolution) SetDisabled(disabled bool) error {
	return r.update(func(_ *ProfileState, rs *ResolutionState) error {
		if disabled && (rs.IsActive || rs.IsDefault) {
			return stateErr(r.Path(), "SetDisabled", "resolution is active or default")
		}
		rs.IsDisabled = disabled
		return nil
	})
}

func (r *Resolution) read(fn func(rs *ResolutionState)) {
	r.dev.read(r.profile, func(ps *ProfileState) {
		if r.idx < len(ps.Resolutions) {
			fn(&ps.Resolutions[r.idx])
		}
	})
}

func (r *Resolution) update(fn func(ps *ProfileState, rs *ResolutionState) error) error {
	return r.dev.update(r.profile, r.Path(), func(ps *ProfileState) error {
		if r.idx >= len(ps.Resolutions) {
			return errNotFound(r.Path())
		}
		return fn(ps, &ps.Resolutions[r.idx])
	})
}
