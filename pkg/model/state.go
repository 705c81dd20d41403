package model

import (
	"slices"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// DPI is a resolution value. Unified resolutions have X == Y.
type DPI struct {
	X uint32
	Y uint32
}

// Unified returns a DPI with both axes set to v.
func Unified(v uint32) DPI {
	return DPI{X: v, Y: v}
}

// Mapping is the tagged action a button performs. Value holds the button
// number, special code or keycode; Macro is only set for ActionMacro.
type Mapping struct {
	Type  capability.ActionType
	Value uint32
	Macro []capability.MacroEvent
}

// Clone returns a deep copy of m.
func (m Mapping) Clone() Mapping {
	m.Macro = slices.Clone(m.Macro)
	return m
}

// ProfileState is the complete value state of one profile and its children.
type ProfileState struct {
	Index         uint32
	Name          string
	IsActive      bool
	Disabled      bool
	IsDirty       bool
	ReportRate    uint32
	ReportRates   []uint32
	AngleSnapping int32
	Debounce      int32
	Debounces     []uint32

	Resolutions []ResolutionState
	Buttons     []ButtonState
	Leds        []LedState
}

// ResolutionState is the value state of one resolution.
type ResolutionState struct {
	Index        uint32
	DPI          DPI
	IsActive     bool
	IsDefault    bool
	IsDisabled   bool
	Capabilities []capability.ResolutionCapability

	// Resolutions is the allowed DPI set. Empty means unconstrained.
	Resolutions []uint32

	// SeparateXY is derived: the capability is present or the resolution
	// was created with X != Y.
	SeparateXY bool
}

// HasCapability reports whether c is among the resolution's capabilities.
func (r *ResolutionState) HasCapability(c capability.ResolutionCapability) bool {
	return slices.Contains(r.Capabilities, c)
}

// ButtonState is the value state of one button.
type ButtonState struct {
	Index       uint32
	Mapping     Mapping
	ActionTypes []capability.ActionType
}

// LedState is the value state of one LED.
type LedState struct {
	Index          uint32
	Mode           capability.LedMode
	Modes          []capability.LedMode
	Color          capability.Color
	SecondaryColor capability.Color
	TertiaryColor  capability.Color
	ColorDepth     capability.ColorDepth
	Brightness     uint32
	EffectDuration uint32
}

// Clone returns a deep copy of p.
func (p ProfileState) Clone() ProfileState {
	p.ReportRates = slices.Clone(p.ReportRates)
	p.Debounces = slices.Clone(p.Debounces)

	res := make([]ResolutionState, len(p.Resolutions))
	for i, r := range p.Resolutions {
		r.Capabilities = slices.Clone(r.Capabilities)
		r.Resolutions = slices.Clone(r.Resolutions)
		res[i] = r
	}
	p.Resolutions = res

	buttons := make([]ButtonState, len(p.Buttons))
	for i, b := range p.Buttons {
		b.Mapping = b.Mapping.Clone()
		b.ActionTypes = slices.Clone(b.ActionTypes)
		buttons[i] = b
	}
	p.Buttons = buttons

	leds := make([]LedState, len(p.Leds))
	for i, l := range p.Leds {
		l.Modes = slices.Clone(l.Modes)
		leds[i] = l
	}
	p.Leds = leds
	return p
}

// CloneProfiles deep-copies a profile list.
func CloneProfiles(in []ProfileState) []ProfileState {
	out := make([]ProfileState, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// normalize assigns positional indices and derives SeparateXY.
func normalize(profiles []ProfileState) {
	for pi := range profiles {
		p := &profiles[pi]
		p.Index = uint32(pi)
		for ri := range p.Resolutions {
			r := &p.Resolutions[ri]
			r.Index = uint32(ri)
			r.SeparateXY = r.SeparateXY || r.HasCapability(capability.CapSeparateXY) || r.DPI.X != r.DPI.Y
		}
		for bi := range p.Buttons {
			p.Buttons[bi].Index = uint32(bi)
		}
		for li := range p.Leds {
			p.Leds[li].Index = uint32(li)
		}
	}
}
