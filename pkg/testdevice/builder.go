package testdevice

import (
	"errors"
	"fmt"
	"slices"

	"github.com/libratbag/ratbag-go/pkg/capability"
	"github.com/libratbag/ratbag-go/pkg/model"
)

// Device defaults.
const (
	DefaultModel = "test:0000:0000:0"
)

// DefaultName returns the name given to a device without one.
func DefaultName(sysname string) string {
	return fmt.Sprintf("Test Device (%s)", sysname)
}

// Info returns the device identity for sysname.
func (s *Spec) Info(sysname string) model.Info {
	info := model.Info{
		Sysname: sysname,
		Name:    DefaultName(sysname),
		Model:   DefaultModel,
	}
	if s.Name != nil {
		info.Name = *s.Name
	}
	if s.Model != nil {
		info.Model = *s.Model
	}
	if s.FirmwareVersion != nil {
		info.FirmwareVersion = *s.FirmwareVersion
	}
	return info
}

// Build expands the description into a complete profile list with every
// default filled in, then checks it against the model invariants.
func (s *Spec) Build() ([]model.ProfileState, error) {
	if len(s.Profiles) == 0 {
		p, err := buildProfile(ProfileSpec{IsDisabled: true}, "profiles[0]")
		if err != nil {
			return nil, err
		}
		return []model.ProfileState{p}, nil
	}

	out := make([]model.ProfileState, 0, len(s.Profiles))
	for i, ps := range s.Profiles {
		p, err := buildProfile(ps, fmt.Sprintf("profiles[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := model.CheckProfiles(out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewDevice builds a device from s.
func NewDevice(sysname string, s *Spec, applier model.Applier) (*model.Device, error) {
	profiles, err := s.Build()
	if err != nil {
		return nil, err
	}
	return model.NewDevice(s.Info(sysname), profiles, applier)
}

func buildProfile(ps ProfileSpec, path string) (model.ProfileState, error) {
	p := model.ProfileState{
		Name:          ps.Name,
		IsActive:      ps.IsActive,
		Disabled:      ps.IsDisabled,
		ReportRate:    deref(ps.Rate, capability.DefaultReportRate),
		ReportRates:   ps.ReportRates,
		AngleSnapping: deref(ps.AngleSnapping, capability.Unsupported),
		Debounce:      deref(ps.Debounce, capability.Unsupported),
		Debounces:     slices.Clone(ps.Debounces),
	}
	if p.ReportRates == nil {
		p.ReportRates = capability.DefaultReportRates
	}
	p.ReportRates = slices.Clone(p.ReportRates)

	resolutions := ps.Resolutions
	if len(resolutions) == 0 {
		dpi := uint32(capability.DefaultDPI)
		resolutions = []ResolutionSpec{{
			XRes: &dpi, DPIMin: &dpi, DPIMax: &dpi,
			IsActive: true, IsDefault: true,
		}}
	}
	for i, rs := range resolutions {
		r, err := buildResolution(rs)
		if err != nil {
			return p, &model.SpecError{Path: fmt.Sprintf("%s.resolutions[%d]", path, i), Err: err}
		}
		p.Resolutions = append(p.Resolutions, r)
	}

	buttons := ps.Buttons
	if len(buttons) == 0 {
		buttons = []ButtonSpec{{}}
	}
	for i, bs := range buttons {
		b, err := buildButton(bs, uint32(i))
		if err != nil {
			return p, &model.SpecError{Path: fmt.Sprintf("%s.buttons[%d]", path, i), Err: err}
		}
		p.Buttons = append(p.Buttons, b)
	}

	for i, ls := range ps.Leds {
		l, err := buildLed(ls)
		if err != nil {
			return p, &model.SpecError{Path: fmt.Sprintf("%s.leds[%d]", path, i), Err: err}
		}
		p.Leds = append(p.Leds, l)
	}
	return p, nil
}

func buildResolution(rs ResolutionSpec) (model.ResolutionState, error) {
	x := deref(rs.XRes, capability.DefaultDPI)
	y := deref(rs.YRes, x)
	r := model.ResolutionState{
		DPI:        model.DPI{X: x, Y: y},
		IsActive:   rs.IsActive,
		IsDefault:  rs.IsDefault,
		IsDisabled: rs.IsDisabled,
	}
	for _, c := range rs.Capabilities {
		r.Capabilities = append(r.Capabilities, capability.ResolutionCapability(c))
	}
	r.SeparateXY = x != y || r.HasCapability(capability.CapSeparateXY)

	switch {
	case rs.DPIList != nil && (rs.DPIMin != nil || rs.DPIMax != nil):
		return r, errors.New("dpi_list and dpi_min/dpi_max are mutually exclusive")
	case rs.DPIList != nil:
		r.Resolutions = slices.Clone(rs.DPIList)
	case rs.DPIMin != nil && rs.DPIMax != nil:
		rng := capability.DPIRange{Min: *rs.DPIMin, Max: *rs.DPIMax, Step: deref(rs.DPIStep, capability.DefaultDPIStep)}
		if err := rng.Validate(); err != nil {
			return r, err
		}
		r.Resolutions = rng.Values()
	case rs.DPIMin != nil || rs.DPIMax != nil:
		return r, errors.New("dpi_min and dpi_max must be given together")
	}
	return r, nil
}

func buildButton(bs ButtonSpec, index uint32) (model.ButtonState, error) {
	b := model.ButtonState{}
	action := capability.ActionButton
	if bs.ActionType != nil {
		a, err := capability.ParseActionType(*bs.ActionType)
		if err != nil {
			return b, err
		}
		action = a
	}

	values := map[capability.ActionType]bool{
		capability.ActionButton:  bs.Button != nil,
		capability.ActionSpecial: bs.Special != nil,
		capability.ActionKey:     bs.Key != nil,
		capability.ActionMacro:   bs.Macro != nil,
	}
	for kind, set := range values {
		if set && kind != action {
			return b, fmt.Errorf("%v value given for a %v action", kind, action)
		}
	}

	m := model.Mapping{Type: action}
	switch action {
	case capability.ActionButton:
		m.Value = deref(bs.Button, index)
	case capability.ActionSpecial:
		m.Value = deref(bs.Special, 0)
	case capability.ActionKey:
		m.Value = deref(bs.Key, 0)
	case capability.ActionMacro:
		for i, ev := range bs.Macro {
			if len(ev) != 2 {
				return b, fmt.Errorf("macro[%d]: want [type, keycode], got %d values", i, len(ev))
			}
			m.Macro = append(m.Macro, capability.MacroEvent{Type: capability.MacroEventType(ev[0]), Value: ev[1]})
		}
	}
	b.Mapping = m

	if bs.ActionTypes == nil {
		b.ActionTypes = slices.Clone(capability.DefaultActionTypes)
	} else {
		for _, a := range bs.ActionTypes {
			b.ActionTypes = append(b.ActionTypes, capability.ActionType(a))
		}
	}
	return b, nil
}

func buildLed(ls LedSpec) (model.LedState, error) {
	l := model.LedState{
		Mode:           capability.LedMode(deref(ls.Mode, uint32(capability.LedOff))),
		ColorDepth:     capability.ColorDepth(deref(ls.ColorDepth, uint32(capability.DepthRGB888))),
		Brightness:     deref(ls.Brightness, capability.DefaultBrightness),
		EffectDuration: deref(ls.Duration, 0),
	}
	if ls.Modes == nil {
		l.Modes = slices.Clone(capability.DefaultLedModes)
	} else {
		for _, m := range ls.Modes {
			l.Modes = append(l.Modes, capability.LedMode(m))
		}
	}

	colors := []struct {
		name string
		in   []uint32
		out  *capability.Color
	}{
		{"color", ls.Color, &l.Color},
		{"secondary_color", ls.SecondaryColor, &l.SecondaryColor},
		{"tertiary_color", ls.TertiaryColor, &l.TertiaryColor},
	}
	for _, c := range colors {
		if c.in == nil {
			continue
		}
		v, err := capability.ColorFromSlice(c.in)
		if err != nil {
			return l, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.out = v
	}
	return l, nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
