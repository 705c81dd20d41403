package model

import (
	"errors"
	"fmt"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// CheckProfiles verifies a complete profile list against every model
// invariant. The first violation is returned as a *SpecError.
func CheckProfiles(profiles []ProfileState) error {
	active := -1
	for pi := range profiles {
		p := &profiles[pi]
		path := fmt.Sprintf("profiles[%d]", pi)

		if p.IsActive {
			if active >= 0 {
				return &SpecError{Path: path, Err: fmt.Errorf("profiles %d and %d are both active", active, pi)}
			}
			active = pi
			if p.Disabled {
				return &SpecError{Path: path, Err: errors.New("a disabled profile cannot be active")}
			}
		}
		if err := checkProfileSettings(p); err != nil {
			return &SpecError{Path: path, Err: err}
		}
		if err := checkResolutions(p.Resolutions, path); err != nil {
			return err
		}
		for bi := range p.Buttons {
			if err := checkMapping(p.Buttons[bi].Mapping, p.Buttons[bi].ActionTypes); err != nil {
				return &SpecError{Path: fmt.Sprintf("%s.buttons[%d]", path, bi), Err: err}
			}
		}
		for li := range p.Leds {
			if err := checkLed(&p.Leds[li]); err != nil {
				return &SpecError{Path: fmt.Sprintf("%s.leds[%d]", path, li), Err: err}
			}
		}
	}
	return nil
}

func checkProfileSettings(p *ProfileState) error {
	if err := checkReportRate(p.ReportRate, p.ReportRates); err != nil {
		return err
	}
	if err := capability.ValidateAngleSnapping(p.AngleSnapping); err != nil {
		return err
	}
	return capability.ValidateDebounce(p.Debounce, p.Debounces)
}

func checkReportRate(rate uint32, allowed []uint32) error {
	if rate == 0 {
		return fmt.Errorf("%w: report rate 0", capability.ErrOutOfRange)
	}
	return capability.Member(rate, allowed, "report rate")
}

func checkResolutions(res []ResolutionState, profilePath string) error {
	active, def := -1, -1
	for ri := range res {
		r := &res[ri]
		path := fmt.Sprintf("%s.resolutions[%d]", profilePath, ri)
		if r.IsActive {
			if active >= 0 {
				return &SpecError{Path: path, Err: fmt.Errorf("resolutions %d and %d are both active", active, ri)}
			}
			active = ri
		}
		if r.IsDefault {
			if def >= 0 {
				return &SpecError{Path: path, Err: fmt.Errorf("resolutions %d and %d are both default", def, ri)}
			}
			def = ri
		}
		if r.IsDisabled && (r.IsActive || r.IsDefault) {
			return &SpecError{Path: path, Err: errors.New("a disabled resolution cannot be active or default")}
		}
		if err := checkDPI(r, r.DPI); err != nil {
			return &SpecError{Path: path, Err: err}
		}
	}
	return nil
}

func checkDPI(r *ResolutionState, dpi DPI) error {
	if dpi.X == 0 || dpi.Y == 0 {
		return fmt.Errorf("%w: dpi must be non-zero", capability.ErrOutOfRange)
	}
	if dpi.X != dpi.Y && !r.SeparateXY {
		return fmt.Errorf("%w: resolution does not support separate x/y values", capability.ErrNotInSet)
	}
	if err := capability.Member(dpi.X, r.Resolutions, "x dpi"); err != nil {
		return err
	}
	return capability.Member(dpi.Y, r.Resolutions, "y dpi")
}

func checkMapping(m Mapping, allowed []capability.ActionType) error {
	if !m.Type.IsKnown() {
		return fmt.Errorf("%w: action type %v", capability.ErrNotInSet, m.Type)
	}
	if err := capability.StrictMember(m.Type, allowed, "action type"); err != nil {
		return err
	}
	if m.Type == capability.ActionMacro {
		if len(m.Macro) == 0 {
			return fmt.Errorf("%w: macro has no events", capability.ErrOutOfRange)
		}
		for _, ev := range m.Macro {
			if err := ev.Validate(); err != nil {
				return err
			}
		}
	} else if len(m.Macro) > 0 {
		return fmt.Errorf("%w: macro events on a %v mapping", capability.ErrNotInSet, m.Type)
	}
	return nil
}

func checkLed(l *LedState) error {
	if err := capability.StrictMember(l.Mode, l.Modes, "mode"); err != nil {
		return err
	}
	if !l.ColorDepth.IsValid() {
		return fmt.Errorf("%w: color depth %d", capability.ErrNotInSet, l.ColorDepth)
	}
	for _, c := range []capability.Color{l.Color, l.SecondaryColor, l.TertiaryColor} {
		if err := capability.ValidateColor(c, l.ColorDepth); err != nil {
			return err
		}
	}
	if err := capability.ValidateBrightness(l.Brightness); err != nil {
		return err
	}
	return capability.ValidateEffectDuration(l.EffectDuration)
}
