package model

import (
	"slices"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// Led is a handle to one LED of a profile.
type Led struct {
	dev     *Device
	profile int
	idx     int
}

func (l *Led) Index() int { return l.idx }

func (l *Led) ProfileIndex() int { return l.profile }

// Path returns the LED object path.
func (l *Led) Path() string {
	return LedPath(l.dev.info.Sysname, l.profile, l.idx)
}

// State returns a copy of the LED state.
func (l *Led) State() LedState {
	var s LedState
	l.read(func(ls *LedState) {
		s = *ls
		s.Modes = slices.Clone(ls.Modes)
	})
	return s
}

func (l *Led) Mode() capability.LedMode {
	var v capability.LedMode
	l.read(func(ls *LedState) { v = ls.Mode })
	return v
}

func (l *Led) Modes() []capability.LedMode {
	var v []capability.LedMode
	l.read(func(ls *LedState) { v = slices.Clone(ls.Modes) })
	return v
}

func (l *Led) ColorDepth() capability.ColorDepth {
	var v capability.ColorDepth
	l.read(func(ls *LedState) { v = ls.ColorDepth })
	return v
}

func (l *Led) Color() capability.Color {
	var v capability.Color
	l.read(func(ls *LedState) { v = ls.Color })
	return v
}

func (l *Led) SecondaryColor() capability.Color {
	var v capability.Color
	l.read(func(ls *LedState) { v = ls.SecondaryColor })
	return v
}

func (l *Led) TertiaryColor() capability.Color {
	var v capability.Color
	l.read(func(ls *LedState) { v = ls.TertiaryColor })
	return v
}

func (l *Led) Brightness() uint32 {
	var v uint32
	l.read(func(ls *LedState) { v = ls.Brightness })
	return v
}

func (l *Led) EffectDuration() uint32 {
	var v uint32
	l.read(func(ls *LedState) { v = ls.EffectDuration })
	return v
}

// SetMode sets the lighting mode; it must be one of Modes.
func (l *Led) SetMode(m capability.LedMode) error {
	return l.update(func(ls *LedState) error {
		if err := capability.StrictMember(m, ls.Modes, "mode"); err != nil {
			return validationErr(l.Path(), "Mode", err)
		}
		ls.Mode = m
		return nil
	})
}

// SetColor sets the primary color.
func (l *Led) SetColor(c capability.Color) error {
	return l.setColor("Color", c, func(ls *LedState) *capability.Color { return &ls.Color })
}

// SetSecondaryColor sets the secondary color.
func (l *Led) SetSecondaryColor(c capability.Color) error {
	return l.setColor("SecondaryColor", c, func(ls *LedState) *capability.Color { return &ls.SecondaryColor })
}

// SetTertiaryColor sets the tertiary color.
func (l *Led) SetTertiaryColor(c capability.Color) error {
	return l.setColor("TertiaryColor", c, func(ls *LedState) *capability.Color { return &ls.TertiaryColor })
}

// SetBrightness sets the brightness, 0..255.
func (l *Led) SetBrightness(v uint32) error {
	return l.update(func(ls *LedState) error {
		if err := capability.ValidateBrightness(v); err != nil {
			return validationErr(l.Path(), "Brightness", err)
		}
		ls.Brightness = v
		return nil
	})
}

// SetEffectDuration sets the effect duration in ms, 0..10000.
func (l *Led) SetEffectDuration(v uint32) error {
	return l.update(func(ls *LedState) error {
		if err := capability.ValidateEffectDuration(v); err != nil {
			return validationErr(l.Path(), "EffectDuration", err)
		}
		ls.EffectDuration = v
		return nil
	})
}

func (l *Led) setColor(property string, c capability.Color, field func(*LedState) *capability.Color) error {
	return l.update(func(ls *LedState) error {
		if err := capability.ValidateColor(c, ls.ColorDepth); err != nil {
			return validationErr(l.Path(), property, err)
		}
		*field(ls) = c
		return nil
	})
}

func (l *Led) read(fn func(ls *LedState)) {
	l.dev.read(l.profile, func(ps *ProfileState) {
		if l.idx < len(ps.Leds) {
			fn(&ps.Leds[l.idx])
		}
	})
}

func (l *Led) update(fn func(ls *LedState) error) error {
	return l.dev.update(l.profile, l.Path(), func(ps *ProfileState) error {
		if l.idx >= len(ps.Leds) {
			return errNotFound(l.Path())
		}
		return fn(&ps.Leds[l.idx])
	})
}
