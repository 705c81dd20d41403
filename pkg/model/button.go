package model

import (
	"fmt"
	"slices"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// Button is a handle to one button of a profile.
type Button struct {
	dev     *Device
	profile int
	idx     int
}

func (b *Button) Index() int { return b.idx }

func (b *Button) ProfileIndex() int { return b.profile }

// Path returns the button object path.
func (b *Button) Path() string {
	return ButtonPath(b.dev.info.Sysname, b.profile, b.idx)
}

// Mapping returns a copy of the current mapping.
func (b *Button) Mapping() Mapping {
	var v Mapping
	b.read(func(bs *ButtonState) { v = bs.Mapping.Clone() })
	return v
}

// ActionTypes returns the action kinds this button accepts.
func (b *Button) ActionTypes() []capability.ActionType {
	var v []capability.ActionType
	b.read(func(bs *ButtonState) { v = slices.Clone(bs.ActionTypes) })
	return v
}

// SetMapping replaces the mapping. Its action type must be in ActionTypes.
func (b *Button) SetMapping(m Mapping) error {
	m = m.Clone()
	return b.dev.update(b.profile, b.Path(), func(ps *ProfileState) error {
		if b.idx >= len(ps.Buttons) {
			return errNotFound(b.Path())
		}
		bs := &ps.Buttons[b.idx]
		if err := checkMapping(m, bs.ActionTypes); err != nil {
			return validationErr(b.Path(), "Mapping", err)
		}
		bs.Mapping = m
		return nil
	})
}

func (b *Button) read(fn func(bs *ButtonState)) {
	b.dev.read(b.profile, func(ps *ProfileState) {
		if b.idx < len(ps.Buttons) {
			fn(&ps.Buttons[b.idx])
		}
	})
}

func errNotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}
