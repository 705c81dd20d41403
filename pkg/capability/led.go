package capability

import (
	"fmt"
	"strings"
)

// LedMode is the lighting effect of an LED.
type LedMode uint32

const (
	LedOff       LedMode = 0
	LedSolid     LedMode = 1
	LedCycle     LedMode = 3
	LedColorWave LedMode = 4
	LedBreathing LedMode = 10
)

// DefaultLedModes is the mode set an LED supports unless its description
// narrows it.
var DefaultLedModes = []LedMode{LedOff, LedSolid, LedCycle, LedColorWave, LedBreathing}

// String returns the mode name.
func (m LedMode) String() string {
	switch m {
	case LedOff:
		return "off"
	case LedSolid:
		return "solid"
	case LedCycle:
		return "cycle"
	case LedColorWave:
		return "color-wave"
	case LedBreathing:
		return "breathing"
	default:
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
}

// ParseLedMode parses a mode name as returned by String.
func ParseLedMode(s string) (LedMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range DefaultLedModes {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown led mode %q", ErrNotInSet, s)
}

// ColorDepth describes how many distinct values each color channel holds.
type ColorDepth uint32

const (
	DepthMonochrome ColorDepth = 0
	DepthRGB888     ColorDepth = 1
	DepthRGB111     ColorDepth = 2
)

// String returns the depth name.
func (d ColorDepth) String() string {
	switch d {
	case DepthMonochrome:
		return "monochrome"
	case DepthRGB888:
		return "rgb-888"
	case DepthRGB111:
		return "rgb-111"
	default:
		return fmt.Sprintf("depth(%d)", uint32(d))
	}
}

// ChannelMax returns the largest value a single channel may take.
func (d ColorDepth) ChannelMax() uint32 {
	if d == DepthRGB111 {
		return 1
	}
	return 255
}

// IsValid reports whether d is a known depth.
func (d ColorDepth) IsValid() bool {
	return d <= DepthRGB111
}

// Color is an RGB triple.
type Color struct {
	Red   uint32
	Green uint32
	Blue  uint32
}

// Triple returns the channels in r, g, b order.
func (c Color) Triple() [3]uint32 {
	return [3]uint32{c.Red, c.Green, c.Blue}
}

// ColorFromSlice builds a Color from exactly three channel values.
func ColorFromSlice(v []uint32) (Color, error) {
	if len(v) != 3 {
		return Color{}, fmt.Errorf("%w: color needs 3 channels, got %d", ErrOutOfRange, len(v))
	}
	return Color{Red: v[0], Green: v[1], Blue: v[2]}, nil
}

// ValidateColor checks every channel of c fits depth.
func ValidateColor(c Color, depth ColorDepth) error {
	limit := depth.ChannelMax()
	for i, ch := range c.Triple() {
		if ch > limit {
			return fmt.Errorf("%w: channel %d = %d exceeds %d for %s", ErrOutOfRange, i, ch, limit, depth)
		}
	}
	return nil
}

// Documented LED ranges.
const (
	BrightnessMin = 0
	BrightnessMax = 255

	EffectDurationMin = 0
	EffectDurationMax = 10000

	DefaultBrightness = 100
)

func ValidateBrightness(v uint32) error {
	if v > BrightnessMax {
		return fmt.Errorf("%w: brightness %d exceeds %d", ErrOutOfRange, v, BrightnessMax)
	}
	return nil
}

func ValidateEffectDuration(v uint32) error {
	if v > EffectDurationMax {
		return fmt.Errorf("%w: effect duration %d exceeds %d ms", ErrOutOfRange, v, EffectDurationMax)
	}
	return nil
}
