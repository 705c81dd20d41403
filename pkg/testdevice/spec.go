package testdevice

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/libratbag/ratbag-go/pkg/model"
)

// Spec describes a synthetic device.
type Spec struct {
	// Name defaults to "Test Device (<sysname>)".
	Name *string `yaml:"name" json:"name,omitempty"`

	// Model defaults to "test:0000:0000:0".
	Model *string `yaml:"model" json:"model,omitempty"`

	// FirmwareVersion defaults to "".
	FirmwareVersion *string `yaml:"firmware_version" json:"firmware_version,omitempty"`

	// Profiles defaults to a single disabled profile.
	Profiles []ProfileSpec `yaml:"profiles" json:"profiles,omitempty"`
}

// ProfileSpec describes one profile.
type ProfileSpec struct {
	Name       string `yaml:"name" json:"name,omitempty"`
	IsActive   bool   `yaml:"is_active" json:"is_active,omitempty"`
	IsDisabled bool   `yaml:"is_disabled" json:"is_disabled,omitempty"`

	// Rate defaults to 1000 Hz.
	Rate *uint32 `yaml:"rate" json:"rate,omitempty"`

	// ReportRates defaults to 125, 250, 500, 1000.
	ReportRates []uint32 `yaml:"report_rates" json:"report_rates,omitempty"`

	// AngleSnapping and Debounce default to -1 (unsupported).
	AngleSnapping *int32   `yaml:"angle_snapping" json:"angle_snapping,omitempty"`
	Debounce      *int32   `yaml:"debounce" json:"debounce,omitempty"`
	Debounces     []uint32 `yaml:"debounces" json:"debounces,omitempty"`

	// Resolutions defaults to one active and default 1000 dpi resolution.
	Resolutions []ResolutionSpec `yaml:"resolutions" json:"resolutions,omitempty"`

	// Buttons defaults to one button mapped to button 0.
	Buttons []ButtonSpec `yaml:"buttons" json:"buttons,omitempty"`

	Leds []LedSpec `yaml:"leds" json:"leds,omitempty"`
}

// ResolutionSpec describes one resolution. The allowed DPI list comes from
// either DPIList or the DPIMin..DPIMax range; with neither it is
// unconstrained.
type ResolutionSpec struct {
	// XRes defaults to 1000; YRes defaults to XRes.
	XRes *uint32 `yaml:"xres" json:"xres,omitempty"`
	YRes *uint32 `yaml:"yres" json:"yres,omitempty"`

	DPIMin *uint32 `yaml:"dpi_min" json:"dpi_min,omitempty"`
	DPIMax *uint32 `yaml:"dpi_max" json:"dpi_max,omitempty"`

	// DPIStep defaults to 100.
	DPIStep *uint32  `yaml:"dpi_step" json:"dpi_step,omitempty"`
	DPIList []uint32 `yaml:"dpi_list" json:"dpi_list,omitempty"`

	IsActive     bool     `yaml:"is_active" json:"is_active,omitempty"`
	IsDefault    bool     `yaml:"is_default" json:"is_default,omitempty"`
	IsDisabled   bool     `yaml:"is_disabled" json:"is_disabled,omitempty"`
	Capabilities []uint32 `yaml:"capabilities" json:"capabilities,omitempty"`
}

// ButtonSpec describes one button. Only the value field matching
// ActionType may be set.
type ButtonSpec struct {
	// ActionType is none, button, special, key or macro; default button.
	ActionType *string `yaml:"action_type" json:"action_type,omitempty"`

	// Button defaults to the button index.
	Button  *uint32 `yaml:"button" json:"button,omitempty"`
	Special *uint32 `yaml:"special" json:"special,omitempty"`
	Key     *uint32 `yaml:"key" json:"key,omitempty"`

	// Macro is a list of [event type, keycode] pairs.
	Macro [][]uint32 `yaml:"macro" json:"macro,omitempty"`

	// ActionTypes defaults to all five settable kinds.
	ActionTypes []uint32 `yaml:"action_types" json:"action_types,omitempty"`
}

// LedSpec describes one LED.
type LedSpec struct {
	// Mode defaults to 0 (off); Modes to off, solid, cycle, color-wave,
	// breathing.
	Mode  *uint32  `yaml:"mode" json:"mode,omitempty"`
	Modes []uint32 `yaml:"modes" json:"modes,omitempty"`

	// Colors are [r, g, b] and default to black.
	Color          []uint32 `yaml:"color" json:"color,omitempty"`
	SecondaryColor []uint32 `yaml:"secondary_color" json:"secondary_color,omitempty"`
	TertiaryColor  []uint32 `yaml:"tertiary_color" json:"tertiary_color,omitempty"`

	// ColorDepth defaults to 1 (rgb-888).
	ColorDepth *uint32 `yaml:"color_depth" json:"color_depth,omitempty"`

	// Brightness defaults to 100; Duration to 0 ms.
	Brightness *uint32 `yaml:"brightness" json:"brightness,omitempty"`
	Duration   *uint32 `yaml:"duration" json:"duration,omitempty"`
}

// Parse decodes a YAML or JSON description. Empty input is a valid, empty
// description.
func Parse(data []byte) (*Spec, error) {
	var s Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, &model.SpecError{Err: fmt.Errorf("failed to parse description: %w", err)}
	}
	return &s, nil
}

// Load reads and parses a description file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.SpecError{Path: path, Err: err}
	}
	return Parse(data)
}
