package devicedb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/libratbag/ratbag-go/pkg/capability"
)

// BusType names the bus in a match pattern: "usb", "bluetooth", or the
// bus number as four hex digits.
type BusType string

// Known bus types.
const (
	BusUSB       BusType = "usb"
	BusBluetooth BusType = "bluetooth"
)

// BusTypeFromID converts the numeric bus type of a HID_ID into a BusType.
func BusTypeFromID(id uint16) BusType {
	switch id {
	case 0x03:
		return BusUSB
	case 0x05:
		return BusBluetooth
	default:
		return BusType(fmt.Sprintf("%04x", id))
	}
}

// Match is one bus:vid:pid pattern.
type Match struct {
	Bus BusType
	VID uint16
	PID uint16
}

// String returns the pattern as written in DeviceMatch.
func (m Match) String() string {
	return fmt.Sprintf("%s:%04x:%04x", m.Bus, m.VID, m.PID)
}

// DriverConfig is the optional [Driver/<name>] section. Nil counts were not
// given.
type DriverConfig struct {
	Profiles *uint32
	Buttons  *uint32
	Leds     *uint32
	Dpis     *uint32
	DPIRange *capability.DPIRange
	Wireless bool
}

// Entry is one parsed .device file.
type Entry struct {
	// File is the path the entry was loaded from.
	File string

	Name       string
	Driver     string
	DeviceType string
	Matches    []Match

	// Config is nil when the file has no section for its driver.
	Config *DriverConfig
}

// Parse parses a .device document.
func Parse(data []byte) (*Entry, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return nil, &LoadError{Message: "failed to parse INI", Cause: err}
	}

	sec, err := cfg.GetSection("device")
	if err != nil {
		return nil, &LoadError{Message: "missing [Device] section"}
	}
	e := &Entry{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &e.Name},
		{"driver", &e.Driver},
	} {
		if !sec.HasKey(f.key) || sec.Key(f.key).String() == "" {
			return nil, &LoadError{Message: fmt.Sprintf("missing [Device] %s", f.key)}
		}
		*f.dst = sec.Key(f.key).String()
	}
	e.DeviceType = sec.Key("devicetype").String()

	e.Matches, err = ParseMatches(sec.Key("devicematch").String())
	if err != nil {
		return nil, &LoadError{Message: "invalid DeviceMatch", Cause: err}
	}

	if dsec, err := cfg.GetSection("driver/" + strings.ToLower(e.Driver)); err == nil {
		e.Config = parseDriverConfig(dsec)
	}
	return e, nil
}

// ParseMatches parses a semicolon-separated DeviceMatch value such as
// "usb:046d:c539;bluetooth:046d:b025".
func ParseMatches(s string) ([]Match, error) {
	var out []Match
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seg := strings.Split(part, ":")
		if len(seg) != 3 {
			return nil, fmt.Errorf("pattern %q: want bus:vid:pid", part)
		}
		vid, err := strconv.ParseUint(seg[1], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: vendor id: %w", part, err)
		}
		pid, err := strconv.ParseUint(seg[2], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: product id: %w", part, err)
		}
		out = append(out, Match{Bus: BusType(seg[0]), VID: uint16(vid), PID: uint16(pid)})
	}
	if len(out) == 0 {
		return nil, errors.New("no patterns")
	}
	return out, nil
}

// ParseDPIRange parses "min:max@step". Malformed, inverted or zero-step
// ranges yield false.
func ParseDPIRange(s string) (capability.DPIRange, bool) {
	bounds, step, ok := strings.Cut(s, "@")
	if !ok {
		return capability.DPIRange{}, false
	}
	lo, hi, ok := strings.Cut(bounds, ":")
	if !ok {
		return capability.DPIRange{}, false
	}
	var vals [3]uint64
	for i, v := range []string{lo, hi, step} {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return capability.DPIRange{}, false
		}
		vals[i] = n
	}
	r := capability.DPIRange{Min: uint32(vals[0]), Max: uint32(vals[1]), Step: uint32(vals[2])}
	if r.Step == 0 || r.Min > r.Max {
		return capability.DPIRange{}, false
	}
	return r, true
}

func parseDriverConfig(sec *ini.Section) *DriverConfig {
	c := &DriverConfig{
		Profiles: count(sec, "profiles"),
		Buttons:  count(sec, "buttons"),
		Leds:     count(sec, "leds"),
		Dpis:     count(sec, "dpis"),
	}
	if w, err := sec.Key("wireless").Uint(); err == nil {
		c.Wireless = w != 0
	}
	if sec.HasKey("dpirange") {
		if r, ok := ParseDPIRange(sec.Key("dpirange").String()); ok {
			c.DPIRange = &r
		}
	}
	return c
}

// count reads an optional unsigned key; unparsable values count as absent.
func count(sec *ini.Section, key string) *uint32 {
	if !sec.HasKey(key) {
		return nil
	}
	v, err := sec.Key(key).Uint()
	if err != nil {
		return nil
	}
	n := uint32(v)
	return &n
}
