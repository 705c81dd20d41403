package inspect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/capability"
	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/model"
)

// ErrInvalidValue is returned for command line values that do not parse.
var ErrInvalidValue = errors.New("invalid value")

// ParseValue converts a command line value for kind.member into the wire
// form the daemon expects.
//
// Accepted forms:
//
//	Resolution       800 | 800x1600
//	Color...         ff0000 | #ff0000 | 255,0,0
//	Mapping          none | button:3 | special:5 | key:30 | macro:+30,-30,t100
//	Mode             off | solid | cycle | color-wave | breathing | <number>
//	Disabled         true | false
//	AngleSnapping    -1 | 0 | 1 (also Debounce)
//	Name             any string
func ParseValue(kind interaction.Kind, member, input string) (any, error) {
	input = strings.TrimSpace(input)
	switch {
	case kind == interaction.KindResolution && member == "Resolution":
		return parseDPI(input)
	case kind == interaction.KindLed && strings.HasSuffix(member, "Color"):
		return parseColor(input)
	case kind == interaction.KindLed && member == "Mode":
		return parseLedMode(input)
	case kind == interaction.KindButton && member == "Mapping":
		m, err := ParseMapping(input)
		if err != nil {
			return nil, err
		}
		return interaction.EncodeMapping(m), nil
	case member == "Disabled" || member == "IsDisabled":
		b, err := strconv.ParseBool(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %s wants true or false", ErrInvalidValue, member)
		}
		return b, nil
	case member == "AngleSnapping" || member == "Debounce":
		n, err := strconv.ParseInt(input, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s wants an integer", ErrInvalidValue, member)
		}
		return n, nil
	case member == "Name":
		return input, nil
	default:
		n, err := strconv.ParseUint(input, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s wants an unsigned integer", ErrInvalidValue, member)
		}
		return n, nil
	}
}

func parseDPI(s string) (any, error) {
	xs, ys, separate := strings.Cut(s, "x")
	x, err := strconv.ParseUint(xs, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: dpi %q", ErrInvalidValue, s)
	}
	if !separate {
		return x, nil
	}
	y, err := strconv.ParseUint(ys, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: dpi %q", ErrInvalidValue, s)
	}
	return []uint64{x, y}, nil
}

func parseColor(s string) (any, error) {
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: color %q wants r,g,b", ErrInvalidValue, s)
		}
		out := make([]uint64, 3)
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: color channel %q", ErrInvalidValue, p)
			}
			out[i] = n
		}
		return out, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("%w: color %q wants rrggbb", ErrInvalidValue, s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: color %q wants rrggbb", ErrInvalidValue, s)
	}
	return []uint64{n >> 16, n >> 8 & 0xff, n & 0xff}, nil
}

func parseLedMode(s string) (any, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return n, nil
	}
	m, err := capability.ParseLedMode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return uint64(m), nil
}

// ParseMapping parses "<action>[:<value>]". Macro values are a comma list
// of +keycode (press), -keycode (release) and t<ms> (wait).
func ParseMapping(s string) (model.Mapping, error) {
	name, value, _ := strings.Cut(s, ":")
	action, err := capability.ParseActionType(name)
	if err != nil {
		return model.Mapping{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	m := model.Mapping{Type: action}
	switch action {
	case capability.ActionNone:
		return m, nil
	case capability.ActionMacro:
		for _, step := range strings.Split(value, ",") {
			ev, err := parseMacroStep(strings.TrimSpace(step))
			if err != nil {
				return model.Mapping{}, err
			}
			m.Macro = append(m.Macro, ev)
		}
		return m, nil
	default:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return model.Mapping{}, fmt.Errorf("%w: %s wants a number, got %q", ErrInvalidValue, action, value)
		}
		m.Value = uint32(n)
		return m, nil
	}
}

func parseMacroStep(step string) (capability.MacroEvent, error) {
	if step == "" {
		return capability.MacroEvent{}, fmt.Errorf("%w: empty macro step", ErrInvalidValue)
	}
	var t capability.MacroEventType
	switch step[0] {
	case '+':
		t = capability.MacroPress
	case '-':
		t = capability.MacroRelease
	case 't':
		t = capability.MacroWait
	default:
		return capability.MacroEvent{}, fmt.Errorf("%w: macro step %q", ErrInvalidValue, step)
	}
	n, err := strconv.ParseUint(step[1:], 10, 32)
	if err != nil {
		return capability.MacroEvent{}, fmt.Errorf("%w: macro step %q", ErrInvalidValue, step)
	}
	return capability.MacroEvent{Type: t, Value: uint32(n)}, nil
}

// FormatMapping is the inverse of ParseMapping.
func FormatMapping(m model.Mapping) string {
	switch m.Type {
	case capability.ActionNone:
		return "none"
	case capability.ActionMacro:
		steps := make([]string, len(m.Macro))
		for i, ev := range m.Macro {
			switch ev.Type {
			case capability.MacroPress:
				steps[i] = "+" + strconv.FormatUint(uint64(ev.Value), 10)
			case capability.MacroRelease:
				steps[i] = "-" + strconv.FormatUint(uint64(ev.Value), 10)
			case capability.MacroWait:
				steps[i] = "t" + strconv.FormatUint(uint64(ev.Value), 10)
			default:
				steps[i] = fmt.Sprintf("?%d:%d", ev.Type, ev.Value)
			}
		}
		return "macro:" + strings.Join(steps, ",")
	default:
		return fmt.Sprintf("%s:%d", m.Type, m.Value)
	}
}
