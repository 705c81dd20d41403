package interaction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/model"
)

// ErrInvalidPath is returned for strings that are not ratbag object paths.
var ErrInvalidPath = errors.New("invalid object path")

// Kind identifies the entity an object path refers to.
type Kind uint8

const (
	KindManager Kind = iota
	KindDevice
	KindProfile
	KindResolution
	KindButton
	KindLed
)

// String returns the entity name.
func (k Kind) String() string {
	switch k {
	case KindManager:
		return "Manager"
	case KindDevice:
		return "Device"
	case KindProfile:
		return "Profile"
	case KindResolution:
		return "Resolution"
	case KindButton:
		return "Button"
	case KindLed:
		return "Led"
	default:
		return "Unknown"
	}
}

// ObjectPath is a parsed object path. Profile and Index are -1 when the
// path does not reach that level.
type ObjectPath struct {
	Kind    Kind
	Sysname string
	Profile int
	Index   int
}

// ParsePath parses an object path such as
// /org/freedesktop/ratbag1/device/testdevice0/p1/r0.
func ParsePath(s string) (ObjectPath, error) {
	p := ObjectPath{Kind: KindManager, Profile: -1, Index: -1}
	if s == model.RootPath {
		return p, nil
	}
	rest, ok := strings.CutPrefix(s, model.RootPath+"/device/")
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}

	parts := strings.Split(rest, "/")
	if len(parts) > 3 || !model.ValidSysname(parts[0]) {
		return p, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	p.Kind = KindDevice
	p.Sysname = parts[0]

	if len(parts) >= 2 {
		n, ok := indexElement(parts[1], 'p')
		if !ok {
			return p, fmt.Errorf("%w: %q: bad profile element %q", ErrInvalidPath, s, parts[1])
		}
		p.Kind = KindProfile
		p.Profile = n
	}

	if len(parts) == 3 {
		elem := parts[2]
		if elem == "" {
			return p, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		n, ok := indexElement(elem, elem[0])
		if !ok {
			return p, fmt.Errorf("%w: %q: bad element %q", ErrInvalidPath, s, elem)
		}
		switch elem[0] {
		case 'r':
			p.Kind = KindResolution
		case 'b':
			p.Kind = KindButton
		case 'l':
			p.Kind = KindLed
		default:
			return p, fmt.Errorf("%w: %q: bad element %q", ErrInvalidPath, s, elem)
		}
		p.Index = n
	}
	return p, nil
}

// indexElement parses "<prefix><n>" with a plain decimal n.
func indexElement(elem string, prefix byte) (int, bool) {
	if len(elem) < 2 || elem[0] != prefix {
		return 0, false
	}
	digits := elem[1:]
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// String returns the canonical path.
func (p ObjectPath) String() string {
	switch p.Kind {
	case KindDevice:
		return model.DevicePath(p.Sysname)
	case KindProfile:
		return model.ProfilePath(p.Sysname, p.Profile)
	case KindResolution:
		return model.ResolutionPath(p.Sysname, p.Profile, p.Index)
	case KindButton:
		return model.ButtonPath(p.Sysname, p.Profile, p.Index)
	case KindLed:
		return model.LedPath(p.Sysname, p.Profile, p.Index)
	default:
		return model.RootPath
	}
}
