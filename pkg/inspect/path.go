// Package inspect provides object inspection and property manipulation
// utilities for ratbagctl.
//
// The inspect package offers:
//   - Parsing shorthand path expressions (e.g., "testdevice0/p0/r1/Resolution")
//   - Resolving member names case-insensitively
//   - Parsing command line values into wire values
//   - Walking and formatting the object tree of a daemon
package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/model"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// ManagerElement addresses the manager in a shorthand path.
const ManagerElement = "manager"

// Path represents a parsed inspection path.
// Format: <sysname>[/p<i>[/r<j>|/b<j>|/l<j>]][/Member] or manager[/Member];
// full object paths are accepted as well.
type Path struct {
	// Object is the full object path.
	Object string

	// Kind is the entity kind Object refers to.
	Kind interaction.Kind

	// Member is the property or method name, or "" for the whole object.
	// Known members are normalized to their canonical spelling.
	Member string

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path expression.
//
// Supported formats:
//   - "testdevice0" - a device
//   - "testdevice0/p1/r0" - a resolution
//   - "testdevice0/p1/b3/Mapping" - a button property
//   - "manager/Devices" - a manager property
//   - "/org/freedesktop/ratbag1/device/testdevice0/p1/Name" - full form
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}

	short, err := shorthand(input)
	if err != nil {
		return nil, err
	}

	elems := strings.Split(short, "/")
	p := &Path{Raw: input}
	if n := len(elems); n > 1 && !isEntityElement(elems[n-1]) {
		p.Member = elems[n-1]
		elems = elems[:n-1]
	}
	if p.Member == "" && strings.HasSuffix(short, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, input)
	}

	object := model.RootPath
	if elems[0] != ManagerElement {
		object = model.DevicePath(strings.Join(elems, "/"))
	} else if len(elems) > 1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, input)
	}

	op, err := interaction.ParsePath(object)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, input)
	}
	p.Object = op.String()
	p.Kind = op.Kind

	if p.Member != "" {
		if name, ok := ResolveMemberName(p.Kind, p.Member); ok {
			p.Member = name
		}
	}
	return p, nil
}

// String returns the full object path, with "/Member" appended if set.
func (p *Path) String() string {
	if p.Member == "" {
		return p.Object
	}
	return p.Object + "/" + p.Member
}

// shorthand rewrites a full object path into the short form.
func shorthand(input string) (string, error) {
	if input == "/" {
		return ManagerElement, nil
	}
	if !strings.HasPrefix(input, "/") {
		return input, nil
	}

	rest, ok := strings.CutPrefix(input, model.RootPath)
	switch {
	case !ok:
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, input)
	case rest == "":
		return ManagerElement, nil
	case strings.HasPrefix(rest, "/device/"):
		return strings.TrimPrefix(rest, "/device/"), nil
	case strings.HasPrefix(rest, "/"):
		return ManagerElement + rest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, input)
	}
}

// isEntityElement reports whether s looks like p<i>, r<j>, b<j> or l<j>.
func isEntityElement(s string) bool {
	if len(s) < 2 || !strings.ContainsRune("prbl", rune(s[0])) {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
