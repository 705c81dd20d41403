package model

import (
	"fmt"
	"regexp"
)

// RootPath is the object path of the manager. Every other entity path
// extends it.
const RootPath = "/org/freedesktop/ratbag1"

var sysnamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidSysname reports whether s can be used as a path element.
func ValidSysname(s string) bool {
	return sysnamePattern.MatchString(s)
}

// DevicePath returns the object path of a device.
func DevicePath(sysname string) string {
	return RootPath + "/device/" + sysname
}

// ProfilePath returns the object path of profile p.
func ProfilePath(sysname string, p int) string {
	return fmt.Sprintf("%s/p%d", DevicePath(sysname), p)
}

// ResolutionPath returns the object path of resolution r in profile p.
func ResolutionPath(sysname string, p, r int) string {
	return fmt.Sprintf("%s/r%d", ProfilePath(sysname, p), r)
}

// ButtonPath returns the object path of button b in profile p.
func ButtonPath(sysname string, p, b int) string {
	return fmt.Sprintf("%s/b%d", ProfilePath(sysname, p), b)
}

// LedPath returns the object path of LED l in profile p.
func LedPath(sysname string, p, l int) string {
	return fmt.Sprintf("%s/l%d", ProfilePath(sysname, p), l)
}
