package inspect

import (
	"strings"

	"github.com/libratbag/ratbag-go/pkg/interaction"
)

// memberAliases are short names accepted on the command line.
var memberAliases = map[interaction.Kind]map[string]string{
	interaction.KindProfile: {
		"rate":   "ReportRate",
		"active": "IsActive",
	},
	interaction.KindResolution: {
		"dpi":     "Resolution",
		"dpis":    "Resolutions",
		"active":  "IsActive",
		"default": "IsDefault",
		"caps":    "Capabilities",
	},
	interaction.KindButton: {
		"action": "Mapping",
	},
	interaction.KindLed: {
		"color2":   "SecondaryColor",
		"color3":   "TertiaryColor",
		"depth":    "ColorDepth",
		"duration": "EffectDuration",
	},
}

// ResolveMemberName resolves a member name or alias of kind to its canonical
// spelling (case-insensitive).
func ResolveMemberName(kind interaction.Kind, name string) (string, bool) {
	lname := strings.ToLower(name)
	for _, m := range interaction.Members(kind) {
		if strings.ToLower(m.Name) == lname {
			return m.Name, true
		}
	}
	if canonical, ok := memberAliases[kind][lname]; ok {
		return canonical, true
	}
	return "", false
}

// MemberNames returns the member names of kind in display order.
func MemberNames(kind interaction.Kind) []string {
	members := interaction.Members(kind)
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}
