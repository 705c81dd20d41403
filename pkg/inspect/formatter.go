package inspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/capability"
	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// Formatter formats inspection output.
type Formatter struct {
	// Raw prints wire values without translating enums and colors.
	Raw bool

	// ShowAccess appends the member access ("r", "rw") to each property.
	ShowAccess bool

	// IndentWidth is the number of spaces per indent level.
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{IndentWidth: 2}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a decoded wire value without member knowledge.
func (f *Formatter) FormatValue(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("0x%x", v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = f.FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprintf("%q", item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}

	if n, ok := wire.ExtractUint(value); ok {
		return fmt.Sprintf("%d", n)
	}
	if n, ok := wire.ExtractInt(value); ok {
		return fmt.Sprintf("%d", n)
	}
	if ns, ok := wire.ExtractUintSlice(value); ok {
		parts := make([]string, len(ns))
		for i, n := range ns {
			parts[i] = fmt.Sprintf("%d", n)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", value)
}

// FormatMember formats the value of kind.member, translating enum values,
// colors, resolutions and mappings into the forms ParseValue accepts.
// Values that do not decode fall back to FormatValue.
func (f *Formatter) FormatMember(kind interaction.Kind, member string, value any) string {
	if f.Raw {
		return f.FormatValue(value)
	}

	switch {
	case kind == interaction.KindResolution && member == "Resolution":
		if x, y, err := wire.DecodeDPI(value); err == nil {
			return FormatDPI(model.DPI{X: x, Y: y})
		}
	case kind == interaction.KindResolution && member == "Capabilities":
		if caps, ok := wire.ExtractUintSlice(value); ok {
			return formatList(caps, func(n uint64) string {
				return FormatResolutionCapability(capability.ResolutionCapability(n))
			})
		}
	case kind == interaction.KindButton && member == "Mapping":
		if m, err := interaction.DecodeMapping(value); err == nil {
			return FormatMapping(m)
		}
	case kind == interaction.KindButton && member == "ActionTypes":
		if types, ok := wire.ExtractUintSlice(value); ok {
			return formatList(types, func(n uint64) string { return capability.ActionType(n).String() })
		}
	case kind == interaction.KindLed && member == "Mode":
		if n, ok := wire.ExtractUint(value); ok {
			return capability.LedMode(n).String()
		}
	case kind == interaction.KindLed && member == "Modes":
		if modes, ok := wire.ExtractUintSlice(value); ok {
			return formatList(modes, func(n uint64) string { return capability.LedMode(n).String() })
		}
	case kind == interaction.KindLed && member == "ColorDepth":
		if n, ok := wire.ExtractUint(value); ok {
			return capability.ColorDepth(n).String()
		}
	case kind == interaction.KindLed && strings.HasSuffix(member, "Color"):
		if c, err := wire.DecodeColor(value); err == nil {
			return FormatColor(c)
		}
	}
	return f.FormatValue(value)
}

// FormatProperties formats a GetAll payload as "Name: value" lines in
// member table order. Properties the table does not know are appended in
// name order.
func (f *Formatter) FormatProperties(kind interaction.Kind, props wire.GetAllPayload, depth int) string {
	var sb strings.Builder
	seen := make(map[string]bool, len(props))
	for _, m := range interaction.Members(kind) {
		v, ok := props[m.Name]
		if !ok {
			continue
		}
		seen[m.Name] = true
		f.writeProperty(&sb, depth, kind, m.Name, m.Access, v)
	}

	rest := make([]string, 0)
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		f.writeProperty(&sb, depth, kind, name, interaction.AccessRead, props[name])
	}
	return sb.String()
}

func (f *Formatter) writeProperty(sb *strings.Builder, depth int, kind interaction.Kind, name string, access interaction.Access, v any) {
	line := fmt.Sprintf("%s: %s", name, f.FormatMember(kind, name, v))
	if f.ShowAccess {
		line += fmt.Sprintf(" (%s)", access)
	}
	sb.WriteString(f.Indent(depth, line))
	sb.WriteString("\n")
}

// FormatDPI formats a resolution as "800" or "800x1600".
func FormatDPI(d model.DPI) string {
	if d.X == d.Y {
		return fmt.Sprintf("%d", d.X)
	}
	return fmt.Sprintf("%dx%d", d.X, d.Y)
}

// FormatColor formats a color as "#rrggbb". Channels above 255 fall back
// to "r,g,b".
func FormatColor(c [3]uint32) string {
	if c[0] > 0xff || c[1] > 0xff || c[2] > 0xff {
		return fmt.Sprintf("%d,%d,%d", c[0], c[1], c[2])
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// FormatResolutionCapability formats a resolution capability flag.
func FormatResolutionCapability(c capability.ResolutionCapability) string {
	switch c {
	case capability.CapSeparateXY:
		return "separate-xy"
	case capability.CapDisable:
		return "disable"
	default:
		return fmt.Sprintf("cap(%d)", uint32(c))
	}
}

func formatList(ns []uint64, name func(uint64) string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = name(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
