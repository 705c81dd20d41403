package interaction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/libratbag/ratbag-go/pkg/capability"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/testdevice"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// Dispatch errors. The server maps each onto a wire status.
var (
	ErrUnknownObject = errors.New("unknown object")
	ErrUnknownMember = errors.New("unknown member")
	ErrReadOnly      = errors.New("member is read-only")
	ErrInvalidArgs   = errors.New("invalid arguments")
	ErrUnsupported   = errors.New("operation not supported by member")
)

// Access describes what a member supports.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
	AccessCall
)

// String returns "r", "rw" or "call".
func (a Access) String() string {
	switch {
	case a&AccessCall != 0:
		return "call"
	case a&AccessWrite != 0:
		return "rw"
	default:
		return "r"
	}
}

// Registry is the device registry the server exposes as the Manager object.
type Registry interface {
	APIVersion() uint32
	Devices() []*model.Device
	Device(sysname string) (*model.Device, error)
	LoadTestDevice(spec *testdevice.Spec) (*model.Device, error)
	Reset()
	ResetTestDevice() error
}

// object is a resolved request target. Only the handles for its kind and
// the levels above it are set.
type object struct {
	registry Registry
	device   *model.Device
	profile  *model.Profile
	res      *model.Resolution
	button   *model.Button
	led      *model.Led
}

type (
	getter func(o *object) (any, error)
	setter func(o *object, v any) error
	method func(ctx context.Context, o *object, arg any) (any, error)
)

type member struct {
	get  getter
	set  setter
	call method
}

func (m member) access() Access {
	var a Access
	if m.get != nil {
		a |= AccessRead
	}
	if m.set != nil {
		a |= AccessWrite
	}
	if m.call != nil {
		a |= AccessCall
	}
	return a
}

// MemberInfo describes one member of an entity kind.
type MemberInfo struct {
	Name   string
	Access Access
}

// Members returns the members of kind in table order.
func Members(kind Kind) []MemberInfo {
	names := memberOrder[kind]
	out := make([]MemberInfo, 0, len(names))
	for _, n := range names {
		out = append(out, MemberInfo{Name: n, Access: memberTable[kind][n].access()})
	}
	return out
}

// LookupMember reports the access of a member, or false if kind has no
// member of that name.
func LookupMember(kind Kind, name string) (Access, bool) {
	m, ok := memberTable[kind][name]
	if !ok {
		return 0, false
	}
	return m.access(), true
}

var memberTable = map[Kind]map[string]member{
	KindManager: {
		"APIVersion":      {get: func(o *object) (any, error) { return o.registry.APIVersion(), nil }},
		"Devices":         {get: managerDevices},
		"LoadTestDevice":  {call: managerLoadTestDevice},
		"Reset":           {call: func(_ context.Context, o *object, _ any) (any, error) { o.registry.Reset(); return nil, nil }},
		"ResetTestDevice": {call: func(_ context.Context, o *object, _ any) (any, error) { return nil, o.registry.ResetTestDevice() }},
	},
	KindDevice: {
		"Sysname":         {get: func(o *object) (any, error) { return o.device.Sysname(), nil }},
		"Name":            {get: func(o *object) (any, error) { return o.device.Name(), nil }},
		"Model":           {get: func(o *object) (any, error) { return o.device.Model(), nil }},
		"FirmwareVersion": {get: func(o *object) (any, error) { return o.device.FirmwareVersion(), nil }},
		"Profiles":        {get: deviceProfiles},
		"IsDirty":         {get: func(o *object) (any, error) { return o.device.IsDirty(), nil }},
		"Commit":          {call: func(ctx context.Context, o *object, _ any) (any, error) { return nil, o.device.Commit(ctx) }},
	},
	KindProfile: {
		"Index":         {get: func(o *object) (any, error) { return uint32(o.profile.Index()), nil }},
		"Name":          {get: func(o *object) (any, error) { return o.profile.Name(), nil }, set: profileSetName},
		"IsActive":      {get: func(o *object) (any, error) { return o.profile.IsActive(), nil }},
		"Disabled":      {get: func(o *object) (any, error) { return o.profile.IsDisabled(), nil }, set: profileSetDisabled},
		"IsDirty":       {get: func(o *object) (any, error) { return o.profile.IsDirty(), nil }},
		"ReportRate":    {get: func(o *object) (any, error) { return o.profile.ReportRate(), nil }, set: profileSetReportRate},
		"ReportRates":   {get: func(o *object) (any, error) { return o.profile.ReportRates(), nil }},
		"AngleSnapping": {get: func(o *object) (any, error) { return o.profile.AngleSnapping(), nil }, set: profileSetAngleSnapping},
		"Debounce":      {get: func(o *object) (any, error) { return o.profile.Debounce(), nil }, set: profileSetDebounce},
		"Debounces":     {get: func(o *object) (any, error) { return o.profile.Debounces(), nil }},
		"Resolutions":   {get: profileResolutions},
		"Buttons":       {get: profileButtons},
		"Leds":          {get: profileLeds},
		"SetActive":     {call: func(_ context.Context, o *object, _ any) (any, error) { return nil, o.profile.SetActive() }},
	},
	KindResolution: {
		"Index":        {get: func(o *object) (any, error) { return uint32(o.res.Index()), nil }},
		"IsActive":     {get: func(o *object) (any, error) { return o.res.IsActive(), nil }},
		"IsDefault":    {get: func(o *object) (any, error) { return o.res.IsDefault(), nil }},
		"IsDisabled":   {get: func(o *object) (any, error) { return o.res.IsDisabled(), nil }, set: resolutionSetDisabled},
		"Capabilities": {get: resolutionCapabilities},
		"Resolutions":  {get: func(o *object) (any, error) { return o.res.Resolutions(), nil }},
		"Resolution":   {get: resolutionDPI, set: resolutionSetDPI},
		"SetActive":    {call: func(_ context.Context, o *object, _ any) (any, error) { return nil, o.res.SetActive() }},
		"SetDefault":   {call: func(_ context.Context, o *object, _ any) (any, error) { return nil, o.res.SetDefault() }},
	},
	KindButton: {
		"Index":       {get: func(o *object) (any, error) { return uint32(o.button.Index()), nil }},
		"Mapping":     {get: buttonMapping, set: buttonSetMapping},
		"ActionTypes": {get: buttonActionTypes},
	},
	KindLed: {
		"Index":          {get: func(o *object) (any, error) { return uint32(o.led.Index()), nil }},
		"Mode":           {get: func(o *object) (any, error) { return uint32(o.led.Mode()), nil }, set: ledSetMode},
		"Modes":          {get: ledModes},
		"Color":          {get: colorGetter((*model.Led).Color), set: colorSetter((*model.Led).SetColor)},
		"SecondaryColor": {get: colorGetter((*model.Led).SecondaryColor), set: colorSetter((*model.Led).SetSecondaryColor)},
		"TertiaryColor":  {get: colorGetter((*model.Led).TertiaryColor), set: colorSetter((*model.Led).SetTertiaryColor)},
		"ColorDepth":     {get: func(o *object) (any, error) { return uint32(o.led.ColorDepth()), nil }},
		"Brightness":     {get: func(o *object) (any, error) { return o.led.Brightness(), nil }, set: ledSetBrightness},
		"EffectDuration": {get: func(o *object) (any, error) { return o.led.EffectDuration(), nil }, set: ledSetEffectDuration},
	},
}

// memberOrder lists members for introspection in a stable order.
var memberOrder = map[Kind][]string{
	KindManager:    {"APIVersion", "Devices", "LoadTestDevice", "Reset", "ResetTestDevice"},
	KindDevice:     {"Sysname", "Name", "Model", "FirmwareVersion", "Profiles", "IsDirty", "Commit"},
	KindProfile:    {"Index", "Name", "IsActive", "Disabled", "IsDirty", "ReportRate", "ReportRates", "AngleSnapping", "Debounce", "Debounces", "Resolutions", "Buttons", "Leds", "SetActive"},
	KindResolution: {"Index", "IsActive", "IsDefault", "IsDisabled", "Capabilities", "Resolutions", "Resolution", "SetActive", "SetDefault"},
	KindButton:     {"Index", "Mapping", "ActionTypes"},
	KindLed:        {"Index", "Mode", "Modes", "Color", "SecondaryColor", "TertiaryColor", "ColorDepth", "Brightness", "EffectDuration"},
}

func managerDevices(o *object) (any, error) {
	devices := o.registry.Devices()
	paths := make([]string, len(devices))
	for i, d := range devices {
		paths[i] = d.Path()
	}
	return paths, nil
}

func managerLoadTestDevice(_ context.Context, o *object, arg any) (any, error) {
	var spec *testdevice.Spec
	if arg != nil {
		doc, ok := wire.ExtractString(arg)
		if !ok {
			return nil, fmt.Errorf("%w: LoadTestDevice takes a YAML or JSON document", ErrInvalidArgs)
		}
		parsed, err := testdevice.Parse([]byte(doc))
		if err != nil {
			return nil, err
		}
		spec = parsed
	}
	dev, err := o.registry.LoadTestDevice(spec)
	if err != nil {
		return nil, err
	}
	return dev.Path(), nil
}

func deviceProfiles(o *object) (any, error) {
	profiles := o.device.Profiles()
	paths := make([]string, len(profiles))
	for i, p := range profiles {
		paths[i] = p.Path()
	}
	return paths, nil
}

func profileResolutions(o *object) (any, error) {
	res := o.profile.Resolutions()
	paths := make([]string, len(res))
	for i, r := range res {
		paths[i] = r.Path()
	}
	return paths, nil
}

func profileButtons(o *object) (any, error) {
	buttons := o.profile.Buttons()
	paths := make([]string, len(buttons))
	for i, b := range buttons {
		paths[i] = b.Path()
	}
	return paths, nil
}

func profileLeds(o *object) (any, error) {
	leds := o.profile.Leds()
	paths := make([]string, len(leds))
	for i, l := range leds {
		paths[i] = l.Path()
	}
	return paths, nil
}

func profileSetName(o *object, v any) error {
	s, ok := wire.ExtractString(v)
	if !ok {
		return fmt.Errorf("%w: Name takes a string", ErrInvalidArgs)
	}
	return o.profile.SetName(s)
}

func profileSetDisabled(o *object, v any) error {
	b, ok := wire.ExtractBool(v)
	if !ok {
		return fmt.Errorf("%w: Disabled takes a bool", ErrInvalidArgs)
	}
	return o.profile.SetDisabled(b)
}

func profileSetReportRate(o *object, v any) error {
	n, err := uint32Arg("ReportRate", v)
	if err != nil {
		return err
	}
	return o.profile.SetReportRate(n)
}

func profileSetAngleSnapping(o *object, v any) error {
	n, err := int32Arg("AngleSnapping", v)
	if err != nil {
		return err
	}
	return o.profile.SetAngleSnapping(n)
}

func profileSetDebounce(o *object, v any) error {
	n, err := int32Arg("Debounce", v)
	if err != nil {
		return err
	}
	return o.profile.SetDebounce(n)
}

func resolutionSetDisabled(o *object, v any) error {
	b, ok := wire.ExtractBool(v)
	if !ok {
		return fmt.Errorf("%w: IsDisabled takes a bool", ErrInvalidArgs)
	}
	return o.res.SetDisabled(b)
}

func resolutionCapabilities(o *object) (any, error) {
	caps := o.res.Capabilities()
	out := make([]uint32, len(caps))
	for i, c := range caps {
		out[i] = uint32(c)
	}
	return out, nil
}

func resolutionDPI(o *object) (any, error) {
	dpi := o.res.DPI()
	if o.res.SeparateXY() {
		return []uint32{dpi.X, dpi.Y}, nil
	}
	return wire.EncodeDPI(dpi.X, dpi.Y), nil
}

func resolutionSetDPI(o *object, v any) error {
	x, y, err := wire.DecodeDPI(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return o.res.SetDPI(model.DPI{X: x, Y: y})
}

func buttonMapping(o *object) (any, error) {
	return EncodeMapping(o.button.Mapping()), nil
}

func buttonSetMapping(o *object, v any) error {
	m, err := DecodeMapping(v)
	if err != nil {
		return err
	}
	return o.button.SetMapping(m)
}

func buttonActionTypes(o *object) (any, error) {
	types := o.button.ActionTypes()
	out := make([]uint32, len(types))
	for i, t := range types {
		out[i] = uint32(t)
	}
	return out, nil
}

func ledSetMode(o *object, v any) error {
	n, err := uint32Arg("Mode", v)
	if err != nil {
		return err
	}
	return o.led.SetMode(capability.LedMode(n))
}

func ledModes(o *object) (any, error) {
	modes := o.led.Modes()
	out := make([]uint32, len(modes))
	for i, m := range modes {
		out[i] = uint32(m)
	}
	return out, nil
}

func ledSetBrightness(o *object, v any) error {
	n, err := uint32Arg("Brightness", v)
	if err != nil {
		return err
	}
	return o.led.SetBrightness(n)
}

func ledSetEffectDuration(o *object, v any) error {
	n, err := uint32Arg("EffectDuration", v)
	if err != nil {
		return err
	}
	return o.led.SetEffectDuration(n)
}

func colorGetter(fn func(*model.Led) capability.Color) getter {
	return func(o *object) (any, error) {
		c := fn(o.led)
		return wire.EncodeColor(c.Red, c.Green, c.Blue), nil
	}
}

func colorSetter(fn func(*model.Led, capability.Color) error) setter {
	return func(o *object, v any) error {
		c, err := wire.DecodeColor(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		return fn(o.led, capability.Color{Red: c[0], Green: c[1], Blue: c[2]})
	}
}

// EncodeMapping converts a model mapping to its wire value.
func EncodeMapping(m model.Mapping) any {
	w := wire.Mapping{Type: uint32(m.Type), Value: m.Value}
	for _, ev := range m.Macro {
		w.Macro = append(w.Macro, [2]uint32{uint32(ev.Type), ev.Value})
	}
	return wire.EncodeMapping(w, m.Type == capability.ActionMacro)
}

// DecodeMapping converts a wire value to a model mapping. Type checks
// against the button's ActionTypes happen in the model.
func DecodeMapping(v any) (model.Mapping, error) {
	w, err := wire.DecodeMapping(v)
	if err != nil {
		return model.Mapping{}, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	m := model.Mapping{Type: capability.ActionType(w.Type), Value: w.Value}
	for _, ev := range w.Macro {
		m.Macro = append(m.Macro, capability.MacroEvent{Type: capability.MacroEventType(ev[0]), Value: ev[1]})
	}
	return m, nil
}

func uint32Arg(name string, v any) (uint32, error) {
	n, ok := wire.ExtractUint(v)
	if !ok || n > math.MaxUint32 {
		if i, ok := wire.ExtractInt(v); ok && i < 0 {
			return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidArgs, name)
		}
		return 0, fmt.Errorf("%w: %s takes an unsigned integer", ErrInvalidArgs, name)
	}
	return uint32(n), nil
}

func int32Arg(name string, v any) (int32, error) {
	n, ok := wire.ExtractInt(v)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s takes a 32-bit integer", ErrInvalidArgs, name)
	}
	return int32(n), nil
}
