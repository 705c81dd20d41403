package devicedb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/capability"
	"github.com/libratbag/ratbag-go/pkg/model"
)

// Extension is the file extension of database files.
const Extension = ".device"

// ErrUnsupported is returned for a probe no entry matches.
var ErrUnsupported = errors.New("unsupported device")

// LoadError provides details about a .device file that failed to load.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// LoadFile loads a single .device file.
func LoadFile(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	e, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	e.File = path
	return e, nil
}

// Database maps match patterns to entries. Entries with several patterns
// are shared.
type Database struct {
	entries map[Match]*Entry
}

// New builds a database from already parsed entries. A later entry wins a
// pattern claimed twice.
func New(entries ...*Entry) *Database {
	db := &Database{entries: make(map[Match]*Entry)}
	for _, e := range entries {
		for _, m := range e.Matches {
			db.entries[m] = e
		}
	}
	return db
}

// Load reads every .device file in dir. Files that fail to parse are logged
// and skipped; only an unreadable directory is an error.
func Load(dir string, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var entries []*Entry
	for _, f := range files {
		if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), Extension) {
			continue
		}
		e, err := LoadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			logger.Warn("skipping device file", "error", err)
			continue
		}
		logger.Debug("loaded device file", "name", e.Name, "patterns", len(e.Matches))
		entries = append(entries, e)
	}

	db := New(entries...)
	logger.Info("device database loaded", "dir", dir, "files", len(entries), "patterns", db.Len())
	return db, nil
}

// Len returns the number of match patterns.
func (db *Database) Len() int {
	return len(db.entries)
}

// Lookup returns the entry matching a pattern.
func (db *Database) Lookup(m Match) (*Entry, bool) {
	e, ok := db.entries[m]
	return e, ok
}

// Matches returns every known pattern, sorted.
func (db *Database) Matches() []Match {
	out := make([]Match, 0, len(db.entries))
	for m := range db.entries {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Match) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Probe describes a physical device found on a bus.
type Probe struct {
	Sysname string
	Name    string
	BusType uint16
	VID     uint16
	PID     uint16
}

// Match returns the probe's lookup pattern.
func (p Probe) Match() Match {
	return Match{Bus: BusTypeFromID(p.BusType), VID: p.VID, PID: p.PID}
}

// NewDevice looks the probe up and builds a live device from the matching
// entry.
func (db *Database) NewDevice(p Probe, applier model.Applier) (*model.Device, error) {
	e, ok := db.Lookup(p.Match())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, p.Match())
	}
	info, profiles := e.Build(p)
	return model.NewDevice(info, profiles, applier)
}

// Live device defaults.
const (
	DefaultLiveDPI        = 800
	DefaultLiveBrightness = capability.BrightnessMax
)

// DefaultLiveDPIs is the DPI list of an entry without a DpiRange.
var DefaultLiveDPIs = []uint32{800, 1600}

// Build expands an entry into the initial profile graph of a probed device.
// Profile 0 is active and resolution 0 of each profile is active and
// default. Button i maps to button i and LEDs start off.
func (e *Entry) Build(p Probe) (model.Info, []model.ProfileState) {
	name := p.Name
	if name == "" {
		name = e.Name
	}
	info := model.Info{
		Sysname: p.Sysname,
		Name:    name,
		Model:   fmt.Sprintf("%s:0", p.Match()),
	}

	cfg := e.Config
	if cfg == nil {
		cfg = &DriverConfig{}
	}
	numProfiles := deref(cfg.Profiles, 1)
	numButtons := deref(cfg.Buttons, 0)
	numLeds := deref(cfg.Leds, 0)
	numDpis := deref(cfg.Dpis, 1)

	dpis := slices.Clone(DefaultLiveDPIs)
	if cfg.DPIRange != nil {
		dpis = cfg.DPIRange.Values()
	}
	dpi := uint32(DefaultLiveDPI)
	if !slices.Contains(dpis, dpi) {
		dpi = dpis[0]
	}

	profiles := make([]model.ProfileState, numProfiles)
	for pi := range profiles {
		p := model.ProfileState{
			IsActive:      pi == 0,
			ReportRate:    capability.DefaultReportRate,
			ReportRates:   slices.Clone(capability.DefaultReportRates),
			AngleSnapping: capability.Unsupported,
			Debounce:      capability.Unsupported,
		}
		for ri := range numDpis {
			p.Resolutions = append(p.Resolutions, model.ResolutionState{
				DPI:         model.Unified(dpi),
				IsActive:    ri == 0,
				IsDefault:   ri == 0,
				Resolutions: slices.Clone(dpis),
			})
		}
		for bi := range numButtons {
			p.Buttons = append(p.Buttons, model.ButtonState{
				Mapping:     model.Mapping{Type: capability.ActionButton, Value: bi},
				ActionTypes: slices.Clone(capability.DefaultActionTypes),
			})
		}
		for range numLeds {
			p.Leds = append(p.Leds, model.LedState{
				Mode:       capability.LedOff,
				Modes:      slices.Clone(capability.DefaultLedModes),
				ColorDepth: capability.DepthRGB888,
				Brightness: DefaultLiveBrightness,
			})
		}
		profiles[pi] = p
	}
	return info, profiles
}

func deref(p *uint32, def uint32) uint32 {
	if p == nil {
		return def
	}
	return *p
}
