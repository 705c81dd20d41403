package capability

import "fmt"

// ResolutionCapability is a feature flag carried by a resolution.
type ResolutionCapability uint32

const (
	// CapSeparateXY means X and Y DPI can be set independently.
	CapSeparateXY ResolutionCapability = 1

	// CapDisable means the resolution can be disabled.
	CapDisable ResolutionCapability = 2
)

// Report rate defaults in Hz.
const DefaultReportRate = 1000

// DefaultReportRates is the report rate set a profile supports unless its
// description narrows it.
var DefaultReportRates = []uint32{125, 250, 500, 1000}

// Default DPI values.
const (
	DefaultDPI     = 1000
	DefaultDPIStep = 100
)

// DPIRange describes an inclusive DPI range walked in Step increments.
type DPIRange struct {
	Min  uint32
	Max  uint32
	Step uint32
}

// Validate rejects inverted ranges and a zero step on a non-degenerate range.
func (r DPIRange) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: dpi range %d > %d", ErrOutOfRange, r.Min, r.Max)
	}
	if r.Step == 0 && r.Min != r.Max {
		return fmt.Errorf("%w: dpi step is zero", ErrOutOfRange)
	}
	return nil
}

// Values expands the range into its DPI list. A degenerate range yields a
// single value.
func (r DPIRange) Values() []uint32 {
	if r.Min == r.Max || r.Step == 0 {
		return []uint32{r.Min}
	}
	out := make([]uint32, 0, (r.Max-r.Min)/r.Step+1)
	for v := r.Min; v <= r.Max; v += r.Step {
		out = append(out, v)
		if v > r.Max-r.Step {
			break
		}
	}
	return out
}

// Angle snapping and debounce sentinels.
const (
	// Unsupported marks an optional profile setting the device lacks.
	Unsupported = -1
)

// ValidateAngleSnapping accepts -1 (unsupported), 0 and 1.
func ValidateAngleSnapping(v int32) error {
	if v < Unsupported || v > 1 {
		return fmt.Errorf("%w: angle snapping %d", ErrOutOfRange, v)
	}
	return nil
}

// ValidateDebounce accepts -1, or any non-negative value that is a member of
// allowed when allowed is non-empty.
func ValidateDebounce(v int32, allowed []uint32) error {
	if v < Unsupported {
		return fmt.Errorf("%w: debounce %d", ErrOutOfRange, v)
	}
	if v == Unsupported || len(allowed) == 0 {
		return nil
	}
	return Member(uint32(v), allowed, "debounce")
}
