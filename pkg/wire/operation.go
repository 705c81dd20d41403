package wire

// Operation represents a protocol operation.
type Operation uint8

const (
	// OpGet reads one property.
	OpGet Operation = 1

	// OpSet writes one property.
	OpSet Operation = 2

	// OpCall invokes a method with an optional argument.
	OpCall Operation = 3

	// OpGetAll reads every property of an object.
	OpGetAll Operation = 4
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpGet:
		return "Get"
	case OpSet:
		return "Set"
	case OpCall:
		return "Call"
	case OpGetAll:
		return "GetAll"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is a valid protocol operation.
func (o Operation) IsValid() bool {
	return o >= OpGet && o <= OpGetAll
}
