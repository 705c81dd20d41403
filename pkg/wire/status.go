package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusUnknownObject indicates no object lives at the path.
	StatusUnknownObject Status = 1

	// StatusUnknownMember indicates the object has no such property or
	// method.
	StatusUnknownMember Status = 2

	// StatusReadOnly indicates an attempt to write a read-only property.
	StatusReadOnly Status = 3

	// StatusInvalidArgs indicates a payload of the wrong shape or type.
	StatusInvalidArgs Status = 4

	// StatusValidation indicates a value outside its allowed set or range.
	StatusValidation Status = 5

	// StatusState indicates an operation invalid in the current state.
	StatusState Status = 6

	// StatusSpec indicates a device description that violates an invariant.
	StatusSpec Status = 7

	// StatusCommit indicates a failed commit; state was rolled back.
	StatusCommit Status = 8

	// StatusInternal indicates an unexpected daemon failure.
	StatusInternal Status = 9

	// StatusUnsupported indicates the operation is not supported.
	StatusUnsupported Status = 10
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusUnknownObject:
		return "UNKNOWN_OBJECT"
	case StatusUnknownMember:
		return "UNKNOWN_MEMBER"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusInvalidArgs:
		return "INVALID_ARGS"
	case StatusValidation:
		return "VALIDATION"
	case StatusState:
		return "STATE"
	case StatusSpec:
		return "SPEC"
	case StatusCommit:
		return "COMMIT"
	case StatusInternal:
		return "INTERNAL"
	case StatusUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
