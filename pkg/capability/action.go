package capability

import (
	"fmt"
	"strings"
)

// ActionType tags the kind of action a button is mapped to.
type ActionType uint32

const (
	ActionNone    ActionType = 0
	ActionButton  ActionType = 1
	ActionSpecial ActionType = 2
	ActionKey     ActionType = 3
	ActionMacro   ActionType = 4

	// ActionUnknown is reported for mappings the device could not decode.
	// It is never accepted by a setter.
	ActionUnknown ActionType = 1000
)

// DefaultActionTypes is the action set a button supports unless its
// description narrows it.
var DefaultActionTypes = []ActionType{ActionNone, ActionButton, ActionSpecial, ActionKey, ActionMacro}

// String returns the lower-case action name used in device descriptions.
func (a ActionType) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionButton:
		return "button"
	case ActionSpecial:
		return "special"
	case ActionKey:
		return "key"
	case ActionMacro:
		return "macro"
	case ActionUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("action(%d)", uint32(a))
	}
}

// IsKnown reports whether a is one of the settable action types.
func (a ActionType) IsKnown() bool {
	return a <= ActionMacro
}

// ParseActionType parses an action name ("none", "button", ...).
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ActionNone, nil
	case "button":
		return ActionButton, nil
	case "special":
		return ActionSpecial, nil
	case "key":
		return ActionKey, nil
	case "macro":
		return ActionMacro, nil
	}
	return 0, fmt.Errorf("%w: unknown action type %q", ErrNotInSet, s)
}

// MacroEventType is the kind of a single macro step.
type MacroEventType uint32

const (
	MacroNone    MacroEventType = 0
	MacroPress   MacroEventType = 1
	MacroRelease MacroEventType = 2
	MacroWait    MacroEventType = 3
)

// MacroEvent is one step of a macro. For MacroWait, Value is a delay in
// milliseconds; otherwise it is a keycode.
type MacroEvent struct {
	Type  MacroEventType
	Value uint32
}

// Validate checks the event type is a real macro step.
func (e MacroEvent) Validate() error {
	if e.Type < MacroPress || e.Type > MacroWait {
		return fmt.Errorf("%w: macro event type %d", ErrNotInSet, e.Type)
	}
	return nil
}
