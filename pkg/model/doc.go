// Package model implements the ratbag device object graph.
//
// # Hierarchy
//
//	Device (testdevice0)
//	├── Profile 0
//	│   ├── Resolution 0..n
//	│   ├── Button 0..n
//	│   └── Led 0..n
//	└── Profile 1
//	    └── ...
//
// A Device owns the state of every entity below it as plain values indexed
// by position. Profile, Resolution, Button and Led are handles: a device
// pointer plus indices. Every read takes the device read lock and every
// mutation takes the device write lock, so mutations on one device are
// serialized while different devices proceed independently.
//
// # Exclusivity
//
// At most one profile per device is active, and at most one resolution per
// profile is active and at most one is default. SetActive and SetDefault
// flip the flags of the whole sibling collection inside one critical
// section, so no reader can observe zero or two active entities mid-update.
//
// # Dirty tracking and commit
//
// Every successful setter marks the owning profile dirty. Device.Commit
// hands a deep copy of all dirty profiles to the device's Applier while
// holding the write lock. Only when the Applier succeeds are the dirty
// flags cleared; on failure nothing changes and a *CommitError is returned.
//
// # Errors
//
// Failures are typed: *ValidationError, *StateError, *SpecError,
// *CommitError and *ConnectionError. Each matches its sentinel with
// errors.Is (ErrValidation, ErrState, ...). A failed call never changes
// observable state.
package model
