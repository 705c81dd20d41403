// Package capability holds the static value sets and ranges that constrain
// what a device entity property may be set to.
//
// The registry is read-only. Entities in pkg/model keep their own allowed
// sets (ReportRates, Resolutions, ActionTypes, Modes) which are seeded from
// the defaults here or from a device description, and validate against them
// with the helpers in this package.
package capability
