// Package persistence journals committed changesets.
//
// A Journal records every changeset a device commits. Two backends are
// provided: an SQLite database and a JSON file. NewApplier wraps a device's
// Applier so the journal entry and the apply succeed or fail together: the
// entry is written inside a transaction that is only committed once the
// wrapped Applier accepts the changeset.
package persistence
