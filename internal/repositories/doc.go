// Package repositories implements SQLite persistence for the todo list, user settings and the mirror instance cache.
//
// Key Implementations:
//   - [TodoRepository] : playlist videos keyed by watch path, with soft deletes and completion state
//   - [SettingsRepository] : key-value preferences (API key, chosen mirror base)
//   - [InstanceRepository] : results of the last discovery run, ranked by popularity
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
