// Package cache is the persisted, per-user read-through cache of memory
// records.
//
// # Overview
//
// Each user owns one entry under the key "memoriesCache_<userId>" holding
// the JSON document {records, fetchedAt}. A Store reads, replaces and clears
// whole entries; deciding whether an entry is still usable is left to the
// caller through IsFresh, so different call sites can apply different TTLs.
//
// Reads never fail: a missing row, an unreadable database or malformed JSON
// all look like a cold cache. Corruption is logged and otherwise ignored.
//
// # Implementations
//
//   - SQLiteStore: a single SQLite file in the data directory, shared by every
//     client process of the same user profile. Schema managed by goose.
//   - MemoryStore: process-local map, for tests and ephemeral sessions.
//
// fetchedAt never moves backwards for a user, even if the wall clock does.
package cache
