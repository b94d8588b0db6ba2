// Package store provides SQLite-backed durable storage for inspection records.
//
// The store owns a single table, inspections, keyed by an auto-assigned
// integer id. Records are append-only: there is no update or delete path.
//
// # Ordering
//
// Every list query orders by timestamp DESC, id DESC so that repeated queries
// over an unchanged table return the same order even when timestamps tie.
//
// # Concurrency
//
//   - Writer: one connection, so inserts are serialized and ids are never
//     assigned twice.
//   - Readers: a separate read-only pool. WAL mode lets reads proceed while a
//     write is in flight; each query is a single statement and so observes one
//     committed snapshot.
//   - Change feed: every committed insert signals all registered subscribers
//     without blocking the writer.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: An insert returns only after it is durable
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The schema is fixed. PRAGMA user_version is stamped with the schema
// version, and databases written by a newer schema are refused.
package store
