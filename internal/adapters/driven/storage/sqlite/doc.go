// Package sqlite provides a unified SQLite-based implementation of the
// guestmail store interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database file backs every store:
//
//   - CategorizationStore: one classification per message
//   - SummaryStore: message summaries
//   - UnsubscribeStore: unsubscribe candidates
//   - BookingStore and DigestStore: extracted reservations and daily reports
//   - SyncRunStore: the append-only run log
//   - SchedulerStore: scheduled task state and history
//
// # Uniqueness
//
// Duplicate detection is done by the database. Inserts use ON CONFLICT DO
// NOTHING against a unique column and report domain.ErrDuplicate when no row
// was written, so a concurrent writer cannot slip a second row in between a
// check and an insert.
//
// # Schema
//
// The schema is managed through versioned migrations in migrations/. Each
// migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.guestmail/data/guestmail.db
package sqlite
