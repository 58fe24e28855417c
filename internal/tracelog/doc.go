// Package tracelog persists dispatched actions to SQLite so a session can be
// inspected after the fact.
//
// The log is append-only. Every record carries a logical sequence number
// issued by the Recorder; wall-clock time is never used for ordering. Payloads are stored
// as canonical JSON (package canon) so identical payloads produce identical
// rows across runs.
//
// Records are correlated by key: payloads that implement Correlated (all
// navigation events do) store their key, which lets a single navigation be
// read back in order with ReadByKey.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000ms
//   - one open connection (single writer)
package tracelog
