// Package store persists the file party's state records in SQLite.
//
// The store keeps the latest codec.StateData per state type. Records are
// written by the engine whenever the file synchronizer emits a change and
// read back once at startup, so ventilation requests survive a restart.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// Schema changes are applied through PRAGMA user_version migrations.
package store
