// Package stores provides persistence for settled operation outcomes.
// It includes SQLite-based storage with WAL mode, connection pooling,
// embedded schema migrations, and query helpers for inspecting the
// history of apply and delete operations per unit.
package stores
