// Package database opens the PostgreSQL pool backing the delivery journal.
//
// The hub itself never needs a database. The pool exists only when
// journal.enabled is set, and holds delivery metadata, never file bytes.
package database
