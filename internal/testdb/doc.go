// Package testdb provides database fixtures for tests: a migrated SQLite
// database in a per-test temporary directory and the task record store
// built on it. Each fixture registers its own cleanup with t.Cleanup.
package testdb
