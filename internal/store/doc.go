// Package store defines the durable persistence contract for task records,
// the sentinel errors every implementation maps its driver errors onto, and
// small database/sql helpers shared by the Postgres and SQLite backends.
package store
