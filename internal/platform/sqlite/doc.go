// Package sqlite provides the embedded SQLite implementation of the durable
// task record store, used when no Postgres connection string is configured.
// It relies on the pure-Go modernc.org/sqlite driver.
package sqlite
