// Package postgres provides the PostgreSQL implementation of the durable task
// record store defined in the internal/store package, together with its
// embedded goose migrations. Connections are opened through the pgx stdlib
// driver so the store works against a plain *sql.DB.
package postgres
