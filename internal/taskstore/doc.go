// Package taskstore keeps the two views of every task record in step: a
// volatile cache that serves polling while a pipeline runs, and the durable
// store that survives restarts and backs history.
//
// Writes go to the cache first and the durable store second, with no
// transaction spanning the two. A crash between the writes leaves the views
// briefly inconsistent; the next write or a restart recovery converges them.
package taskstore
