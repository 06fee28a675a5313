// Package task runs background work off the request path. Each submitted
// task gets its own goroutine and a Handle the caller can wait on; an
// optional bound limits how many tasks execute at once.
package task
