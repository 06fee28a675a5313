// Package service holds the application use cases behind the HTTP API and
// the CLI: accepting a paper submission and starting its background
// processing, and answering status, history and download queries.
//
// Services depend on narrow interfaces over the task store and the task
// runner, never on a concrete storage backend.
package service
