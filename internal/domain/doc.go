// Package domain contains the core business entities of the application: the
// task record that tracks one submission through the processing pipeline, its
// status state machine, and the question and answer values the pipeline moves
// between collaborators.
package domain
