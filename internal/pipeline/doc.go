// Package pipeline runs one uploaded question paper through the answer
// generation stages: text extraction, question identification, optional
// reference notes, batched answering and document rendering.
//
// Every stage transition is written to a Tracker before the stage starts, so
// a poller always sees the stage currently in progress. Any failure, including
// a panic, ends the run with the record in the error state.
package pipeline
