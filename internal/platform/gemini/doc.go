// Package gemini answers question batches with Google's Gemini API.
//
// Answerer renders the generation prompt for a batch, requests a JSON
// response from the configured model and parses it into one answer per
// question. Transient API failures are retried with exponential backoff and
// jitter; safety blocks and malformed responses are not retried.
package gemini
