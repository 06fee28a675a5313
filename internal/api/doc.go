// Package api exposes submissions over HTTP: upload, status polling,
// history, output download and health probes. Handlers translate service
// errors into status codes and a {"error": "..."} body.
package api
