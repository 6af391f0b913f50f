// Package server exposes the answer pipeline over HTTP.
//
// Routes:
//
//	POST /chat    JSON {"question": "..."} -> {"question", "answer", "citations"}
//	GET  /health  liveness probe
//	GET  /        HTML form
//	POST /        HTML form submission
//
// Every request passes through request id tagging, access logging and a
// shared token bucket rate limit.
package server
