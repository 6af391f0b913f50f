package server

import "errors"

// ErrAnswererRequired is returned when a Server is built without an answerer.
var ErrAnswererRequired = errors.New("answerer is required")

const (
	msgMissingQuestion = "Missing 'question' in request body"
	msgRateLimited     = "rate limit exceeded"
)
