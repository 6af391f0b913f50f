package storage

import "errors"

// Sentinel errors shared by every repository implementation. Callers match
// them with errors.Is; implementations wrap them with context.
var (
	ErrNotFound      = errors.New("chunk not found")
	ErrStorageClosed = errors.New("chunk store is closed")
	ErrInvalidQuery  = errors.New("invalid query parameters")

	// ErrSerializationFailed and ErrTruncatedData come from the chunk codec.
	ErrSerializationFailed = errors.New("chunk encoding failed")
	ErrTruncatedData       = errors.New("chunk record truncated")
)
