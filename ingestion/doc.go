// Package ingestion loads policy documents into a chunk repository.
//
// Documents are read from a directory (text, markdown, PDF and HTML), split
// into overlapping chunks with a recursive character splitter, embedded in
// batches on a worker pool and stored with normalized vectors. Chunk IDs are
// derived from source and content, so re-ingesting an unchanged document
// overwrites its chunks instead of duplicating them.
package ingestion
