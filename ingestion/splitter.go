package ingestion

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 300
	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 30
)

// DefaultSeparators prefer paragraph breaks, then lines, then words.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// NewSplitter returns a recursive character splitter.
func NewSplitter(chunkSize, chunkOverlap int) (textsplitter.TextSplitter, error) {
	if chunkSize < 1 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunking, chunkSize, chunkOverlap)
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(DefaultSeparators),
	), nil
}
