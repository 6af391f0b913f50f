package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/policyqa/core"
)

// Key prefixes for different data types
const (
	chunkPrefix       = "chunk:"
	chunkSourcePrefix = "chunksrc:"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%d", chunkPrefix, id))
}

// makePartialChunkSourceKey generates the prefix shared by every chunk of a source.
// Format: prefix:source\x00
func makePartialChunkSourceKey(source string) []byte {
	buf := make([]byte, 0, len(chunkSourcePrefix)+len(source)+1)
	buf = append(buf, chunkSourcePrefix...)
	buf = append(buf, source...)
	return append(buf, 0)
}

// makeChunkSourceKey generates a composite key for the source index.
// Format: prefix:source\x00id
func makeChunkSourceKey(source string, id core.ID) []byte {
	prefix := makePartialChunkSourceKey(source)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// BigEndian so chunks of a source iterate in ID order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
