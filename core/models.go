// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// UnknownSource is reported for passages whose origin document is not recorded.
const UnknownSource = "Unknown Source"

// ID is a unique identifier for stored chunks.
// It is derived from the chunk's source and content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID returns the identifier for a chunk of content taken from source.
// The same passage found in two documents gets two IDs.
func ChunkID(source, content string) ID {
	return IDFromContent(source + "\x00" + content)
}

// Chunk is a passage of a policy document as held by the vector store.
type Chunk struct {
	Id         ID
	Content    string
	Source     string            // Path or title of the originating document
	Vector     []float32         // Embedding vector (populated during ingestion)
	InsertedAt time.Time         // When the chunk was first stored
	UpdatedAt  time.Time         // When the chunk was last re-embedded
	Metadata   map[string]string // Loader metadata (e.g. "chunk_index")
}

// ScoredChunk is a chunk returned from vector similarity search.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// Candidate is one retrieved passage proposed as context for an answer.
// Candidates are produced in retrieval order.
type Candidate struct {
	Content    string
	SourceID   string
	Similarity float32
}

// SourceOrUnknown returns the candidate's source id, or UnknownSource when it has none.
func (c Candidate) SourceOrUnknown() string {
	if c.SourceID == "" {
		return UnknownSource
	}
	return c.SourceID
}

// ScoreVector holds the relevance signals computed for one candidate.
// All sub-scores lie in [0,1].
type ScoreVector struct {
	Candidate    Candidate
	Index        int // Position in retrieval order
	TokenOverlap float64
	PhraseScore  float64
	TermScore    float64
	Completeness float64
	Final        float64
}

// Selection is the candidate chosen to ground an answer.
type Selection struct {
	Candidate Candidate
	SourceID  string
	Score     ScoreVector
}

// Answer is the response returned for a question.
type Answer struct {
	Question  string
	Text      string   // Generated text including the citation footer
	Citations []string // Source ids cited in the footer
	Refused   bool     // True when no candidates were retrieved
}
