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


package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/policyqa/core"
)

// ChunkMUS is the MUS serializer for core.Chunk.
//
// Field order: Id, Content, Source, Vector, InsertedAt, UpdatedAt, Metadata.
// Timestamps are Unix microseconds with 0 meaning the zero time. Metadata
// keys are written sorted so equal chunks encode to equal bytes.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Size(c core.Chunk) (size int) {
	size += varint.Uint64.Size(uint64(c.Id))
	size += ord.String.Size(c.Content)
	size += ord.String.Size(c.Source)
	size += varint.PositiveInt.Size(len(c.Vector))
	for _, f := range c.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Int64.Size(timeToMicro(c.InsertedAt))
	size += varint.Int64.Size(timeToMicro(c.UpdatedAt))
	size += varint.PositiveInt.Size(len(c.Metadata))
	for k, v := range c.Metadata {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}

func (chunkMUS) Marshal(c core.Chunk, bs []byte) (n int) {
	n += varint.Uint64.Marshal(uint64(c.Id), bs[n:])
	n += ord.String.Marshal(c.Content, bs[n:])
	n += ord.String.Marshal(c.Source, bs[n:])
	n += varint.PositiveInt.Marshal(len(c.Vector), bs[n:])
	for _, f := range c.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int64.Marshal(timeToMicro(c.InsertedAt), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(c.UpdatedAt), bs[n:])
	n += varint.PositiveInt.Marshal(len(c.Metadata), bs[n:])
	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(c.Metadata[k], bs[n:])
	}
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c core.Chunk, n int, err error) {
	var (
		m     int
		id    uint64
		count int
		micro int64
	)

	if id, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.Id = core.ID(id)
	n += m

	if c.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m

	if c.Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m

	if count, m, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	if count > 0 {
		c.Vector = make([]float32, count)
		for i := range c.Vector {
			if c.Vector[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
		}
	}

	if micro, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.InsertedAt = microToTime(micro)
	n += m

	if micro, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.UpdatedAt = microToTime(micro)
	n += m

	if count, m, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	if count > 0 {
		c.Metadata = make(map[string]string, count)
		for i := 0; i < count; i++ {
			var k, v string
			if k, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
			if v, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
			c.Metadata[k] = v
		}
	}
	return
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(micro int64) time.Time {
	if micro == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micro).UTC()
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, ChunkMUS.Size(*chunk))
	ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}
