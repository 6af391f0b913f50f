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


// Package storage holds the ChunkRepository contract and the compact
// binary chunk codec shared by its implementations.
//
// Implementations:
//
//	storage/badger    embedded BadgerDB with a full-scan similarity search
//	storage/pgvector  PostgreSQL with the pgvector extension
//
// Vectors are written L2-normalized, so every backend may treat the dot
// product as cosine similarity. Repositories are safe for concurrent use.
package storage
