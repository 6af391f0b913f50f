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


// Package search re-ranks passages returned by vector retrieval.
//
// Retrieval hands back passages in embedding-similarity order. This package
// re-scores them against the question with four lexical signals:
//   - Token overlap between normalized question and passage tokens
//   - Phrase score from shared bigrams and trigrams
//   - Term score from question words longer than three characters
//   - Completeness, a proxy for how much substance a passage carries
//
// Scorer blends the signals into a final score (or uses raw token overlap
// when weighted scoring is off), and Select applies a two-stage policy to
// choose the single passage handed to generation.
//
// All functions are pure. Scoring the same question and passage twice yields
// identical results.
package search
