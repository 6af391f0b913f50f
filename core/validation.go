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
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk before it is stored.
//
// Validation rules:
//   - Content must not be blank
//   - Source must not be empty
//
// NOT validated:
//   - Vector (empty until the embedding step runs)
//   - ID (assigned from content when zero)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySource)
	}

	return nil
}

// ValidateDimensions checks that two vectors have the same length.
func ValidateDimensions(a, b []float32) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d != %d", ErrVectorDimension, len(a), len(b))
	}
	return nil
}
