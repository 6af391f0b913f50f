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


package answer

import "errors"

var (
	// ErrDependencyUnavailable marks failures of an external collaborator.
	// Retrieval and generation failures both wrap it.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrRetrievalFailed is returned when the retriever fails.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrGenerationFailed is returned when the generator fails.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidConfig is returned for a Config that fails validation.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrRetrieverRequired is returned when a Pipeline is built without a retriever.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrGeneratorRequired is returned when a Composer is built without a generator.
	ErrGeneratorRequired = errors.New("generator is required")
)
