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


// Package ai defines the model services policyqa depends on: an Embedder
// for questions and chunks and a Generator for grounded answers. An
// AIProvider bundles the two and owns their lifetime.
//
// Backends live in subpackages. ai/openai speaks the OpenAI HTTP API and
// works against Ollama and vLLM as well. ai/hugot runs a sentence
// transformer in process. ai/mock is for tests.
//
// Config carries hosts, model names and sampling settings for the HTTP
// backends:
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"), ai.WithMaxRetries(5))
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package ai
