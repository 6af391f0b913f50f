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


// Package openai talks to OpenAI-compatible servers (OpenAI itself, Ollama,
// vLLM) through langchaingo.
//
// Embeddings and chat completions can live on different hosts:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithGenerationHost("https://api.openai.com/v1"),
//	    ai.WithGenerationModel("gpt-3.5-turbo"),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	provider, err := openai.NewProvider(cfg)
//
// Generation retries transport failures up to Config.MaxRetries times and
// strips reasoning blocks from the completion before returning it.
package openai
