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


// Package policyqa answers questions about a corpus of policy documents by
// re-ranking vector retrieval hits and grounding a generated answer on the
// best one.
package policyqa

import (
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/ai/openai"
	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/eval"
	"github.com/poiesic/policyqa/ingestion"
	"github.com/poiesic/policyqa/reembed"
	"github.com/poiesic/policyqa/retrieval"
	"github.com/poiesic/policyqa/server"
	"github.com/poiesic/policyqa/storage"
	"github.com/poiesic/policyqa/storage/badger"
)

// Service wires a chunk store, an AI provider, a retriever and the answer
// pipeline together. It owns everything it opens or is handed and releases
// them on Close.
type Service struct {
	backend    *badger.Backend
	repository storage.ChunkRepository
	provider   ai.AIProvider
	retriever  *retrieval.VectorRetriever
	pipeline   *answer.Pipeline
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	repository    storage.ChunkRepository
	inMemory      bool
	answerOpts    []answer.Option
	retrievalOpts []retrieval.Option
	logger        *slog.Logger
}

// WithAIConfig configures the OpenAI-compatible provider.
// Ignored when WithProvider is given.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building an OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithRepository uses repository instead of opening Badger at the given path.
func WithRepository(repository storage.ChunkRepository) ServiceOption {
	return func(o *serviceOptions) {
		o.repository = repository
	}
}

// InMemory opens an in-memory Badger store. The path is ignored.
func InMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithAnswerOptions passes opts to the answer pipeline.
func WithAnswerOptions(opts ...answer.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.answerOpts = append(o.answerOpts, opts...)
	}
}

// WithRetrievalOptions passes opts to the vector retriever.
func WithRetrievalOptions(opts ...retrieval.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.retrievalOpts = append(o.retrievalOpts, opts...)
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// Open builds a Service storing chunks in a Badger database at dbPath.
// A provider or repository passed in options is owned by the Service from
// then on, and is closed if Open fails.
func Open(dbPath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	s := &Service{
		repository: options.repository,
		provider:   options.provider,
		logger:     options.logger.With("component", "service"),
	}

	if s.repository == nil {
		backend, err := badger.OpenBackend(dbPath, options.inMemory)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.backend = backend

		repo, err := badger.NewChunkRepository(backend)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.repository = repo
	}

	if s.provider == nil {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.provider = provider
	}

	retriever, err := retrieval.NewVectorRetriever(s.provider.Embedder(), s.repository, options.retrievalOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.retriever = retriever

	pipeline, err := answer.NewPipeline(retriever, s.provider.Generator(), options.answerOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.pipeline = pipeline

	return s, nil
}

// Close releases the provider and the store. Every step runs even when an
// earlier one fails.
func (s *Service) Close() error {
	var errs []error
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := s.closeStorage(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) closeStorage() error {
	var errs []error
	if s.repository != nil {
		if err := s.repository.Close(); err != nil {
			s.logger.Error("error closing chunk repository", "err", err)
			errs = append(errs, err)
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) Repository() storage.ChunkRepository {
	return s.repository
}

func (s *Service) Provider() ai.AIProvider {
	return s.provider
}

func (s *Service) Retriever() *retrieval.VectorRetriever {
	return s.retriever
}

func (s *Service) Pipeline() *answer.Pipeline {
	return s.pipeline
}

func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.repository, s.provider.Embedder(), opts...)
}

func (s *Service) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(s.repository, s.provider.Embedder(), config, progress)
}

func (s *Service) NewServer(opts ...server.Option) (*server.Server, error) {
	return server.New(s.pipeline, opts...)
}

func (s *Service) NewEvalRunner(opts ...eval.RunnerOption) (*eval.Runner, error) {
	return eval.NewRunner(s.pipeline, opts...)
}

func (s *Service) NewAblation(opts ...eval.AblationOption) (*eval.Ablation, error) {
	return eval.NewAblation(s.pipeline, opts...)
}
