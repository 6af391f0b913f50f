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


package hugot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/poiesic/policyqa/ai"
)

const (
	// DefaultModelName is a 384-dimensional sentence-transformers model.
	DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultModelDir is where models are downloaded when absent.
	DefaultModelDir = "./models"

	pipelineName = "policyqa-embedder"
)

// ErrEmbedderClosed is returned by calls made after Close.
var ErrEmbedderClosed = errors.New("hugot embedder closed")

// runFunc runs feature extraction over a batch of texts.
type runFunc func(texts []string) ([][]float32, error)

// Embedder implements ai.Embedder with an in-process ONNX feature extraction
// pipeline. No server is required.
type Embedder struct {
	mu      sync.Mutex
	run     runFunc
	destroy func() error
	closed  bool
	logger  *slog.Logger
}

// NewEmbedder prepares modelName under modelDir, downloading it if needed,
// and starts a pure-Go hugot session.
// Empty arguments fall back to DefaultModelDir and DefaultModelName.
//
// The concrete type is returned because callers own the session and must Close it.
func NewEmbedder(modelDir, modelName string) (*Embedder, error) {
	if modelDir == "" {
		modelDir = DefaultModelDir
	}
	if modelName == "" {
		modelName = DefaultModelName
	}

	modelPath, err := prepareModel(modelDir, modelName)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      pipelineName,
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create feature extraction pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create feature extraction pipeline: %w", err)
	}

	run := func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}

	e := newEmbedder(run, session.Destroy)
	e.logger.Info("local embedder ready", "model", modelName, "path", modelPath)
	return e, nil
}

func newEmbedder(run runFunc, destroy func() error) *Embedder {
	return &Embedder{
		run:     run,
		destroy: destroy,
		logger:  slog.Default().With("component", "hugot-embedder"),
	}
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.New("no embedding generated")
	}
	return vecs[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Calls are serialized; the ONNX session is not shared across goroutines.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEmbedderClosed
	}

	vecs, err := e.run(texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}

// Close destroys the underlying session. It is safe to call more than once.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.destroy == nil {
		return nil
	}
	return e.destroy()
}

// prepareModel downloads the model if it doesn't exist and returns the model path.
func prepareModel(modelDir, modelName string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model path: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"
	downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloadedPath, nil
}

var _ ai.Embedder = (*Embedder)(nil)
