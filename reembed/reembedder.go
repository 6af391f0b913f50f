package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/policyqa/ai"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

// Config tunes a reembedding run. Zero fields take the DefaultConfig value.
type Config struct {
	BatchSize      int           // chunks per EmbedTexts call
	ReportInterval int           // chunks between progress redraws
	MaxRetries     int           // attempts per batch
	RetryDelay     time.Duration // first backoff, doubled per retry
}

func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.BatchSize < 1 {
		out.BatchSize = d.BatchSize
	}
	if out.ReportInterval < 1 {
		out.ReportInterval = d.ReportInterval
	}
	if out.MaxRetries < 1 {
		out.MaxRetries = d.MaxRetries
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = d.RetryDelay
	}
	return &out
}

// Stats describes a finished or interrupted run.
type Stats struct {
	Chunks  int
	Elapsed time.Duration
}

// Reembedder recomputes the vector of every stored chunk. Run it after
// switching embedding models; chunk text and metadata are left alone.
type Reembedder struct {
	repo      storage.ChunkRepository
	config    *Config
	out       io.Writer
	processor *BatchProcessor
	iterator  *ChunkIterator
	logger    *slog.Logger
}

// NewReembedder writes human progress to progress, which may be nil.
func NewReembedder(repo storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	cfg := config.withDefaults()
	if progress == nil {
		progress = io.Discard
	}
	return &Reembedder{
		repo:      repo,
		config:    cfg,
		out:       progress,
		processor: NewBatchProcessor(repo, embedder, cfg.MaxRetries, cfg.RetryDelay),
		iterator:  NewChunkIterator(repo, cfg.BatchSize),
		logger:    slog.Default().With("component", "reembedder"),
	}
}

// Run stops at the first batch that cannot be embedded. Batches already
// written keep their new vectors; Stats counts them.
func (r *Reembedder) Run(ctx context.Context) (Stats, error) {
	total, err := r.repo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintln(r.out, "No chunks found in database (0 chunks)")
		return Stats{}, nil
	}

	fmt.Fprintf(r.out, "Starting reembedding of %d chunks (batch size: %d)\n", total, r.iterator.BatchSize())
	tracker := NewProgressTracker(r.out, total, r.config.ReportInterval)
	tracker.Start()

	var stats Stats
	err = r.iterator.ForEach(ctx, func(batch []*core.Chunk) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		stats.Chunks += len(batch)
		tracker.Update(stats.Chunks)
		return nil
	})
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("reembedding stopped", "done", stats.Chunks, "total", total, "err", err)
		return stats, err
	}

	tracker.Finish()
	r.summarize(stats)
	return stats, nil
}

func (r *Reembedder) summarize(stats Stats) {
	rate := 0.0
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		rate = float64(stats.Chunks) / secs
	}
	fmt.Fprintf(r.out, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		stats.Chunks, stats.Elapsed.Round(time.Millisecond), rate)
	r.logger.Info("reembedding complete", "chunks", stats.Chunks, "elapsed", stats.Elapsed)
}
