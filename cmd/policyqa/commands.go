package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/policyqa/answer"
	"github.com/poiesic/policyqa/ingestion"
	"github.com/poiesic/policyqa/reembed"
	"github.com/poiesic/policyqa/server"
	"github.com/urfave/cli/v2"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func ingestCommand(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return errors.New("document directory is required")
	}

	opts := []ingestion.Option{
		ingestion.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithReplaceSources(c.Bool("replace")),
	}
	if workers := c.Int("workers"); workers > 0 {
		opts = append(opts, ingestion.WithPoolSize(workers))
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	s, err := openService(c)
	if err != nil {
		return err
	}
	defer s.Close()

	pipeline, err := s.NewIngestionPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	result, err := pipeline.IngestDirectory(ctx, dir)
	if result != nil {
		printSuccess("Ingested %d documents: %d chunks stored", result.Documents, result.Stored)
		if result.Replaced > 0 {
			printInfo("Replaced %d previously stored chunks", result.Replaced)
		}
		if result.Failed > 0 {
			printWarn("%d chunks failed to embed or store", result.Failed)
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("question is required")
	}
	cfg := pipelineConfig(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := openService(c)
	if err != nil {
		return err
	}
	defer s.Close()

	ans, err := s.Pipeline().AnswerWithConfig(c.Context, question, cfg)
	if err != nil {
		return err
	}

	text, sources := answer.SplitSources(ans.Text)
	if ans.Refused {
		printWarn("%s", text)
		return nil
	}
	fmt.Fprintln(stdout, text)
	if len(sources) > 0 {
		fmt.Fprintln(stdout)
		printInfo("Sources: %s", strings.Join(sources, answer.SourceSeparator))
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	s, err := openService(c)
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := s.NewServer(
		server.WithAddr(c.String("addr")),
		server.WithRateLimit(c.Float64("rate"), c.Int("burst")),
	)
	if err != nil {
		return err
	}

	printInfo("Serving on http://%s", srv.Addr())
	return srv.Run(ctx)
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	s, err := openService(c)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", storeName(c))
	fmt.Fprintf(os.Stderr, "Embedder: %s\n", c.String("embedder"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	stats, err := s.NewReembedder(reembedConfig, os.Stderr).Run(ctx)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	printSuccess("Reembedded %d chunks in %v", stats.Chunks, stats.Elapsed)
	return nil
}

func storeName(c *cli.Context) string {
	if c.String("dsn") != "" {
		return "postgres (pgvector)"
	}
	return c.String("db")
}
