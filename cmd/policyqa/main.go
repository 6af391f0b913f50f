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


package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/policyqa/ai/hugot"
	"github.com/poiesic/policyqa/eval"
	"github.com/poiesic/policyqa/ingestion"
	"github.com/poiesic/policyqa/server"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := loadEnv(".env"); err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := newApp().Run(os.Args); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// loadEnv loads files into the environment. Missing files are ignored and
// variables already set win.
func loadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "policyqa",
		Usage: "Answer questions about company policy documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"POLICYQA_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "policyqa.db",
				EnvVars: []string{"POLICYQA_DB"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL connection string; stores chunks in pgvector instead of Badger",
				EnvVars: []string{"POLICYQA_DSN"},
			},
			&cli.StringFlag{
				Name:    "ai-host",
				Usage:   "Host URL for both embedding and generation",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"POLICYQA_AI_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL (defaults to ai-host)",
				EnvVars: []string{"POLICYQA_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "generation-host",
				Usage:   "Generation service host URL (defaults to ai-host)",
				EnvVars: []string{"POLICYQA_GENERATION_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "nomic-embed-text",
				EnvVars: []string{"POLICYQA_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "generation-model",
				Usage:   "Generation model name",
				Value:   "qwen2.5:3b",
				EnvVars: []string{"POLICYQA_GENERATION_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for hosted model services",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedder",
				Usage:   "Embedding backend (openai, local)",
				Value:   "openai",
				EnvVars: []string{"POLICYQA_EMBEDDER"},
			},
			&cli.StringFlag{
				Name:    "model-dir",
				Usage:   "Directory for local embedding models",
				Value:   hugot.DefaultModelDir,
				EnvVars: []string{"POLICYQA_MODEL_DIR"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Load, chunk, embed and store policy documents",
				ArgsUsage: "<directory>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in characters",
						Value: ingestion.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by neighbouring chunks",
						Value: ingestion.DefaultChunkOverlap,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks embedded per request",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent embedding workers (0 picks from CPU count)",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Delete stored chunks of each ingested source first",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     pipelineFlags(),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and web form",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   server.DefaultAddr,
						EnvVars: []string{"POLICYQA_ADDR"},
					},
					&cli.Float64Flag{
						Name:  "rate",
						Usage: "Sustained requests per second (0 disables limiting)",
						Value: server.DefaultRequestsPerSecond,
					},
					&cli.IntFlag{
						Name:  "burst",
						Usage: "Maximum burst of requests",
						Value: server.DefaultBurst,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with the configured embedder",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "eval",
				Usage:  "Run the evaluation dataset through the pipeline",
				Action: evalCommand,
				Flags: append(pipelineFlags(),
					&cli.StringFlag{
						Name:  "data",
						Usage: "Evaluation dataset (JSON array)",
						Value: "evaluation_data.json",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Raw results file",
						Value: "evaluation_results_raw.json",
					},
				),
			},
			{
				Name:   "autoscore",
				Usage:  "Score raw evaluation results heuristically",
				Action: autoscoreCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "in",
						Usage: "Raw results file",
						Value: "evaluation_results_raw.json",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Scored results file",
						Value: "evaluation_results_scored.json",
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Per-question score table",
						Value: "evaluation_results_summary.csv",
					},
					thresholdFlag(),
				},
			},
			{
				Name:   "ablate",
				Usage:  "Run the evaluation dataset under each ablation config",
				Action: ablateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "data",
						Usage: "Evaluation dataset (JSON array)",
						Value: "evaluation_data.json",
					},
					&cli.StringFlag{
						Name:  "configs",
						Usage: "YAML file overriding the default ablation configs",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Per-config results file",
						Value: "ablation_results.json",
					},
					thresholdFlag(),
				},
			},
			{
				Name:   "analyze",
				Usage:  "Summarise ablation results per config",
				Action: analyzeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "in",
						Usage: "Per-config results file",
						Value: "ablation_results.json",
					},
					&cli.StringFlag{
						Name:  "json",
						Usage: "Summary JSON file",
						Value: "ablation_summary.json",
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Summary CSV file",
						Value: "ablation_summary.csv",
					},
				},
			},
			{
				Name:  "score",
				Usage: "Manual scoring workflow",
				Subcommands: []*cli.Command{
					{
						Name:   "prepare",
						Usage:  "Write a CSV sheet for reviewers to fill in",
						Action: scorePrepareCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "in",
								Usage: "Raw results file",
								Value: "evaluation_results_raw.json",
							},
							&cli.StringFlag{
								Name:  "sheet",
								Usage: "Scoring sheet to write",
								Value: "evaluation_to_score.csv",
							},
						},
					},
					{
						Name:   "apply",
						Usage:  "Merge a filled-in scoring sheet into the results",
						Action: scoreApplyCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "in",
								Usage: "Raw results file",
								Value: "evaluation_results_raw.json",
							},
							&cli.StringFlag{
								Name:  "sheet",
								Usage: "Filled-in scoring sheet",
								Value: "evaluation_to_score.csv",
							},
							&cli.StringFlag{
								Name:  "out",
								Usage: "Scored results file",
								Value: "evaluation_results_scored.json",
							},
							&cli.StringFlag{
								Name:  "summary-json",
								Usage: "Summary JSON file",
								Value: "evaluation_summary.json",
							},
							&cli.StringFlag{
								Name:  "summary-csv",
								Usage: "Summary CSV file",
								Value: "evaluation_summary.csv",
							},
						},
					},
				},
			},
		},
	}
}

// pipelineFlags override the answer pipeline's default config.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "k",
			Usage: "Candidates requested from retrieval",
			Value: 20,
		},
		&cli.BoolFlag{
			Name:  "no-mmr",
			Usage: "Disable maximal marginal relevance",
		},
		&cli.BoolFlag{
			Name:  "no-ngrams",
			Usage: "Disable n-gram phrase matching",
		},
		&cli.BoolFlag{
			Name:  "no-weights",
			Usage: "Score by raw token overlap only",
		},
	}
}

func thresholdFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:  "threshold",
		Usage: "Fuzzy groundedness threshold in [0,1]",
		Value: eval.DefaultFuzzyThreshold,
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
