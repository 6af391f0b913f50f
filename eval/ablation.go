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


package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/policyqa/answer"
	"gopkg.in/yaml.v3"
)

// NamedConfig is one ablation variant.
type NamedConfig struct {
	Name   string        `json:"name" yaml:"name"`
	Config answer.Config `json:"config" yaml:"config"`
}

// DefaultAblationConfigs returns the baseline and one variant per disabled
// feature, in reporting order.
func DefaultAblationConfigs() []NamedConfig {
	base := answer.DefaultConfig()

	noMMR := base
	noMMR.UseMMR = false

	noNgrams := base
	noNgrams.UseNgrams = false

	smallK := base
	smallK.K = 5

	noWeights := base
	noWeights.UseWeightedScoring = false

	return []NamedConfig{
		{Name: "baseline", Config: base},
		{Name: "no_mmr", Config: noMMR},
		{Name: "no_ngrams", Config: noNgrams},
		{Name: "small_k", Config: smallK},
		{Name: "no_weights", Config: noWeights},
	}
}

// configOverride holds the fields a YAML entry may set; unset fields keep
// the baseline value.
type configOverride struct {
	Name               string `yaml:"name"`
	UseMMR             *bool  `yaml:"use_mmr"`
	UseNgrams          *bool  `yaml:"use_ngrams"`
	K                  *int   `yaml:"k"`
	UseWeightedScoring *bool  `yaml:"use_weighted_scoring"`
	MaxOutputLength    *int   `yaml:"max_output_length"`
}

func (o configOverride) apply(cfg answer.Config) answer.Config {
	if o.UseMMR != nil {
		cfg.UseMMR = *o.UseMMR
	}
	if o.UseNgrams != nil {
		cfg.UseNgrams = *o.UseNgrams
	}
	if o.K != nil {
		cfg.K = *o.K
	}
	if o.UseWeightedScoring != nil {
		cfg.UseWeightedScoring = *o.UseWeightedScoring
	}
	if o.MaxOutputLength != nil {
		cfg.MaxOutputLength = *o.MaxOutputLength
	}
	return cfg
}

// ParseAblationConfigs reads a YAML document of the form
//
//	configs:
//	  - name: baseline
//	  - name: tiny_k
//	    k: 3
//
// Each entry starts from answer.DefaultConfig.
func ParseAblationConfigs(r io.Reader) ([]NamedConfig, error) {
	var doc struct {
		Configs []configOverride `yaml:"configs"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAblation, err)
	}

	configs := make([]NamedConfig, 0, len(doc.Configs))
	for _, o := range doc.Configs {
		configs = append(configs, NamedConfig{Name: o.Name, Config: o.apply(answer.DefaultConfig())})
	}
	if err := validateConfigs(configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// LoadAblationConfigs reads ablation configs from a YAML file.
func LoadAblationConfigs(path string) ([]NamedConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAblationConfigs(f)
}

func validateConfigs(configs []NamedConfig) error {
	if len(configs) == 0 {
		return fmt.Errorf("%w: no configs", ErrInvalidAblation)
	}
	seen := make(map[string]bool, len(configs))
	for i, c := range configs {
		if c.Name == "" {
			return fmt.Errorf("%w: config %d has no name", ErrInvalidAblation, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate config %q", ErrInvalidAblation, c.Name)
		}
		seen[c.Name] = true
		if err := c.Config.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAblation, c.Name, err)
		}
	}
	return nil
}

// AblationReport holds the scored results of every config.
type AblationReport struct {
	Order   []string
	Runs    map[string]*Report
	Results map[string][]Result
}

// Ablation runs the same dataset under several configurations.
type Ablation struct {
	answerer  Answerer
	configs   []NamedConfig
	threshold float64
	progress  io.Writer
	logger    *slog.Logger
}

// AblationOption configures an Ablation.
type AblationOption func(*Ablation) error

// WithConfigs replaces the default config set.
func WithConfigs(configs []NamedConfig) AblationOption {
	return func(a *Ablation) error {
		if err := validateConfigs(configs); err != nil {
			return err
		}
		a.configs = configs
		return nil
	}
}

// WithThreshold sets the fuzzy groundedness threshold.
func WithThreshold(threshold float64) AblationOption {
	return func(a *Ablation) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidAblation, threshold)
		}
		a.threshold = threshold
		return nil
	}
}

// WithAblationProgress writes per-config progress lines to w.
func WithAblationProgress(w io.Writer) AblationOption {
	return func(a *Ablation) error {
		a.progress = w
		return nil
	}
}

// WithAblationLogger sets a custom logger.
func WithAblationLogger(logger *slog.Logger) AblationOption {
	return func(a *Ablation) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAblation creates an ablation over DefaultAblationConfigs.
func NewAblation(answerer Answerer, opts ...AblationOption) (*Ablation, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	a := &Ablation{
		answerer:  answerer,
		configs:   DefaultAblationConfigs(),
		threshold: DefaultFuzzyThreshold,
		progress:  io.Discard,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Run evaluates items under each config in order and auto-scores the results.
func (a *Ablation) Run(ctx context.Context, items []Item) (*AblationReport, error) {
	report := &AblationReport{
		Runs:    make(map[string]*Report, len(a.configs)),
		Results: make(map[string][]Result, len(a.configs)),
	}

	for _, nc := range a.configs {
		a.logger.Info("running ablation", "component", "eval", "config", nc.Name)
		fmt.Fprintf(a.progress, "Running ablation for: %s\n", nc.Name)

		runner, err := NewRunner(a.answerer,
			WithConfig(nc.Config),
			WithProgress(a.progress),
			WithLogger(a.logger.With("config", nc.Name)))
		if err != nil {
			return report, err
		}
		run, err := runner.Run(ctx, items)
		if err != nil {
			return report, fmt.Errorf("ablation %s: %w", nc.Name, err)
		}
		run.Results = AutoScore(run.Results, a.threshold)

		report.Order = append(report.Order, nc.Name)
		report.Runs[nc.Name] = run
		report.Results[nc.Name] = run.Results
	}
	return report, nil
}
