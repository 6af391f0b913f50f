package main

import (
	"fmt"
	"io"
	"os"

	"github.com/poiesic/policyqa/eval"
	"github.com/urfave/cli/v2"
)

func threshold(c *cli.Context) (float64, error) {
	t := c.Float64("threshold")
	if t < 0 || t > 1 {
		return 0, fmt.Errorf("threshold %v must be between 0 and 1", t)
	}
	return t, nil
}

func evalCommand(c *cli.Context) error {
	items, err := eval.LoadDataset(c.String("data"))
	if err != nil {
		return err
	}
	cfg := pipelineConfig(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	s, err := openService(c)
	if err != nil {
		return err
	}
	defer s.Close()

	runner, err := s.NewEvalRunner(eval.WithConfig(cfg), eval.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	report, runErr := runner.Run(ctx, items)
	if report == nil {
		return runErr
	}

	out := c.String("out")
	if err := eval.WriteJSONFile(out, report.Results); err != nil {
		return err
	}
	if runErr != nil {
		printWarn("Wrote %d partial results to %s", len(report.Results), out)
		return runErr
	}

	printSuccess("Wrote %d results to %s", len(report.Results), out)
	printInfo("Latency p50 %.1f ms, p95 %.1f ms", report.Metrics.P50, report.Metrics.P95)
	return nil
}

func autoscoreCommand(c *cli.Context) error {
	t, err := threshold(c)
	if err != nil {
		return err
	}
	results, err := eval.LoadResults(c.String("in"))
	if err != nil {
		return err
	}

	scored := eval.AutoScore(results, t)
	if err := eval.WriteJSONFile(c.String("out"), scored); err != nil {
		return err
	}
	err = writeFile(c.String("csv"), func(w io.Writer) error {
		return eval.WriteScoredCSV(w, scored)
	})
	if err != nil {
		return err
	}

	totals := eval.TotalAutoScores(scored)
	printSuccess("Scored %d results", totals.Total)
	printInfo("Groundedness: %d/%d (%.1f%%)", totals.Grounded, totals.Total, 100*totals.Rate(totals.Grounded))
	printInfo("Citation accuracy: %d/%d (%.1f%%)", totals.Citation, totals.Total, 100*totals.Rate(totals.Citation))
	printInfo("Exact match: %d/%d (%.1f%%)", totals.ExactMatches, totals.Total, 100*totals.Rate(totals.ExactMatches))
	return nil
}

func ablateCommand(c *cli.Context) error {
	t, err := threshold(c)
	if err != nil {
		return err
	}
	items, err := eval.LoadDataset(c.String("data"))
	if err != nil {
		return err
	}

	opts := []eval.AblationOption{
		eval.WithThreshold(t),
		eval.WithAblationProgress(os.Stderr),
	}
	if path := c.String("configs"); path != "" {
		configs, err := eval.LoadAblationConfigs(path)
		if err != nil {
			return err
		}
		opts = append(opts, eval.WithConfigs(configs))
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	s, err := openService(c)
	if err != nil {
		return err
	}
	defer s.Close()

	ablation, err := s.NewAblation(opts...)
	if err != nil {
		return err
	}
	report, runErr := ablation.Run(ctx, items)
	if report == nil || len(report.Order) == 0 {
		return runErr
	}

	out := c.String("out")
	if err := eval.WriteJSONFile(out, report.Results); err != nil {
		return err
	}
	printSuccess("Wrote results for %d configs to %s", len(report.Order), out)
	printSummaries(eval.Summarize(report))
	return runErr
}

func analyzeCommand(c *cli.Context) error {
	report, err := eval.LoadAblationResults(c.String("in"))
	if err != nil {
		return err
	}

	summaries := eval.Summarize(report)
	if err := eval.WriteJSONFile(c.String("json"), eval.SummaryMap(summaries)); err != nil {
		return err
	}
	err = writeFile(c.String("csv"), func(w io.Writer) error {
		return eval.WriteSummaryCSV(w, summaries)
	})
	if err != nil {
		return err
	}

	printSummaries(summaries)
	printSuccess("Wrote %s and %s", c.String("json"), c.String("csv"))
	return nil
}

func scorePrepareCommand(c *cli.Context) error {
	results, err := eval.LoadResults(c.String("in"))
	if err != nil {
		return err
	}
	sheet := c.String("sheet")
	err = writeFile(sheet, func(w io.Writer) error {
		return eval.WriteScoringSheet(w, results)
	})
	if err != nil {
		return err
	}
	printSuccess("Wrote scoring sheet for %d results to %s", len(results), sheet)
	return nil
}

func scoreApplyCommand(c *cli.Context) error {
	results, err := eval.LoadResults(c.String("in"))
	if err != nil {
		return err
	}

	f, err := os.Open(c.String("sheet"))
	if err != nil {
		return fmt.Errorf("scoring sheet not found: %w", err)
	}
	defer f.Close()

	scored, applied, err := eval.ApplyScoringSheet(f, results)
	if err != nil {
		return err
	}
	if err := eval.WriteJSONFile(c.String("out"), scored); err != nil {
		return err
	}

	summary := eval.SummarizeManual(scored)
	if err := eval.WriteJSONFile(c.String("summary-json"), summary); err != nil {
		return err
	}
	err = writeFile(c.String("summary-csv"), func(w io.Writer) error {
		return eval.WriteManualSummaryCSV(w, summary)
	})
	if err != nil {
		return err
	}

	printSuccess("Applied scores for %d of %d results", applied, len(results))
	return nil
}
