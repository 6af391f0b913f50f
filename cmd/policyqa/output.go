package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/poiesic/policyqa/eval"
)

var (
	stdout io.Writer = color.Output
	stderr io.Writer = color.Error

	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.Bold)
)

func printSuccess(format string, a ...any) {
	successColor.Fprintf(stdout, format+"\n", a...)
}

func printInfo(format string, a ...any) {
	infoColor.Fprintf(stdout, format+"\n", a...)
}

func printWarn(format string, a ...any) {
	warnColor.Fprintf(stdout, format+"\n", a...)
}

func printError(err error) {
	errorColor.Fprintf(stderr, "Error: %v\n", err)
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printSummaries(summaries []eval.ConfigSummary) {
	headerColor.Fprintln(stdout, "Ablation summary")
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "config\tgroundedness\tcitation\texact_match\tmedian_latency_ms")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%.3f (n=%d)\t%.3f (n=%d)\t%.3f (n=%d)\t%.1f\n",
			s.Config,
			s.AvgGroundedness, s.NGrounded,
			s.AvgCitation, s.NCitation,
			s.AvgExactMatch, s.NExact,
			s.MedianLatencyMS)
	}
	tw.Flush()

	best := eval.BestConfigs(summaries)
	fmt.Fprintln(stdout)
	printInfo("Best groundedness: %s", best.Groundedness)
	printInfo("Best citation accuracy: %s", best.Citation)
	printInfo("Best exact match: %s", best.ExactMatch)
	printInfo("Fastest: %s", best.Fastest)
}
