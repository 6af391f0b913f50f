package eval

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

// ScoredColumns is the header of the auto score CSV.
var ScoredColumns = []string{
	"id", "query", "auto_score_groundedness", "auto_score_citation_accuracy",
	"auto_score_exact_match", "groundedness_similarity", "latency_ms",
}

// SummaryColumns is the header of the ablation summary CSV.
var SummaryColumns = []string{
	"config", "avg_groundedness", "n_grounded", "avg_citation", "n_citation",
	"avg_exact_match", "n_exact", "med_latency_ms", "n_latency",
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteJSONFile writes v as indented JSON to path, replacing the file.
func WriteJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ReadResults decodes a JSON array of results.
func ReadResults(r io.Reader) ([]Result, error) {
	var results []Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return results, nil
}

// LoadResults reads results written by WriteJSONFile.
func LoadResults(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raw results not found: %w", err)
	}
	defer f.Close()
	return ReadResults(f)
}

// ReadAblationResults decodes a JSON object mapping config names to results.
// Default config names come first in their usual order, then the rest
// sorted by name.
func ReadAblationResults(r io.Reader) (*AblationReport, error) {
	results := make(map[string][]Result)
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode ablation results: %w", err)
	}

	report := &AblationReport{Results: results}
	for _, nc := range DefaultAblationConfigs() {
		if _, ok := results[nc.Name]; ok {
			report.Order = append(report.Order, nc.Name)
		}
	}
	var rest []string
	for name := range results {
		if !slices.Contains(report.Order, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	report.Order = append(report.Order, rest...)
	return report, nil
}

// LoadAblationResults reads results written for each ablation config.
func LoadAblationResults(path string) (*AblationReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ablation results not found: %w", err)
	}
	defer f.Close()
	return ReadAblationResults(f)
}

// WriteScoredCSV writes one row of auto scores per result.
func WriteScoredCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoredColumns); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			string(r.ID),
			r.Query,
			intCell(r.AutoGroundedness),
			intCell(r.AutoCitation),
			intCell(r.AutoExactMatch),
			floatCell(r.GroundednessSimilarity),
			formatFloat(r.LatencyMS),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per ablation config.
func WriteSummaryCSV(w io.Writer, summaries []ConfigSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryColumns); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			s.Config,
			formatFloat(s.AvgGroundedness), strconv.Itoa(s.NGrounded),
			formatFloat(s.AvgCitation), strconv.Itoa(s.NCitation),
			formatFloat(s.AvgExactMatch), strconv.Itoa(s.NExact),
			formatFloat(s.MedianLatencyMS), strconv.Itoa(s.NLatency),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func intCell(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func floatCell(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
