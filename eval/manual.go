package eval

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ScoringColumns is the header of the manual scoring sheet.
var ScoringColumns = []string{
	"id", "query", "rag_answer", "latency_ms",
	"manual_score_groundedness", "manual_score_citation_accuracy", "manual_score_exact_match",
}

// WriteScoringSheet writes results as a CSV for a reviewer to fill in.
// Newlines in the query and answer are flattened so each result stays on
// one spreadsheet row. Existing manual scores are carried over.
func WriteScoringSheet(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoringColumns); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			string(r.ID),
			flatten(r.Query),
			flatten(r.RAGAnswer),
			formatFloat(r.LatencyMS),
			floatCell(r.ManualGroundedness),
			floatCell(r.ManualCitation),
			floatCell(r.ManualExactMatch),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ApplyScoringSheet copies the manual scores from a filled-in sheet onto
// the matching results. Rows whose id matches no result are skipped. Blank
// or non-numeric cells clear the score. It returns the updated results and
// the number of rows applied.
func ApplyScoringSheet(r io.Reader, results []Result) ([]Result, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read scoring sheet header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, 0, errors.New("scoring sheet has no id column")
	}

	updated := make([]Result, len(results))
	copy(updated, results)
	byID := make(map[ItemID]int, len(updated))
	for i, res := range updated {
		byID[res.ID] = i
	}

	applied := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, applied, fmt.Errorf("failed to read scoring sheet: %w", err)
		}

		idx, ok := byID[ItemID(strings.TrimSpace(cell(row, cols, "id")))]
		if !ok {
			continue
		}
		res := &updated[idx]
		res.ManualGroundedness = parseScore(cell(row, cols, "manual_score_groundedness"))
		res.ManualCitation = parseScore(cell(row, cols, "manual_score_citation_accuracy"))
		res.ManualExactMatch = parseScore(cell(row, cols, "manual_score_exact_match"))
		applied++
	}
	return updated, applied, nil
}

// ManualSummary aggregates manual scores. Means are nil when no result has
// that score.
type ManualSummary struct {
	NGrounded       int      `json:"n_grounded"`
	MeanGrounded    *float64 `json:"mean_grounded"`
	NCitation       int      `json:"n_citation"`
	MeanCitation    *float64 `json:"mean_citation"`
	NExact          int      `json:"n_exact"`
	MeanExact       *float64 `json:"mean_exact"`
	NLatency        int      `json:"n_latency"`
	MedianLatencyMS *float64 `json:"median_latency_ms"`
}

// SummarizeManual aggregates the manual scores of results.
func SummarizeManual(results []Result) ManualSummary {
	var grounded, citation, exact, latency []float64
	for _, r := range results {
		if r.ManualGroundedness != nil {
			grounded = append(grounded, *r.ManualGroundedness)
		}
		if r.ManualCitation != nil {
			citation = append(citation, *r.ManualCitation)
		}
		if r.ManualExactMatch != nil {
			exact = append(exact, *r.ManualExactMatch)
		}
		latency = append(latency, r.LatencyMS)
	}

	s := ManualSummary{
		NGrounded: len(grounded),
		NCitation: len(citation),
		NExact:    len(exact),
		NLatency:  len(latency),
	}
	s.MeanGrounded = optional(grounded, mean)
	s.MeanCitation = optional(citation, mean)
	s.MeanExact = optional(exact, mean)
	s.MedianLatencyMS = optional(latency, Median)
	return s
}

// WriteManualSummaryCSV writes the summary as metric,n,mean_or_median rows.
func WriteManualSummaryCSV(w io.Writer, s ManualSummary) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "n", "mean_or_median"},
		{"groundedness", strconv.Itoa(s.NGrounded), floatCell(s.MeanGrounded)},
		{"citation_accuracy", strconv.Itoa(s.NCitation), floatCell(s.MeanCitation)},
		{"exact_match", strconv.Itoa(s.NExact), floatCell(s.MeanExact)},
		{"median_latency_ms", strconv.Itoa(s.NLatency), floatCell(s.MedianLatencyMS)},
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func optional(values []float64, fn func([]float64) float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := fn(values)
	return &v
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseScore(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
