package eval

// ConfigSummary aggregates one configuration's scored results. Each score
// uses the manual value when a reviewer set one and the auto score
// otherwise; unscored results are left out of that metric's count.
type ConfigSummary struct {
	Config          string  `json:"-"`
	AvgGroundedness float64 `json:"avg_groundedness"`
	NGrounded       int     `json:"n_grounded"`
	AvgCitation     float64 `json:"avg_citation"`
	NCitation       int     `json:"n_citation"`
	AvgExactMatch   float64 `json:"avg_exact_match"`
	NExact          int     `json:"n_exact"`
	MedianLatencyMS float64 `json:"med_latency_ms"`
	NLatency        int     `json:"n_latency"`
}

// SummarizeResults aggregates results under the given config name.
func SummarizeResults(name string, results []Result) ConfigSummary {
	var grounded, citation, exact, latency []float64
	for _, r := range results {
		if v, ok := scoreValue(r.ManualGroundedness, r.AutoGroundedness); ok {
			grounded = append(grounded, v)
		}
		if v, ok := scoreValue(r.ManualCitation, r.AutoCitation); ok {
			citation = append(citation, v)
		}
		if v, ok := scoreValue(r.ManualExactMatch, r.AutoExactMatch); ok {
			exact = append(exact, v)
		}
		latency = append(latency, r.LatencyMS)
	}

	return ConfigSummary{
		Config:          name,
		AvgGroundedness: mean(grounded),
		NGrounded:       len(grounded),
		AvgCitation:     mean(citation),
		NCitation:       len(citation),
		AvgExactMatch:   mean(exact),
		NExact:          len(exact),
		MedianLatencyMS: Median(latency),
		NLatency:        len(latency),
	}
}

// Summarize aggregates every config of an ablation in run order.
func Summarize(report *AblationReport) []ConfigSummary {
	summaries := make([]ConfigSummary, 0, len(report.Order))
	for _, name := range report.Order {
		summaries = append(summaries, SummarizeResults(name, report.Results[name]))
	}
	return summaries
}

// SummaryMap keys summaries by config name for JSON output.
func SummaryMap(summaries []ConfigSummary) map[string]ConfigSummary {
	m := make(map[string]ConfigSummary, len(summaries))
	for _, s := range summaries {
		m[s.Config] = s
	}
	return m
}

// Best names the leading configuration for each metric.
type Best struct {
	Groundedness string
	Citation     string
	ExactMatch   string
	Fastest      string
}

// BestConfigs picks the best config per metric. Ties go to the config
// that ran first.
func BestConfigs(summaries []ConfigSummary) Best {
	var best Best
	if len(summaries) == 0 {
		return best
	}
	g, c, e, f := summaries[0], summaries[0], summaries[0], summaries[0]
	for _, s := range summaries[1:] {
		if s.AvgGroundedness > g.AvgGroundedness {
			g = s
		}
		if s.AvgCitation > c.AvgCitation {
			c = s
		}
		if s.AvgExactMatch > e.AvgExactMatch {
			e = s
		}
		if s.MedianLatencyMS < f.MedianLatencyMS {
			f = s
		}
	}
	return Best{Groundedness: g.Config, Citation: c.Config, ExactMatch: e.Config, Fastest: f.Config}
}

func scoreValue(manual *float64, auto *int) (float64, bool) {
	if manual != nil {
		return *manual, true
	}
	if auto != nil {
		return float64(*auto), true
	}
	return 0, false
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
